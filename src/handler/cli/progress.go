package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"redundancy-analyzer/src/model"
)

// Lipgloss styles for terminal output
var (
	phaseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("160")).
			Bold(true).
			Padding(0, 1)
)

const barWidth = 30

// progressRenderer draws analysis progress. On a terminal the current line
// is redrawn in place; otherwise only phase changes are printed.
type progressRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	tty    bool
	width  int
	phase  string
	inLine bool
}

func newProgressRenderer(f *os.File) *progressRenderer {
	r := &progressRenderer{out: f, width: 80}
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		r.tty = true
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			r.width = w
		}
	}
	return r
}

func (r *progressRenderer) OnPhase(_ string, status model.AnalysisStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == string(status) {
		return
	}
	r.phase = string(status)
	r.endLine()

	label := phaseLabel(status)
	switch status {
	case model.StatusCompleted:
		fmt.Fprintln(r.out, successStyle.Render("✓ "+label))
	case model.StatusFailed:
		fmt.Fprintln(r.out, errorStyle.Render(label))
	default:
		fmt.Fprintln(r.out, phaseStyle.Render("▸ "+label))
	}
}

func (r *progressRenderer) OnProgress(e model.ProgressEvent) {
	if !r.tty {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	line := progressBar(e.Progress) + fmt.Sprintf(" %5.1f%%", e.Progress)
	if e.TotalFiles > 0 {
		line += fmt.Sprintf("  %d/%d files", e.FilesScanned, e.TotalFiles)
	}
	if e.FindingsCount > 0 {
		line += fmt.Sprintf("  %d findings", e.FindingsCount)
	}
	detail := e.CurrentFile
	if detail == "" {
		detail = e.Message
	}
	if detail != "" {
		line += "  " + dimStyle.Render(truncateLeft(detail, r.width-len(line)-4))
	}
	fmt.Fprint(r.out, "\r\033[K"+line)
	r.inLine = true
}

// Done terminates a pending in-place line
func (r *progressRenderer) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endLine()
}

func (r *progressRenderer) endLine() {
	if r.inLine {
		fmt.Fprintln(r.out)
		r.inLine = false
	}
}

func progressBar(pct float64) string {
	filled := int(pct / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

func truncateLeft(s string, max int) string {
	if max < 8 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return "…" + string(r[len(r)-max+1:])
}

func phaseLabel(status model.AnalysisStatus) string {
	switch status {
	case model.StatusInitializing:
		return "Initializing"
	case model.StatusScanning:
		return "Scanning and parsing files"
	case model.StatusAnalyzing:
		return "Detecting redundancy"
	case model.StatusGeneratingReport:
		return "Generating report"
	case model.StatusCompleted:
		return "Analysis complete"
	case model.StatusFailed:
		return "Analysis failed"
	}
	return string(status)
}

// printErrorBanner renders err as a red banner
func printErrorBanner(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("ERROR")+" "+err.Error())
}
