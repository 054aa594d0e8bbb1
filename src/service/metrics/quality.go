package metrics

import (
	"bytes"
	"math"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/util"
)

var (
	modernMarkers = map[string][]string{
		"javascript": {"const ", "let ", "=>", "async ", "class "},
		"typescript": {"const ", "let ", "=>", "async ", "class "},
		"python":     {"->", "f\"", "f'", "async ", ":=", "@"},
	}
	docMarkers = map[string][]string{
		"go":         {"//"},
		"javascript": {"/**", "//"},
		"typescript": {"/**", "//"},
		"python":     {"\"\"\"", "'''", "#"},
	}

	camelCase  = regexp.MustCompile(`^_?[A-Za-z][A-Za-z0-9]*$`)
	snakeCase  = regexp.MustCompile(`^_{0,2}[a-z][a-z0-9_]*_{0,2}$`)
	pascalCase = regexp.MustCompile(`^_?[A-Z][A-Za-z0-9]*$`)
)

// docContext is how many lines above a module are searched for its doc comment
const docContext = 3

// QualityScorer rates a single module 0-100
type QualityScorer interface {
	ModuleQuality(m model.CodeModule) float64
}

// Calculator scores module quality against the rest of the project
type Calculator struct {
	root  string
	files map[string]bool

	mu     sync.Mutex
	lines  map[string][][]byte
	onDisk map[string]bool
}

// NewCalculator creates a calculator over the known project files
// (relative, slash separated). Test files missing from the list are looked
// up under root, since scans usually leave them out.
func NewCalculator(root string, files []string) *Calculator {
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}
	return &Calculator{
		root:   root,
		files:  set,
		lines:  make(map[string][][]byte),
		onDisk: make(map[string]bool),
	}
}

// ModuleQuality scores a module from its source on disk. An unreadable
// source scores 100 so it never lowers a combined score.
func (c *Calculator) ModuleQuality(m model.CodeModule) float64 {
	src, ok := c.source(m)
	if !ok {
		return 100
	}
	return c.QualityScore(m, src)
}

// QualityScore rates a module 0-100 from its source text. source should
// include the few lines above the module so doc comments are seen.
func (c *Calculator) QualityScore(m model.CodeModule, source string) float64 {
	score := 100.0

	if markers, ok := modernMarkers[m.Language]; ok && !containsAny(source, markers) {
		score -= 10
	}
	if !c.HasColocatedTest(m.FilePath) {
		score -= 15
	}
	if markers, ok := docMarkers[m.Language]; ok && !containsAny(source, markers) {
		score -= 10
	}
	if !followsNamingConvention(m) {
		score -= 10
	}
	if over := m.Metrics.CyclomaticComplexity - 10; over > 0 {
		score -= math.Min(float64(over)*2, 30)
	}
	if MaintainabilityIndex(m) > 70 {
		score += 10
	}
	return clamp(score, 0, 100)
}

// AverageQuality reads each module's source from disk and averages the
// quality scores. Unreadable files are skipped.
func (c *Calculator) AverageQuality(modules []model.CodeModule) float64 {
	if len(modules) == 0 {
		return 0
	}
	var total float64
	var n int
	for _, m := range modules {
		src, ok := c.source(m)
		if !ok {
			continue
		}
		total += c.QualityScore(m, src)
		n++
	}
	if n == 0 {
		return 0
	}
	return round(total / float64(n))
}

func (c *Calculator) source(m model.CodeModule) (string, bool) {
	c.mu.Lock()
	lines, ok := c.lines[m.FilePath]
	if !ok {
		data, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(m.FilePath)))
		if err != nil {
			c.mu.Unlock()
			util.Debug("Quality score skipped for %s: %v", m.FilePath, err)
			return "", false
		}
		lines = bytes.Split(data, []byte("\n"))
		c.lines[m.FilePath] = lines
	}
	c.mu.Unlock()

	start := m.StartLine - docContext
	if start < 1 {
		start = 1
	}
	end := m.EndLine
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return "", true
	}
	return string(bytes.Join(lines[start-1:end], []byte("\n"))), true
}

// HasColocatedTest reports whether a test file sits next to the given file
func (c *Calculator) HasColocatedTest(file string) bool {
	for _, candidate := range testCandidates(file) {
		if c.files[candidate] || c.exists(candidate) {
			return true
		}
	}
	return false
}

func (c *Calculator) exists(rel string) bool {
	if c.root == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if found, ok := c.onDisk[rel]; ok {
		return found
	}
	info, err := os.Stat(filepath.Join(c.root, filepath.FromSlash(rel)))
	found := err == nil && info.Mode().IsRegular()
	c.onDisk[rel] = found
	return found
}

func testCandidates(file string) []string {
	dir, base := path.Split(file)
	ext := path.Ext(base)
	name := strings.TrimSuffix(base, ext)

	switch ext {
	case ".go":
		return []string{dir + name + "_test.go"}
	case ".py":
		return []string{dir + "test_" + name + ".py", dir + name + "_test.py", dir + "tests/test_" + name + ".py"}
	default:
		return []string{
			dir + name + ".test" + ext,
			dir + name + ".spec" + ext,
			dir + "__tests__/" + name + ".test" + ext,
			dir + "__tests__/" + name + ext,
		}
	}
}

func followsNamingConvention(m model.CodeModule) bool {
	name := m.ModuleName
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "default" {
		return true
	}
	switch m.Language {
	case "python":
		if m.Type == model.ModuleClass {
			return pascalCase.MatchString(name)
		}
		return snakeCase.MatchString(name)
	case "go":
		return camelCase.MatchString(strings.TrimPrefix(name, "_"))
	default:
		return camelCase.MatchString(strings.TrimPrefix(name, "$"))
	}
}

// MaintainabilityIndex is the classic 171 − 5.2 ln(V) − 0.23 CC − 16.2 ln(LOC)
// normalized to 0-100, with Halstead volume approximated from size and
// dependency count
func MaintainabilityIndex(m model.CodeModule) float64 {
	loc := math.Max(float64(m.Metrics.LinesOfCode), 1)
	volume := loc * math.Log2(float64(m.Metrics.DependencyCount)+2)
	mi := 171 - 5.2*math.Log(volume) - 0.23*float64(m.Metrics.CyclomaticComplexity) - 16.2*math.Log(loc)
	return clamp(mi*100/171, 0, 100)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
