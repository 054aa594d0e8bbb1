package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"redundancy-analyzer/src/controller"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/report"
	"redundancy-analyzer/src/util"
)

// analyzeFlags holds the flag values of the analyze command
type analyzeFlags struct {
	projectRoot  string
	exclude      []string
	threshold    float64
	minSize      int
	includeTests bool
	includeDocs  bool
	focus        string
	output       string
	format       string
	verbose      bool
	timeout      time.Duration
}

func (f *analyzeFlags) options() model.AnalysisOptions {
	return model.AnalysisOptions{
		ProjectRoot:     f.projectRoot,
		ExcludePatterns: f.exclude,
		Threshold:       f.threshold,
		MinModuleSize:   f.minSize,
		IncludeTests:    f.includeTests,
		IncludeDocs:     f.includeDocs,
		Focus:           model.Focus(f.focus),
		OutputDir:       f.output,
		Format:          f.format,
		Verbose:         f.verbose,
	}
}

func (h *Handler) analyzeCmd() *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a project for redundant code and tables",
		Long:  "Scans, parses and cross-references a project, then writes a redundancy report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options()
			h.applyVerbose(opts.Verbose)
			util.Info("Analyzing project: %s (timeout: %v)", opts.ProjectRoot, flags.timeout)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			renderer := newProgressRenderer(os.Stderr)
			ctrl := h.newController(controller.WithObserver(renderer))
			id, err := ctrl.Start(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Analysis %s started\n", id)

			analysisReport, err := ctrl.Wait(ctx, id, flags.timeout)
			renderer.Done()
			if err != nil {
				if ctx.Err() != nil {
					fmt.Fprintf(os.Stderr, "Interrupted; continue later with: redundancy-analyzer resume %s\n", id)
				}
				return err
			}
			return h.writeReports(analysisReport, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.projectRoot, "project-root", "p", ".", "Project directory to analyze")
	f.StringSliceVarP(&flags.exclude, "exclude", "e", nil, "Glob patterns to exclude (repeatable)")
	f.Float64VarP(&flags.threshold, "threshold", "t", 0, "Similarity threshold 0-100 (default from config, 70)")
	f.IntVar(&flags.minSize, "min-size", 0, "Minimum module size in lines (default from config, 10)")
	f.BoolVar(&flags.includeTests, "include-tests", false, "Include test files")
	f.BoolVar(&flags.includeDocs, "include-docs", false, "Include documentation files")
	f.StringVar(&flags.focus, "focus", string(model.FocusAll), "Analysis focus: all, code, database, api")
	f.StringVarP(&flags.output, "output", "o", "", "Report output directory")
	f.StringVarP(&flags.format, "format", "f", "", "Report format: markdown, json, sarif")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	f.DurationVar(&flags.timeout, "timeout", 0, "Maximum time to wait for the analysis (default from config)")

	return cmd
}

// applyVerbose switches logging to debug when requested
func (h *Handler) applyVerbose(verbose bool) {
	if !verbose {
		return
	}
	h.cfg.Logging.Level = "debug"
	util.SetDefaultLogger(h.cfg.Logging)
}

// writeReports writes the report artifacts and prints a short summary
func (h *Handler) writeReports(analysisReport *model.AnalysisReport, opts model.AnalysisOptions) error {
	cfg := *h.cfg
	if opts.OutputDir != "" {
		cfg.Output.OutputDir = opts.OutputDir
	}
	if opts.Format != "" {
		cfg.Output.Formats = []string{opts.Format}
	}

	reportCtrl := controller.NewReportController(&cfg)
	paths, err := reportCtrl.GenerateReports(analysisReport)
	if err != nil {
		return fmt.Errorf("generating reports: %w", err)
	}
	for _, path := range paths {
		fmt.Printf("Report written to %s\n", path)
	}

	s := analysisReport.Summary
	fmt.Fprintf(os.Stderr, "\nAnalysis complete:\n")
	fmt.Fprintf(os.Stderr, "  Findings: %d (%d critical)\n", len(analysisReport.Findings), s.CriticalFindings)
	fmt.Fprintf(os.Stderr, "  Removable lines: %d (~%d days)\n", s.TotalRedundancy, report.CleanupDays(s.TotalRedundancy))
	fmt.Fprintf(os.Stderr, "  Unused code: %.1f%%\n", s.UnusedCodePercentage)
	if analysisReport.TotalTables > 0 {
		fmt.Fprintf(os.Stderr, "  Tables without CRUD: %d of %d\n", s.TablesWithoutCRUD, analysisReport.TotalTables)
	}
	for _, w := range analysisReport.Warnings {
		fmt.Fprintf(os.Stderr, "  %s %s\n", warnStyle.Render("Warning:"), w)
	}
	return nil
}
