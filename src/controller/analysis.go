package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/detector"
	"redundancy-analyzer/src/service/metrics"
	"redundancy-analyzer/src/service/parser"
	"redundancy-analyzer/src/service/report"
	"redundancy-analyzer/src/service/retry"
	"redundancy-analyzer/src/service/scanner"
	"redundancy-analyzer/src/service/schema"
	"redundancy-analyzer/src/service/state"
	"redundancy-analyzer/src/service/stream"
	"redundancy-analyzer/src/util"
)

// Progress milestones per phase, 0-100
const (
	scanWeight       = 60.0
	tablesProgress   = 65.0
	detectorProgress = 90.0
)

// Observer receives lifecycle and progress events of analyses
type Observer interface {
	OnPhase(id string, status model.AnalysisStatus)
	OnProgress(event model.ProgressEvent)
}

// AnalysisController orchestrates redundancy analyses
type AnalysisController struct {
	cfg     *config.Config
	states  *state.Manager
	retry   *retry.Handler
	scanner *scanner.Scanner
	monitor *stream.MemoryMonitor
	now     func() time.Time

	mu        sync.Mutex
	observers []Observer
	runs      map[string]*analysisRun
}

// analysisRun is the in-memory record of one analysis
type analysisRun struct {
	state  model.AnalysisState
	report *model.AnalysisReport
	done   chan struct{}
	cancel context.CancelFunc
}

// Option customizes an AnalysisController
type Option func(*AnalysisController)

// WithObserver registers an observer
func WithObserver(o Observer) Option {
	return func(c *AnalysisController) { c.observers = append(c.observers, o) }
}

// WithMemoryMonitor replaces the runtime heap monitor
func WithMemoryMonitor(m *stream.MemoryMonitor) Option {
	return func(c *AnalysisController) { c.monitor = m }
}

// NewAnalysisController creates a new analysis controller. The retry handler
// is shared by the runs this controller starts.
func NewAnalysisController(cfg *config.Config, states *state.Manager, rh *retry.Handler, opts ...Option) *AnalysisController {
	c := &AnalysisController{
		cfg:     cfg,
		states:  states,
		retry:   rh,
		scanner: scanner.New(),
		now:     time.Now,
		runs:    make(map[string]*analysisRun),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start validates opts and launches an analysis in the background. It
// returns the analysis id.
func (c *AnalysisController) Start(ctx context.Context, opts model.AnalysisOptions) (string, error) {
	opts = c.normalize(opts)
	if err := config.ValidateOptions(opts); err != nil {
		return "", err
	}
	root, err := projectRoot(opts.ProjectRoot)
	if err != nil {
		return "", err
	}
	opts.ProjectRoot = root

	s := model.AnalysisState{
		ID:           uuid.NewString(),
		Status:       model.StatusInitializing,
		CurrentPhase: string(model.StatusInitializing),
		StartTime:    c.now().UTC(),
		ProjectPath:  root,
		Options:      opts,
	}
	c.launch(ctx, s, nil)
	return s.ID, nil
}

// Resume continues an interrupted analysis from its last checkpoint. A
// completed analysis is left as is.
func (c *AnalysisController) Resume(ctx context.Context, id string) error {
	c.mu.Lock()
	r, ok := c.runs[id]
	running := ok && !r.state.Status.Terminal()
	c.mu.Unlock()
	if running {
		return model.NewError(model.ErrInvalidOptions, "analysis %s is still running", id).WithRecoverable(false)
	}

	data, err := c.states.ResumeAnalysis(id)
	if err != nil {
		return err
	}
	if data == nil {
		return notFound(id)
	}
	if data.State.Status == model.StatusCompleted {
		util.Info("Analysis %s already completed, nothing to resume", id)
		return nil
	}
	if _, err := projectRoot(data.State.ProjectPath); err != nil {
		return err
	}

	s := *data.State
	s.Status = model.StatusInitializing
	s.CurrentPhase = string(model.StatusInitializing)
	s.Error = ""
	s.EndTime = nil
	util.Info("Resuming analysis %s (%d files already processed)", id, len(s.ProcessedFiles))
	c.launch(ctx, s, data)
	return nil
}

// Wait blocks until the analysis finishes, timeout elapses or ctx is done.
// A zero timeout uses the configured default. The run keeps going after a
// timeout.
func (c *AnalysisController) Wait(ctx context.Context, id string, timeout time.Duration) (*model.AnalysisReport, error) {
	c.mu.Lock()
	r, ok := c.runs[id]
	c.mu.Unlock()
	if !ok {
		return c.Report(id)
	}

	if timeout <= 0 {
		timeout = c.cfg.State.WaitTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-r.done:
		return c.Report(id)
	case <-timer.C:
		return nil, model.NewError(model.ErrAnalysisTimeout, "analysis %s did not finish within %v", id, timeout).
			With("analysis_id", id).
			WithRecoverable(false)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Analyze starts an analysis and waits for its report
func (c *AnalysisController) Analyze(ctx context.Context, opts model.AnalysisOptions, timeout time.Duration) (*model.AnalysisReport, error) {
	id, err := c.Start(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c.Wait(ctx, id, timeout)
}

// Cancel stops a running analysis; it ends as failed
func (c *AnalysisController) Cancel(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.runs[id]; ok && r.cancel != nil {
		r.cancel()
	}
}

// Status returns the state of an analysis from memory or the state store
func (c *AnalysisController) Status(id string) (*model.AnalysisState, error) {
	c.mu.Lock()
	if r, ok := c.runs[id]; ok {
		s := r.state
		c.mu.Unlock()
		return &s, nil
	}
	c.mu.Unlock()

	s, err := c.states.LoadState(id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, notFound(id)
	}
	return s, nil
}

// Report returns the report of a completed analysis. Failed and unfinished
// analyses return an error naming their state.
func (c *AnalysisController) Report(id string) (*model.AnalysisReport, error) {
	s, err := c.Status(id)
	if err != nil {
		return nil, err
	}
	switch s.Status {
	case model.StatusFailed:
		return nil, model.NewError(model.ErrUnknown, "analysis %s failed: %s", id, s.Error).
			With("analysis_id", id).
			WithRecoverable(false)
	case model.StatusCompleted:
	default:
		return nil, model.NewError(model.ErrInvalidOptions, "analysis %s is still %s", id, s.Status).WithRecoverable(false)
	}

	c.mu.Lock()
	r, ok := c.runs[id]
	c.mu.Unlock()
	if ok && r.report != nil {
		return r.report, nil
	}
	rep, err := c.states.LoadReport(id)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, model.NewError(model.ErrFileAccess, "report of analysis %s is missing", id).WithRecoverable(false)
	}
	return rep, nil
}

func (c *AnalysisController) normalize(opts model.AnalysisOptions) model.AnalysisOptions {
	if opts.ProjectRoot == "" {
		opts.ProjectRoot = "."
	}
	if opts.Focus == "" {
		opts.Focus = model.FocusAll
	}
	if opts.MinModuleSize == 0 {
		opts.MinModuleSize = c.cfg.Parser.MinModuleSize
	}
	if opts.Threshold == 0 {
		opts.Threshold = c.cfg.Detectors.Similarity.Threshold
	}
	return opts
}

func (c *AnalysisController) launch(ctx context.Context, s model.AnalysisState, resume *model.ResumeData) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &analysisRun{state: s, done: make(chan struct{}), cancel: cancel}

	c.mu.Lock()
	c.runs[s.ID] = r
	c.mu.Unlock()
	c.persist(s)
	c.emitPhase(s.ID, s.Status)

	go func() {
		defer close(r.done)
		defer cancel()
		c.run(runCtx, s.ID, s.Options, resume)
	}()
}

// run executes every phase of one analysis and records the outcome
func (c *AnalysisController) run(ctx context.Context, id string, opts model.AnalysisOptions, resume *model.ResumeData) {
	startTime := time.Now()
	util.Info("Starting analysis %s of %s (focus: %s)", id, opts.ProjectRoot, opts.Focus)

	rep, err := c.execute(ctx, id, opts, resume)
	if err != nil {
		c.fail(id, err)
		return
	}

	end := c.now().UTC()
	c.mu.Lock()
	r := c.runs[id]
	r.report = rep
	c.mu.Unlock()

	if err := c.states.SaveReport(rep); err != nil {
		util.Warn("Could not persist report of %s: %v", id, err)
	}
	c.setPhase(id, model.StatusCompleted, func(s *model.AnalysisState) {
		s.Progress = 100
		s.FindingsCount = len(rep.Findings)
		s.EndTime = &end
	})
	util.Info("Analysis %s complete: %d findings, %d removable lines (took %v)",
		id, len(rep.Findings), rep.Summary.TotalRedundancy, time.Since(startTime))
}

func (c *AnalysisController) execute(ctx context.Context, id string, opts model.AnalysisOptions, resume *model.ResumeData) (*model.AnalysisReport, error) {
	cfg := c.runConfig(opts)
	root := opts.ProjectRoot

	// Scanning
	c.setPhase(id, model.StatusScanning, nil)
	modules, files, err := c.scan(ctx, id, cfg, root, resume)
	if err != nil {
		return nil, err
	}

	// Analyzing
	c.setPhase(id, model.StatusAnalyzing, func(s *model.AnalysisState) { s.Progress = scanWeight })
	tables := []model.DatabaseTableMapping{}
	if opts.Focus.IncludesDatabase() {
		tables, err = c.mapTables(ctx, cfg, root)
		if err != nil {
			return nil, err
		}
	}
	c.progress(id, tablesProgress, "database tables mapped")

	quality := metrics.NewCalculator(root, files)
	runner := detector.NewRunner(cfg)
	findings, err := runner.RunAll(ctx, detector.Input{Modules: modules, Tables: tables, Focus: opts.Focus, Quality: quality})
	var warnings []string
	if err != nil {
		if !model.IsRecoverable(err) || ctx.Err() != nil {
			return nil, model.WrapError(model.ErrUnknown, err, "detection failed").WithRecoverable(false)
		}
		util.Warn("Analysis %s continues without some detectors: %v", id, err)
		warnings = append(warnings, err.Error())
	}
	findings = metrics.PrioritizeFindings(findings)
	c.update(id, func(s *model.AnalysisState) {
		s.FindingsCount = len(findings)
		s.PartialFindings = findings
	})
	c.progress(id, detectorProgress, fmt.Sprintf("%d findings", len(findings)))
	c.checkpoint(id, string(model.StatusAnalyzing), files, findings, detectorProgress)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Generating report
	c.setPhase(id, model.StatusGeneratingReport, nil)
	agg := metrics.AggregateMetrics(findings)
	agg.ModuleQuality = quality.AverageQuality(modules)

	rep := &model.AnalysisReport{
		ID:              id,
		ProjectName:     filepath.Base(root),
		AnalysisDate:    c.now().UTC(),
		TotalFiles:      len(files),
		TotalModules:    len(modules),
		TotalTables:     len(tables),
		Findings:        findings,
		Tables:          tables,
		Summary:         report.BuildSummary(findings, tables, len(modules), cfg.Output.TopDomains),
		Metrics:         agg,
		Recommendations: report.DeriveRecommendations(findings),
		Warnings:        warnings,
	}
	return rep, nil
}

// scan streams the project through the parser, checkpointing every batch.
// It returns all modules and processed file paths, including resumed ones.
func (c *AnalysisController) scan(ctx context.Context, id string, cfg *config.Config, root string, resume *model.ResumeData) ([]model.CodeModule, []string, error) {
	p := parser.New(parser.Options{
		MinModuleSize:   cfg.Parser.MinModuleSize,
		CacheMaxEntries: cfg.Parser.CacheMaxEntries,
		Digest: parser.DigestOptions{
			MaxLength:       cfg.Parser.MaxDigestLength,
			IncludeComments: !cfg.Detectors.Similarity.IgnoreComments,
			IncludeLayout:   !cfg.Detectors.Similarity.IgnoreWhitespace,
		},
	})
	defer p.Reset()

	var (
		modules []model.CodeModule
		files   []string
	)
	opts := scannerOptions(cfg)
	opts.Extensions = p.SupportedExtensions()
	if resume != nil {
		if resume.Partial != nil {
			modules = append(modules, resume.Partial.Modules...)
		}
		if resume.Checkpoint != nil {
			files = append(files, resume.Checkpoint.ProcessedFiles...)
		}
		opts.SkipFiles = make(map[string]bool, len(files))
		for _, f := range files {
			opts.SkipFiles[f] = true
		}
	}
	resumed := len(files)

	proc := stream.NewProcessor(cfg.Stream, c.scanner, p, c.monitor)
	onBatch := func(b stream.Batch) error {
		modules = append(modules, b.Modules...)
		files = append(files, b.Files...)
		s := c.update(id, func(s *model.AnalysisState) {
			s.FilesScanned = len(files)
			s.ProcessedFiles = append([]string(nil), files...)
		})
		// modules before the checkpoint that lists their files, so a resume
		// never skips a file whose modules were lost
		if err := c.states.SavePartialReport(&model.PartialReport{AnalysisID: id, Modules: modules}); err != nil {
			return model.WrapError(model.ErrFileAccess, err, "could not persist partial report").WithRecoverable(false)
		}
		if err := c.saveCheckpoint(id, string(model.StatusScanning), files, nil, s.Progress); err != nil {
			return model.WrapError(model.ErrFileAccess, err, "could not save checkpoint").WithRecoverable(false)
		}
		c.persist(s)
		return nil
	}
	onProgress := func(pr stream.Progress) {
		total := resumed + pr.TotalFiles
		scanned := resumed + pr.FilesProcessed
		pct := 100.0
		if total > 0 {
			pct = float64(scanned) / float64(total) * 100
		}
		s := c.update(id, func(s *model.AnalysisState) {
			s.FilesScanned = scanned
			s.TotalFiles = total
			s.Progress = pct * scanWeight / 100
		})
		c.emitProgress(model.ProgressEvent{
			AnalysisID:   id,
			Phase:        string(model.StatusScanning),
			Progress:     s.Progress,
			FilesScanned: scanned,
			TotalFiles:   total,
			CurrentFile:  pr.CurrentFile,
		})
	}

	res, err := proc.Process(ctx, root, opts, onBatch, onProgress)
	if err != nil {
		return nil, nil, err
	}
	if res.ParseErrors > 0 {
		util.Warn("%d files could not be parsed and were skipped", res.ParseErrors)
	}
	if modules == nil {
		modules = []model.CodeModule{}
	}
	return modules, files, nil
}

func (c *AnalysisController) mapTables(ctx context.Context, cfg *config.Config, root string) ([]model.DatabaseTableMapping, error) {
	source, err := schema.NewSource(cfg.Database)
	if err != nil {
		return nil, err
	}
	mapper := schema.NewMapper(cfg.Database, source, c.scanner, scannerOptions(cfg), c.retry)
	return mapper.AnalyzeTableUsage(ctx, root)
}

// runConfig returns a copy of the configuration with opts applied
func (c *AnalysisController) runConfig(opts model.AnalysisOptions) *config.Config {
	cfg := *c.cfg
	cfg.Scanner.ExcludePatterns = append([]string(nil), c.cfg.Scanner.ExcludePatterns...)
	cfg.ApplyOptions(opts)
	return &cfg
}

func scannerOptions(cfg *config.Config) scanner.Options {
	return scanner.Options{
		IncludePatterns:  cfg.Scanner.IncludePatterns,
		ExcludePatterns:  cfg.Scanner.ExcludePatterns,
		IncludeTests:     cfg.Scanner.IncludeTests,
		IncludeDocs:      cfg.Scanner.IncludeDocs,
		MaxFiles:         cfg.Scanner.MaxFiles,
		MaxFileSize:      cfg.Scanner.MaxFileSizeBytes,
		RespectGitignore: cfg.Scanner.RespectGitignore,
	}
}

func (c *AnalysisController) fail(id string, err error) {
	if errors.Is(err, context.Canceled) {
		err = model.WrapError(model.ErrUnknown, err, "analysis cancelled").WithRecoverable(false)
	}
	util.Error("Analysis %s failed: %v", id, err)
	end := c.now().UTC()
	c.setPhase(id, model.StatusFailed, func(s *model.AnalysisState) {
		s.Error = err.Error()
		s.EndTime = &end
	})
}

// update applies fn to the in-memory state and returns a copy
func (c *AnalysisController) update(id string, fn func(s *model.AnalysisState)) model.AnalysisState {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.runs[id]
	if fn != nil {
		fn(&r.state)
	}
	return r.state
}

func (c *AnalysisController) setPhase(id string, status model.AnalysisStatus, fn func(s *model.AnalysisState)) {
	s := c.update(id, func(s *model.AnalysisState) {
		s.Status = status
		s.CurrentPhase = string(status)
		if fn != nil {
			fn(s)
		}
	})
	c.persist(s)
	c.emitPhase(id, status)
	c.emitProgress(model.ProgressEvent{
		AnalysisID:    id,
		Phase:         string(status),
		Progress:      s.Progress,
		FilesScanned:  s.FilesScanned,
		TotalFiles:    s.TotalFiles,
		FindingsCount: s.FindingsCount,
		Message:       s.Error,
	})
}

func (c *AnalysisController) progress(id string, pct float64, msg string) {
	s := c.update(id, func(s *model.AnalysisState) { s.Progress = pct })
	c.emitProgress(model.ProgressEvent{
		AnalysisID:    id,
		Phase:         s.CurrentPhase,
		Progress:      pct,
		FindingsCount: s.FindingsCount,
		Message:       msg,
	})
}

func (c *AnalysisController) persist(s model.AnalysisState) {
	if err := c.states.SaveState(&s); err != nil {
		util.Warn("Could not persist state of %s: %v", s.ID, err)
	}
}

func (c *AnalysisController) checkpoint(id, phase string, files []string, findings []model.RedundancyFinding, progress float64) {
	if err := c.saveCheckpoint(id, phase, files, findings, progress); err != nil {
		util.Warn("Could not save checkpoint of %s: %v", id, err)
	}
}

func (c *AnalysisController) saveCheckpoint(id, phase string, files []string, findings []model.RedundancyFinding, progress float64) error {
	return c.states.SaveCheckpoint(&model.Checkpoint{
		AnalysisID:      id,
		Phase:           phase,
		ProcessedFiles:  files,
		PartialFindings: findings,
		Progress:        progress,
		CreatedAt:       c.now().UTC(),
	})
}

func (c *AnalysisController) emitPhase(id string, status model.AnalysisStatus) {
	for _, o := range c.observerList() {
		o.OnPhase(id, status)
	}
}

func (c *AnalysisController) emitProgress(e model.ProgressEvent) {
	for _, o := range c.observerList() {
		o.OnProgress(e)
	}
}

func (c *AnalysisController) observerList() []Observer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Observer(nil), c.observers...)
}

func projectRoot(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", model.WrapError(model.ErrInvalidOptions, err, "resolving project path %s", p).WithRecoverable(false)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", model.NewError(model.ErrProjectNotFound, "project path %s does not exist or is not a directory", p).
			With("path", abs).
			WithRecoverable(false)
	}
	return abs, nil
}

func notFound(id string) error {
	return model.NewError(model.ErrInvalidOptions, "analysis %s not found", id).WithRecoverable(false)
}
