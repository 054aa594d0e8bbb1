package stream

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/scanner"
	"redundancy-analyzer/src/util"
)

const (
	DefaultMaxConcurrency = 5
	DefaultBatchSize      = 50
	minBatchSize          = 10
)

// FileSource yields scanned files
type FileSource interface {
	Stream(ctx context.Context, root string, opts scanner.Options, onFile func(model.FileDescriptor) error) (int, error)
	CountFiles(ctx context.Context, root string, opts scanner.Options) (int, error)
}

// FileParser turns a file into code modules
type FileParser interface {
	ParseFile(ctx context.Context, root string, fd model.FileDescriptor) ([]model.CodeModule, error)
}

// Batch is a group of parsed modules flushed together
type Batch struct {
	Index   int
	Modules []model.CodeModule
	Files   []string // files parsed since the previous batch, including ones without modules
}

// Progress is reported after every parsed file
type Progress struct {
	FilesProcessed int
	TotalFiles     int
	ModulesFound   int
	ParseErrors    int
	CurrentFile    string
}

// Percent returns processed/total as 0-100
func (p Progress) Percent() float64 {
	if p.TotalFiles == 0 {
		return 100
	}
	return float64(p.FilesProcessed) / float64(p.TotalFiles) * 100
}

// Result summarizes a completed stream
type Result struct {
	FilesProcessed int
	ModulesFound   int
	Batches        int
	ParseErrors    int
}

// Processor drives the parser over the scanner's file stream with bounded
// concurrency and flushes modules in batches
type Processor struct {
	cfg     config.StreamConfig
	files   FileSource
	parser  FileParser
	monitor *MemoryMonitor
}

// NewProcessor creates a processor. A nil monitor samples the runtime heap
// against cfg.MemoryThresholdMB.
func NewProcessor(cfg config.StreamConfig, files FileSource, parser FileParser, monitor *MemoryMonitor) *Processor {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if monitor == nil {
		monitor = NewMemoryMonitor(uint64(cfg.MemoryThresholdMB)<<20, cfg.MemoryWaitTimeout, cfg.MemoryPollInterval, nil)
	}
	return &Processor{
		cfg:     cfg,
		files:   files,
		parser:  parser,
		monitor: monitor,
	}
}

// run holds the mutable state of one Process call
type run struct {
	mu         sync.Mutex
	onBatch    func(Batch) error
	onProgress func(Progress)
	batchSize  int
	modules    []model.CodeModule
	files      []string
	progress   Progress
	batches    int
	err        error // first onBatch failure, later batches are dropped
}

// Process streams files under root through the parser. onBatch is called
// in FIFO order whenever a batch fills and once more for the final partial
// batch. Batches already flushed stay flushed when a later error aborts.
func (p *Processor) Process(ctx context.Context, root string, opts scanner.Options, onBatch func(Batch) error, onProgress func(Progress)) (Result, error) {
	total, err := p.files.CountFiles(ctx, root, opts)
	if err != nil {
		return Result{}, wrap(err, "failed to count files")
	}
	util.Info("Processing %d files under %s", total, root)

	r := &run{
		onBatch:    onBatch,
		onProgress: onProgress,
		batchSize:  p.cfg.BatchSize,
		progress:   Progress{TotalFiles: total},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrency)

	_, streamErr := p.files.Stream(gctx, root, opts, func(fd model.FileDescriptor) error {
		if _, err := p.monitor.WaitForHeadroom(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			modules, err := p.parser.ParseFile(gctx, root, fd)
			if err != nil {
				if !model.IsRecoverable(err) {
					return err
				}
				util.Warn("Skipping %s: %v", fd.Path, err)
				r.recordError()
			}
			return r.add(fd.Path, modules, p.nextBatchSize)
		})
		return nil
	})
	waitErr := g.Wait()

	if err := firstError(waitErr, streamErr, ctx.Err()); err != nil {
		return r.result(), wrap(err, "streaming aborted")
	}
	if err := r.flush(); err != nil {
		return r.result(), wrap(err, "failed to flush final batch")
	}

	res := r.result()
	util.Info("Processed %d files: %d modules in %d batches, %d parse errors",
		res.FilesProcessed, res.ModulesFound, res.Batches, res.ParseErrors)
	return res, nil
}

// nextBatchSize shrinks the batch under memory pressure and grows it when
// there is plenty of headroom
func (p *Processor) nextBatchSize(current int) int {
	if !p.cfg.AdaptiveBatching {
		return current
	}
	ratio := p.monitor.Ratio()
	switch {
	case ratio > releaseRatio:
		next := current / 2
		if next < minBatchSize {
			next = minBatchSize
		}
		return next
	case ratio < 0.5:
		next := current + current/4
		if limit := p.cfg.BatchSize * 2; next > limit {
			next = limit
		}
		return next
	}
	return current
}

func (r *run) recordError() {
	r.mu.Lock()
	r.progress.ParseErrors++
	r.mu.Unlock()
}

func (r *run) add(path string, modules []model.CodeModule, resize func(int) int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}

	r.modules = append(r.modules, modules...)
	r.files = append(r.files, path)
	r.progress.FilesProcessed++
	r.progress.ModulesFound += len(modules)
	r.progress.CurrentFile = path
	if r.onProgress != nil {
		r.onProgress(r.progress)
	}

	if len(r.modules) < r.batchSize {
		return nil
	}
	if err := r.flushLocked(); err != nil {
		return err
	}
	r.batchSize = resize(r.batchSize)
	return nil
}

func (r *run) flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.modules) == 0 && len(r.files) == 0 {
		return nil
	}
	return r.flushLocked()
}

func (r *run) flushLocked() error {
	b := Batch{Index: r.batches, Modules: r.modules, Files: r.files}
	r.modules = nil
	r.files = nil
	r.batches++
	util.Debug("Flushing batch %d with %d modules", b.Index, len(b.Modules))
	if r.onBatch == nil {
		return nil
	}
	r.err = r.onBatch(b)
	return r.err
}

func (r *run) result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Result{
		FilesProcessed: r.progress.FilesProcessed,
		ModulesFound:   r.progress.ModulesFound,
		Batches:        r.batches,
		ParseErrors:    r.progress.ParseErrors,
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func wrap(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.WrapError(model.ErrAnalysisTimeout, err, msg).WithRecoverable(false)
	}
	return model.WrapError(model.ErrUnknown, err, msg)
}
