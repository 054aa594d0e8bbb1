package stream

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/parser"
	"redundancy-analyzer/src/service/scanner"
)

type fakeSource struct {
	files []model.FileDescriptor
}

func newFakeSource(n int) *fakeSource {
	s := &fakeSource{}
	for i := 0; i < n; i++ {
		s.files = append(s.files, model.FileDescriptor{Path: fmt.Sprintf("src/f%02d.go", i), Extension: ".go"})
	}
	return s
}

func (s *fakeSource) Stream(ctx context.Context, _ string, _ scanner.Options, onFile func(model.FileDescriptor) error) (int, error) {
	for i, fd := range s.files {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := onFile(fd); err != nil {
			return i, err
		}
	}
	return len(s.files), nil
}

func (s *fakeSource) CountFiles(context.Context, string, scanner.Options) (int, error) {
	return len(s.files), nil
}

type fakeParser struct {
	perFile int
	fail    map[string]error
	block   bool
}

func (p *fakeParser) ParseFile(ctx context.Context, _ string, fd model.FileDescriptor) ([]model.CodeModule, error) {
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err, ok := p.fail[fd.Path]; ok {
		return []model.CodeModule{}, err
	}
	modules := make([]model.CodeModule, p.perFile)
	for i := range modules {
		modules[i] = model.CodeModule{ID: fmt.Sprintf("%s#%d", fd.Path, i), FilePath: fd.Path}
	}
	return modules, nil
}

func lowMemory() uint64 { return 0 }

func newTestProcessor(cfg config.StreamConfig, src FileSource, p FileParser) *Processor {
	return NewProcessor(cfg, src, p, NewMemoryMonitor(1<<30, 0, 0, lowMemory))
}

func TestProcess_FlushesFIFOBatches(t *testing.T) {
	proc := newTestProcessor(config.StreamConfig{MaxConcurrency: 3, BatchSize: 50}, newFakeSource(12), &fakeParser{perFile: 10})

	var batches []Batch
	var progress []Progress
	res, err := proc.Process(context.Background(), "root", scanner.Options{},
		func(b Batch) error {
			batches = append(batches, b)
			return nil
		},
		func(p Progress) {
			progress = append(progress, p)
		})
	require.NoError(t, err)

	assert.Equal(t, 12, res.FilesProcessed)
	assert.Equal(t, 120, res.ModulesFound)
	assert.Equal(t, 3, res.Batches)
	assert.Zero(t, res.ParseErrors)

	require.Len(t, batches, 3)
	var files []string
	for i, b := range batches {
		assert.Equal(t, i, b.Index)
		files = append(files, b.Files...)
	}
	assert.Len(t, batches[0].Modules, 50)
	assert.Len(t, batches[1].Modules, 50)
	assert.Len(t, batches[2].Modules, 20)

	sort.Strings(files)
	assert.Len(t, files, 12)
	assert.Equal(t, "src/f00.go", files[0])

	require.Len(t, progress, 12)
	last := progress[len(progress)-1]
	assert.Equal(t, 12, last.FilesProcessed)
	assert.Equal(t, 12, last.TotalFiles)
	assert.Equal(t, float64(100), last.Percent())
}

func TestProcess_RecoversParseErrors(t *testing.T) {
	fp := &fakeParser{
		perFile: 2,
		fail: map[string]error{
			"src/f01.go": model.NewError(model.ErrParse, "unexpected token"),
			"src/f03.go": model.NewError(model.ErrFileAccess, "permission denied"),
		},
	}
	proc := newTestProcessor(config.StreamConfig{BatchSize: 50}, newFakeSource(5), fp)

	var flushed int
	res, err := proc.Process(context.Background(), "root", scanner.Options{}, func(b Batch) error {
		flushed += len(b.Modules)
		return nil
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, res.FilesProcessed)
	assert.Equal(t, 2, res.ParseErrors)
	assert.Equal(t, 6, res.ModulesFound)
	assert.Equal(t, 6, flushed)
	assert.Equal(t, 1, res.Batches)
}

func TestProcess_NonRecoverableParseErrorAborts(t *testing.T) {
	fp := &fakeParser{
		perFile: 1,
		fail: map[string]error{
			"src/f02.go": model.NewError(model.ErrFileAccess, "bad permissions").WithRecoverable(false),
		},
	}
	proc := newTestProcessor(config.StreamConfig{BatchSize: 50}, newFakeSource(5), fp)

	_, err := proc.Process(context.Background(), "root", scanner.Options{}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, model.ErrFileAccess, model.CodeOf(err))
}

func TestProcess_BatchErrorAborts(t *testing.T) {
	boom := errors.New("checkpoint store unavailable")
	proc := newTestProcessor(config.StreamConfig{MaxConcurrency: 2, BatchSize: 10}, newFakeSource(20), &fakeParser{perFile: 5})

	var mu sync.Mutex
	calls := 0
	_, err := proc.Process(context.Background(), "root", scanner.Options{}, func(Batch) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, model.ErrUnknown, model.CodeOf(err))
	assert.Equal(t, 2, calls, "no batch is flushed after the failing one")
}

func TestProcess_DeadlineIsTimeout(t *testing.T) {
	proc := newTestProcessor(config.StreamConfig{MaxConcurrency: 2}, newFakeSource(4), &fakeParser{block: true})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := proc.Process(ctx, "root", scanner.Options{}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, model.ErrAnalysisTimeout, model.CodeOf(err))
	assert.False(t, model.IsRecoverable(err))
}

func TestProcess_EmptyStream(t *testing.T) {
	proc := newTestProcessor(config.StreamConfig{}, newFakeSource(0), &fakeParser{perFile: 1})

	called := false
	res, err := proc.Process(context.Background(), "root", scanner.Options{}, func(Batch) error {
		called = true
		return nil
	}, nil)
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, Result{}, res)
}

func TestProcess_WithScannerAndParser(t *testing.T) {
	root := t.TempDir()
	body := "package a\n\nfunc %s(n int) int {\n"
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("F%d", i)
		src := fmt.Sprintf(body, name)
		for j := 0; j < 10; j++ {
			src += "\tn++\n"
		}
		src += "\treturn n\n}\n"
		require.NoError(t, os.WriteFile(filepath.Join(root, name+".go"), []byte(src), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# readme\n"), 0o644))

	p := parser.New(parser.DefaultOptions())
	proc := newTestProcessor(config.StreamConfig{BatchSize: 2}, scanner.New(), p)

	var modules []model.CodeModule
	res, err := proc.Process(context.Background(), root, scanner.Options{Extensions: p.SupportedExtensions()}, func(b Batch) error {
		modules = append(modules, b.Modules...)
		return nil
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.FilesProcessed)
	assert.Equal(t, 3, res.ModulesFound)
	assert.Equal(t, 2, res.Batches)
	assert.Len(t, modules, 3)
}

func TestProcess_ProjectNotFound(t *testing.T) {
	proc := newTestProcessor(config.StreamConfig{}, scanner.New(), &fakeParser{})

	_, err := proc.Process(context.Background(), filepath.Join(t.TempDir(), "missing"), scanner.Options{}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, model.ErrProjectNotFound, model.CodeOf(err))
}

func TestNextBatchSize(t *testing.T) {
	usage := uint64(0)
	monitor := NewMemoryMonitor(100, 0, 0, func() uint64 { return usage })
	proc := NewProcessor(config.StreamConfig{BatchSize: 40, AdaptiveBatching: true}, newFakeSource(0), &fakeParser{}, monitor)

	usage = 90
	assert.Equal(t, 20, proc.nextBatchSize(40))
	assert.Equal(t, minBatchSize, proc.nextBatchSize(12))

	usage = 10
	assert.Equal(t, 50, proc.nextBatchSize(40))
	assert.Equal(t, 80, proc.nextBatchSize(70))

	usage = 60
	assert.Equal(t, 40, proc.nextBatchSize(40))

	proc.cfg.AdaptiveBatching = false
	usage = 90
	assert.Equal(t, 40, proc.nextBatchSize(40))
}
