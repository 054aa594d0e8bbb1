package detector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/util"
)

// Runner manages and runs all detectors.
// It handles detector registration, parallel execution, and result aggregation.
type Runner struct {
	detectors []Detector
	cfg       *config.Config
}

// NewRunner creates a new detector runner with all detectors registered
func NewRunner(cfg *config.Config) *Runner {
	base := NewBaseDetector(cfg)

	detectors := []Detector{
		NewSimilarityDetector(base, cfg.Detectors.Similarity),
		NewUnusedCodeDetector(base, cfg.Detectors.DeadCode),
		NewTableDetector(base, cfg.Detectors.Tables),
	}

	util.Debug("Detector runner initialized with %d detectors", len(detectors))
	for _, d := range detectors {
		status := "disabled"
		if d.IsEnabled() {
			status = "enabled"
		}
		util.Debug("  - %s: %s", d.Name(), status)
	}

	return &Runner{
		detectors: detectors,
		cfg:       cfg,
	}
}

// RunAll executes all enabled detectors that cover the input's focus and
// returns their combined, validated findings in a stable order.
//
// Unless FailFast is set, a failing detector does not abort the run: the
// findings of the others are returned together with a recoverable error
// naming every detector that failed.
func (r *Runner) RunAll(ctx context.Context, in Input) ([]model.RedundancyFinding, error) {
	startTime := time.Now()
	util.Info("Starting redundancy detection over %d modules and %d tables", len(in.Modules), len(in.Tables))

	maxParallel := r.cfg.Detectors.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 1
	}

	var (
		allFindings []model.RedundancyFinding
		mu          sync.Mutex
		wg          sync.WaitGroup
		failed      []string
		errChan     = make(chan error, len(r.detectors))
		sem         = make(chan struct{}, maxParallel)
	)

	enabledCount := 0
	for _, d := range r.detectors {
		if !d.IsEnabled() || !d.Covers(in.Focus) {
			util.Debug("Skipping detector: %s", d.Name())
			continue
		}
		enabledCount++

		wg.Add(1)
		go func(detector Detector) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire semaphore
			defer func() { <-sem }() // Release semaphore

			detectorStart := time.Now()
			util.Debug("Running detector: %s", detector.Name())

			findings, err := detector.Detect(ctx, in)
			if err != nil {
				util.Error("Detector %s failed: %v", detector.Name(), err)
				if r.cfg.Detectors.FailFast || ctx.Err() != nil {
					errChan <- fmt.Errorf("detector %s: %w", detector.Name(), err)
					return
				}
				mu.Lock()
				failed = append(failed, fmt.Sprintf("%s: %v", detector.Name(), err))
				mu.Unlock()
				return
			}
			findings = FilterValid(detector.Name(), findings)

			util.Info("Detector %s found %d findings (took %v)", detector.Name(), len(findings), time.Since(detectorStart))

			mu.Lock()
			allFindings = append(allFindings, findings...)
			mu.Unlock()
		}(d)
	}

	util.Debug("Running %d enabled detectors (max parallel: %d)", enabledCount, maxParallel)

	wg.Wait()
	close(errChan)

	// Check for errors
	if err, ok := <-errChan; ok {
		util.Error("Detection aborted due to error: %v", err)
		return nil, err
	}

	SortFindings(allFindings)
	util.Info("Detection complete: %d total findings (took %v)", len(allFindings), time.Since(startTime))
	if allFindings == nil {
		allFindings = []model.RedundancyFinding{}
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		return allFindings, model.NewError(model.ErrUnknown, "%d detectors failed: %s", len(failed), strings.Join(failed, "; ")).
			With("detectors", len(failed)).
			WithRecoverable(true)
	}
	return allFindings, nil
}

// SortFindings orders findings by type, then primary location
func SortFindings(findings []model.RedundancyFinding) {
	rank := make(map[model.FindingType]int, len(model.FindingTypes))
	for i, t := range model.FindingTypes {
		rank[t] = i
	}
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Type != b.Type {
			return rank[a.Type] < rank[b.Type]
		}
		if a.PrimaryLocation.FilePath != b.PrimaryLocation.FilePath {
			return a.PrimaryLocation.FilePath < b.PrimaryLocation.FilePath
		}
		return a.PrimaryLocation.StartLine < b.PrimaryLocation.StartLine
	})
}

// GetDetector returns a detector by name
func (r *Runner) GetDetector(name string) Detector {
	for _, d := range r.detectors {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// ListDetectors returns names of all registered detectors
func (r *Runner) ListDetectors() []string {
	names := make([]string, len(r.detectors))
	for i, d := range r.detectors {
		names[i] = d.Name()
	}
	return names
}
