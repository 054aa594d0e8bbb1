package detector

import (
	"context"
	"strings"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/metrics"
	"redundancy-analyzer/src/util"
)

// UnusedCodeDetector reports modules no other module depends on
type UnusedCodeDetector struct {
	BaseDetector
	cfg         config.DeadCodeDetectorConfig
	entryPoints *util.NameMatcher
}

// NewUnusedCodeDetector creates a new unused code detector
func NewUnusedCodeDetector(base BaseDetector, cfg config.DeadCodeDetectorConfig) *UnusedCodeDetector {
	return &UnusedCodeDetector{
		BaseDetector: base,
		cfg:          cfg,
		entryPoints:  util.NewNameMatcher(cfg.EntryPoints, cfg.EntryPointPatterns),
	}
}

// Name returns the detector name
func (d *UnusedCodeDetector) Name() string {
	return "unused_code"
}

// IsEnabled returns whether the detector is enabled
func (d *UnusedCodeDetector) IsEnabled() bool {
	return d.cfg.Enabled
}

// Covers returns true for whole-codebase runs
func (d *UnusedCodeDetector) Covers(focus model.Focus) bool {
	return focus == model.FocusAll || focus == model.FocusCode || focus == ""
}

// Detect reports modules whose name appears in no other module's dependencies
func (d *UnusedCodeDetector) Detect(ctx context.Context, in Input) ([]model.RedundancyFinding, error) {
	// name -> ids of modules referencing it
	referrers := make(map[string]map[string]bool)
	refer := func(name, id string) {
		if referrers[name] == nil {
			referrers[name] = make(map[string]bool)
		}
		referrers[name][id] = true
	}
	for _, m := range in.Modules {
		for _, dep := range m.Dependencies {
			refer(dep, m.ID)
			if i := strings.LastIndex(dep, "."); i >= 0 {
				refer(dep[i+1:], m.ID)
			}
		}
	}

	findings := []model.RedundancyFinding{}
	skipped := 0
	for _, m := range in.Modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.skip(m) {
			skipped++
			continue
		}
		if referencedByOthers(referrers[m.ModuleName], m.ID) {
			continue
		}
		findings = append(findings, d.unusedFinding(m, in.Quality))
	}

	util.Debug("Unused code detector: %d unused of %d modules (%d skipped)", len(findings), len(in.Modules), skipped)
	return findings, nil
}

// skip excludes entry points, exported API and methods, which are reached
// through their receiver rather than by name
func (d *UnusedCodeDetector) skip(m model.CodeModule) bool {
	if strings.Contains(m.ModuleName, ".") {
		return true
	}
	if m.Exported && !d.cfg.IncludeExported {
		return true
	}
	return d.entryPoints.Matches(m.ModuleName)
}

func referencedByOthers(ids map[string]bool, self string) bool {
	for id := range ids {
		if id != self {
			return true
		}
	}
	return false
}

func (d *UnusedCodeDetector) unusedFinding(m model.CodeModule, q metrics.QualityScorer) model.RedundancyFinding {
	f := d.NewFinding(model.FindingUnusedCode, m.Location())
	f.ModuleName = m.ModuleName
	f.ImpactScore = metrics.CalculateImpactMetrics(m, nil, q)
	f.Severity = model.DeriveSeverity(f.ImpactScore)
	f.EstimatedSavings = m.Metrics.LinesOfCode
	f.Recommendation = Recommendation(model.FindingUnusedCode, m.ModuleName)
	return f
}
