package detector

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/parser"
	"redundancy-analyzer/src/util"
)

// Score weights, in percent
const (
	structuralWeight = 40
	nameWeight       = 20
	sizeWeight       = 10
	astWeight        = 30
)

// CompareOptions tunes how two modules are scored
type CompareOptions struct {
	Threshold           float64
	IgnoreWhitespace    bool
	IgnoreComments      bool
	IgnoreVariableNames bool
}

// Compare scores two modules 0-100. Modules of different types score 0.
func Compare(a, b model.CodeModule, opts CompareOptions) float64 {
	if a.Type != b.Type {
		return 0
	}
	return weighted(
		structuralSimilarity(a, b, opts),
		nameSimilarity(a.ModuleName, b.ModuleName, opts.IgnoreVariableNames),
		sizeSimilarity(a, b),
		astSimilarity(a, b),
	)
}

func weighted(structural, name, size, ast float64) float64 {
	score := (structural*structuralWeight + name*nameWeight + size*sizeWeight + ast*astWeight) / 100
	return math.Round(score*100) / 100
}

func normalizeDigest(digest string, opts CompareOptions) string {
	if opts.IgnoreWhitespace {
		digest = strings.ReplaceAll(digest, string(parser.LayoutMarker), "")
	}
	if opts.IgnoreComments {
		digest = strings.ReplaceAll(digest, string(parser.CommentMarker), "")
	}
	return digest
}

// structuralSimilarity is the normalized edit distance between digests,
// counted in node kinds
func structuralSimilarity(a, b model.CodeModule, opts CompareOptions) float64 {
	da, db := normalizeDigest(a.SimplifiedAST, opts), normalizeDigest(b.SimplifiedAST, opts)
	if da == db {
		return 100
	}
	la, lb := len([]rune(da)), len([]rune(db))
	longest := max(la, lb)
	dist := edlib.LevenshteinDistance(da, db)
	return (1 - float64(dist)/float64(longest)) * 100
}

// structuralBound is the best structural score two digests of these lengths
// can reach, since the edit distance is at least the length difference
func structuralBound(a, b model.CodeModule, opts CompareOptions) float64 {
	la, lb := len([]rune(normalizeDigest(a.SimplifiedAST, opts))), len([]rune(normalizeDigest(b.SimplifiedAST, opts)))
	return ratio(float64(min(la, lb)), float64(max(la, lb)))
}

func nameSimilarity(a, b string, ignoreNames bool) float64 {
	if ignoreNames {
		return 100
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 80
	}

	ra, rb := []rune(a), []rune(b)
	prefix := 0
	for prefix < len(ra) && prefix < len(rb) && ra[prefix] == rb[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(ra)-prefix && suffix < len(rb)-prefix && ra[len(ra)-1-suffix] == rb[len(rb)-1-suffix] {
		suffix++
	}
	return float64(prefix+suffix) / float64(max(len(ra), len(rb))) * 100
}

func sizeSimilarity(a, b model.CodeModule) float64 {
	la, lb := float64(a.Metrics.LinesOfCode), float64(b.Metrics.LinesOfCode)
	return ratio(math.Min(la, lb), math.Max(la, lb))
}

func astSimilarity(a, b model.CodeModule) float64 {
	ca, cb := float64(a.Metrics.CyclomaticComplexity), float64(b.Metrics.CyclomaticComplexity)
	da, db := float64(a.Metrics.DependencyCount), float64(b.Metrics.DependencyCount)
	return (ratio(math.Min(ca, cb), math.Max(ca, cb)) + ratio(math.Min(da, db), math.Max(da, db))) / 2
}

// ratio is lo/hi as a percentage, 100 when both are zero
func ratio(lo, hi float64) float64 {
	if hi == 0 {
		return 100
	}
	return lo / hi * 100
}

// SimilarityDetector finds duplicated and near-duplicated modules by
// exhaustive pairwise comparison
type SimilarityDetector struct {
	BaseDetector
	cfg config.SimilarityDetectorConfig
}

// NewSimilarityDetector creates a new similarity detector
func NewSimilarityDetector(base BaseDetector, cfg config.SimilarityDetectorConfig) *SimilarityDetector {
	return &SimilarityDetector{
		BaseDetector: base,
		cfg:          cfg,
	}
}

// Name returns the detector name
func (d *SimilarityDetector) Name() string {
	return "similarity"
}

// IsEnabled returns whether the detector is enabled
func (d *SimilarityDetector) IsEnabled() bool {
	return d.cfg.Enabled
}

// Covers returns true for every focus except database
func (d *SimilarityDetector) Covers(focus model.Focus) bool {
	return focus.IncludesCode()
}

// firstModules returns the first n modules by location, independent of the
// order they were parsed in
func firstModules(modules []model.CodeModule, n int) []model.CodeModule {
	sorted := append([]model.CodeModule(nil), modules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FilePath != sorted[j].FilePath {
			return sorted[i].FilePath < sorted[j].FilePath
		}
		return sorted[i].StartLine < sorted[j].StartLine
	})
	return sorted[:n]
}

// Options returns the compare options derived from configuration
func (d *SimilarityDetector) Options() CompareOptions {
	return CompareOptions{
		Threshold:           d.cfg.Threshold,
		IgnoreWhitespace:    d.cfg.IgnoreWhitespace,
		IgnoreComments:      d.cfg.IgnoreComments,
		IgnoreVariableNames: d.cfg.IgnoreVariableNames,
	}
}

// Detect compares every pair of same-typed modules and reports those at or
// above the threshold, consolidated into groups
func (d *SimilarityDetector) Detect(ctx context.Context, in Input) ([]model.RedundancyFinding, error) {
	modules := in.Modules
	if in.Focus == model.FocusAPI {
		modules = d.apiModules(modules)
	}
	if limit := d.cfg.MaxModulesToCheck; limit > 0 && len(modules) > limit {
		util.Warn("Similarity detector: comparing only the first %d of %d modules (max_modules_to_check)", limit, len(modules))
		modules = firstModules(modules, limit)
	}
	if len(modules) < 2 {
		return []model.RedundancyFinding{}, nil
	}

	opts := d.Options()
	workers := d.Cfg.Detectors.MaxParallel
	if workers <= 0 {
		workers = 1
	}

	// one result slot per module keeps the output order independent of scheduling
	results := make([][]model.RedundancyFinding, len(modules))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	util.Debug("Similarity detector: comparing %d modules with %d workers", len(modules), workers)

	for i := range modules {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			for j := i + 1; j < len(modules); j++ {
				if ctx.Err() != nil {
					return
				}
				if f, ok := d.comparePair(modules[i], modules[j], opts); ok {
					results[i] = append(results[i], f)
				}
			}
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var pairs []model.RedundancyFinding
	for _, r := range results {
		pairs = append(pairs, r...)
	}
	util.Debug("Similarity detector: %d pairs at or above %.0f", len(pairs), opts.Threshold)

	findings := Consolidate(pairs)
	if in.Focus == model.FocusAPI {
		for i := range findings {
			findings[i].Type = model.FindingDuplicateAPI
			findings[i].Recommendation = Recommendation(model.FindingDuplicateAPI, findings[i].ModuleName)
		}
	}
	return findings, nil
}

func (d *SimilarityDetector) apiModules(modules []model.CodeModule) []model.CodeModule {
	var out []model.CodeModule
	for _, m := range modules {
		if d.IsAPIModule(m) {
			out = append(out, m)
		}
	}
	return out
}

// comparePair scores one pair and turns it into a finding when it passes
func (d *SimilarityDetector) comparePair(a, b model.CodeModule, opts CompareOptions) (model.RedundancyFinding, bool) {
	if a.Type != b.Type || a.Overlaps(b) {
		return model.RedundancyFinding{}, false
	}

	name := nameSimilarity(a.ModuleName, b.ModuleName, opts.IgnoreVariableNames)
	size := sizeSimilarity(a, b)
	ast := astSimilarity(a, b)
	if weighted(structuralBound(a, b, opts), name, size, ast) < opts.Threshold {
		return model.RedundancyFinding{}, false
	}

	score := weighted(structuralSimilarity(a, b, opts), name, size, ast)
	if score < opts.Threshold {
		return model.RedundancyFinding{}, false
	}
	return d.pairFinding(a, b, score), true
}

func (d *SimilarityDetector) pairFinding(a, b model.CodeModule, score float64) model.RedundancyFinding {
	t := model.FindingSimilarLogic
	if score == 100 {
		t = model.FindingExactDuplicate
	}

	f := d.NewFinding(t, a.Location())
	f.ModuleName = a.ModuleName
	f.DuplicateLocations = []model.CodeLocation{b.Location()}
	f.SimilarityScore = score
	f.Severity = similaritySeverity(score)
	f.ImpactScore = model.ImpactScore{
		Scale:   float64(a.Metrics.LinesOfCode + b.Metrics.LinesOfCode),
		Risk:    float64(a.Metrics.DependencyCount + b.Metrics.DependencyCount),
		Quality: 100 - score,
	}
	f.EstimatedSavings = min(a.Metrics.LinesOfCode, b.Metrics.LinesOfCode)
	f.Recommendation = Recommendation(t, a.ModuleName)
	return f
}

func similaritySeverity(score float64) model.Severity {
	switch {
	case score > 90:
		return model.SeverityHigh
	case score > 80:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}
