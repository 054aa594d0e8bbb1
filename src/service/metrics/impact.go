package metrics

import (
	"math"
	"sort"

	"redundancy-analyzer/src/model"
)

// Effort is a coarse size estimate for fixing a finding
type Effort string

const (
	EffortSmall  Effort = "small"
	EffortMedium Effort = "medium"
	EffortLarge  Effort = "large"
)

// CalculateImpactMetrics scores a module that has the given copies.
// Without duplicates it scores the module on its own, as for unused code.
// Quality is the lower of the duplication-penalized score and the module's
// own quality score from q; a nil q uses the former alone.
func CalculateImpactMetrics(m model.CodeModule, duplicates []model.CodeModule, q QualityScorer) model.ImpactScore {
	scale := float64(m.Metrics.LinesOfCode)
	deps := m.Metrics.DependencyCount
	for _, d := range duplicates {
		scale += float64(d.Metrics.LinesOfCode)
		deps += d.Metrics.DependencyCount
	}

	copies := float64(len(duplicates))
	risk := copies*2 + float64(m.Metrics.CyclomaticComplexity)/5 + float64(deps)/5

	penalty := copies*15 + math.Max(0, float64(m.Metrics.CyclomaticComplexity-10))*2
	quality := clamp(100-penalty, 0, 100)
	if q != nil {
		quality = math.Min(quality, q.ModuleQuality(m))
	}
	return model.ImpactScore{
		Scale:   scale,
		Risk:    round(risk),
		Quality: quality,
	}
}

// CalculateTableImpact scores an unused or under-used table. Wide tables
// with data and relationships cost more to keep around.
func CalculateTableImpact(t model.DatabaseTableMapping) model.ImpactScore {
	scale := 20 + 10*float64(len(t.Columns))
	if t.RowCount > 0 {
		scale += math.Min(float64(t.RowCount)/100, 500)
	}
	risk := 2*float64(len(t.ForeignKeys)) + float64(t.UsageCount)

	quality := 40 + 10*float64(t.UsageCount)
	if !t.IsAbandoned {
		quality += 10 * float64(4-len(t.CRUDOperations.Missing()))
	}
	return model.ImpactScore{
		Scale:   scale,
		Risk:    risk,
		Quality: clamp(quality, 0, 100),
	}
}

// AggregateMetrics summarizes findings for the report
func AggregateMetrics(findings []model.RedundancyFinding) model.AggregateMetrics {
	agg := model.AggregateMetrics{
		TotalFindings: len(findings),
		BySeverity:    make(map[model.Severity]int),
		ByType:        make(map[model.FindingType]int),
	}
	if len(findings) == 0 {
		return agg
	}

	var risk, quality float64
	for _, f := range findings {
		agg.BySeverity[f.Severity]++
		agg.ByType[f.Type]++
		agg.TotalScale += f.ImpactScore.Scale
		agg.TotalSavings += f.EstimatedSavings
		risk += f.ImpactScore.Risk
		quality += f.ImpactScore.Quality
	}
	n := float64(len(findings))
	agg.AverageRisk = round(risk / n)
	agg.AverageQuality = round(quality / n)
	return agg
}

// PrioritizeFindings returns a copy ordered by severity, then by
// scale×risk/quality, highest first. Ties keep their input order.
func PrioritizeFindings(findings []model.RedundancyFinding) []model.RedundancyFinding {
	out := make([]model.RedundancyFinding, len(findings))
	copy(out, findings)
	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank(); ri != rj {
			return ri > rj
		}
		return priorityWeight(out[i].ImpactScore) > priorityWeight(out[j].ImpactScore)
	})
	return out
}

func priorityWeight(s model.ImpactScore) float64 {
	return s.Scale * s.Risk / math.Max(s.Quality, 1)
}

// EstimateEffort buckets the work needed to resolve a finding
func EstimateEffort(f model.RedundancyFinding) Effort {
	s := f.ImpactScore
	v := 0.4*s.Scale/100 + 0.4*s.Risk + 0.2*(100-s.Quality)/10
	switch {
	case v < 5:
		return EffortSmall
	case v < 15:
		return EffortMedium
	default:
		return EffortLarge
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
