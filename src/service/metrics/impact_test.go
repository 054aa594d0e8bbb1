package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"redundancy-analyzer/src/model"
)

func module(loc, complexity, deps int) model.CodeModule {
	return model.CodeModule{
		ModuleName: "m",
		StartLine:  1,
		EndLine:    loc,
		Metrics: model.ModuleMetrics{
			LinesOfCode:          loc,
			CyclomaticComplexity: complexity,
			DependencyCount:      deps,
		},
	}
}

func TestCalculateImpactMetrics(t *testing.T) {
	t.Run("standalone module", func(t *testing.T) {
		s := CalculateImpactMetrics(module(20, 2, 3), nil, nil)
		assert.Equal(t, model.ImpactScore{Scale: 20, Risk: 1, Quality: 100}, s)
		assert.Equal(t, model.SeverityLow, model.DeriveSeverity(s))
	})

	t.Run("with copies", func(t *testing.T) {
		s := CalculateImpactMetrics(module(20, 2, 3), []model.CodeModule{module(20, 2, 1), module(20, 2, 1)}, nil)
		assert.Equal(t, 60.0, s.Scale)
		assert.InDelta(t, 5.4, s.Risk, 0.001)
		assert.Equal(t, 70.0, s.Quality)
	})

	t.Run("complex module loses quality", func(t *testing.T) {
		s := CalculateImpactMetrics(module(40, 15, 0), nil, nil)
		assert.Equal(t, 90.0, s.Quality)
		assert.Equal(t, 3.0, s.Risk)
	})

	t.Run("huge module is high severity", func(t *testing.T) {
		s := CalculateImpactMetrics(module(800, 1, 0), nil, nil)
		assert.Equal(t, model.SeverityHigh, model.DeriveSeverity(s))
	})

	t.Run("source quality lowers the score", func(t *testing.T) {
		s := CalculateImpactMetrics(module(20, 2, 3), nil, scorer(55))
		assert.Equal(t, 55.0, s.Quality)
		assert.Equal(t, model.SeverityMedium, model.DeriveSeverity(s))
	})

	t.Run("duplication penalty wins when lower", func(t *testing.T) {
		s := CalculateImpactMetrics(module(20, 2, 3), []model.CodeModule{module(20, 2, 1), module(20, 2, 1)}, scorer(90))
		assert.Equal(t, 70.0, s.Quality)
	})
}

type scorer float64

func (s scorer) ModuleQuality(model.CodeModule) float64 { return float64(s) }

func TestCalculateTableImpact(t *testing.T) {
	abandoned := model.DatabaseTableMapping{
		TableName:   "orphan_table",
		Columns:     []string{"id", "name", "created_at"},
		RowCount:    -1,
		ForeignKeys: []model.ForeignKey{{Column: "owner_id", RefTable: "users", RefColumn: "id"}},
		IsAbandoned: true,
	}
	assert.Equal(t, model.ImpactScore{Scale: 50, Risk: 2, Quality: 40}, CalculateTableImpact(abandoned))

	used := model.DatabaseTableMapping{
		TableName:      "orders",
		RowCount:       1000,
		UsageCount:     5,
		CRUDOperations: model.CRUDOperations{Create: true, Read: true},
	}
	s := CalculateTableImpact(used)
	assert.Equal(t, 30.0, s.Scale)
	assert.Equal(t, 5.0, s.Risk)
	assert.Equal(t, 100.0, s.Quality)
}

func TestAggregateMetrics(t *testing.T) {
	assert.Equal(t, 0, AggregateMetrics(nil).TotalFindings)

	findings := []model.RedundancyFinding{
		{Type: model.FindingExactDuplicate, Severity: model.SeverityHigh, EstimatedSavings: 20, ImpactScore: model.ImpactScore{Scale: 40, Risk: 2, Quality: 0}},
		{Type: model.FindingSimilarLogic, Severity: model.SeverityLow, EstimatedSavings: 10, ImpactScore: model.ImpactScore{Scale: 25, Risk: 1, Quality: 25}},
		{Type: model.FindingSimilarLogic, Severity: model.SeverityLow, EstimatedSavings: 5, ImpactScore: model.ImpactScore{Scale: 10, Risk: 0, Quality: 20}},
	}
	agg := AggregateMetrics(findings)

	assert.Equal(t, 3, agg.TotalFindings)
	assert.Equal(t, 1, agg.BySeverity[model.SeverityHigh])
	assert.Equal(t, 2, agg.BySeverity[model.SeverityLow])
	assert.Equal(t, 2, agg.ByType[model.FindingSimilarLogic])
	assert.Equal(t, 75.0, agg.TotalScale)
	assert.Equal(t, 35, agg.TotalSavings)
	assert.Equal(t, 1.0, agg.AverageRisk)
	assert.Equal(t, 15.0, agg.AverageQuality)
}

func TestPrioritizeFindings(t *testing.T) {
	findings := []model.RedundancyFinding{
		{ID: "low", Severity: model.SeverityLow, ImpactScore: model.ImpactScore{Scale: 1000, Risk: 10, Quality: 1}},
		{ID: "high-small", Severity: model.SeverityHigh, ImpactScore: model.ImpactScore{Scale: 10, Risk: 1, Quality: 50}},
		{ID: "medium", Severity: model.SeverityMedium, ImpactScore: model.ImpactScore{Scale: 100, Risk: 5, Quality: 50}},
		{ID: "high-big", Severity: model.SeverityHigh, ImpactScore: model.ImpactScore{Scale: 600, Risk: 2, Quality: 10}},
		{ID: "high-small-2", Severity: model.SeverityHigh, ImpactScore: model.ImpactScore{Scale: 10, Risk: 1, Quality: 50}},
	}

	ordered := PrioritizeFindings(findings)

	ids := make([]string, len(ordered))
	for i, f := range ordered {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{"high-big", "high-small", "high-small-2", "medium", "low"}, ids)
	assert.Equal(t, "low", findings[0].ID, "input is not reordered")
}

func TestEstimateEffort(t *testing.T) {
	tests := []struct {
		name     string
		score    model.ImpactScore
		expected Effort
	}{
		{"small", model.ImpactScore{Scale: 100, Risk: 1, Quality: 90}, EffortSmall},
		{"medium", model.ImpactScore{Scale: 1000, Risk: 10, Quality: 20}, EffortMedium},
		{"large", model.ImpactScore{Scale: 3000, Risk: 20, Quality: 0}, EffortLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EstimateEffort(model.RedundancyFinding{ImpactScore: tt.score}))
		})
	}
}
