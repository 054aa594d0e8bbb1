package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redundancy-analyzer/src/model"
)

func loc(path string) model.CodeLocation {
	return model.CodeLocation{FilePath: path, StartLine: 1, EndLine: 20}
}

func pair(id string, a, b string, sev model.Severity, score float64) model.RedundancyFinding {
	return model.RedundancyFinding{
		ID:                 id,
		Type:               model.FindingSimilarLogic,
		Severity:           sev,
		PrimaryLocation:    loc(a),
		DuplicateLocations: []model.CodeLocation{loc(b)},
		SimilarityScore:    score,
		ImpactScore:        model.ImpactScore{Scale: 40, Risk: 2, Quality: 100 - score},
		Recommendation:     "merge",
		EstimatedSavings:   20,
	}
}

func TestConsolidate_Empty(t *testing.T) {
	out := Consolidate(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestConsolidate_ChainMergesIntoOne(t *testing.T) {
	findings := []model.RedundancyFinding{
		pair("ab", "a.js", "b.js", model.SeverityMedium, 85),
		pair("bc", "b.js", "c.js", model.SeverityHigh, 95),
	}

	out := Consolidate(findings)
	require.Len(t, out, 1)

	f := out[0]
	assert.Equal(t, "bc", f.ID, "the most severe member is the base")
	assert.Equal(t, "b.js", f.PrimaryLocation.FilePath)
	require.Len(t, f.DuplicateLocations, 2)
	assert.Equal(t, "a.js", f.DuplicateLocations[0].FilePath)
	assert.Equal(t, "c.js", f.DuplicateLocations[1].FilePath)
	assert.Equal(t, 40, f.EstimatedSavings)
	assert.Equal(t, 80.0, f.ImpactScore.Scale)
	assert.Equal(t, 4.0, f.ImpactScore.Risk)
	assert.Equal(t, 5.0, f.ImpactScore.Quality)
	assert.NoError(t, f.Validate())
}

func TestConsolidate_DisjointGroupsStaySeparate(t *testing.T) {
	findings := []model.RedundancyFinding{
		pair("ab", "a.js", "b.js", model.SeverityLow, 75),
		pair("cd", "c.js", "d.js", model.SeverityLow, 75),
		pair("ae", "a.js", "e.js", model.SeverityLow, 78),
	}

	out := Consolidate(findings)
	require.Len(t, out, 2)
	assert.Equal(t, "ae", out[0].ID)
	assert.Len(t, out[0].DuplicateLocations, 2)
	assert.Equal(t, "cd", out[1].ID)
	assert.Equal(t, 20, out[1].EstimatedSavings)
}
