package detector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/parser"
)

func TestCompare_MixedTypesScoreZero(t *testing.T) {
	a := testModule("a.js", "load", 1, 20, "abc")
	b := a
	b.FilePath = "b.js"
	b.Type = model.ModuleService

	assert.Equal(t, 0.0, Compare(a, b, CompareOptions{}))
	assert.Equal(t, 0.0, Compare(b, a, CompareOptions{IgnoreVariableNames: true}))
}

func TestCompare_IdenticalModulesScoreHundred(t *testing.T) {
	a := testModule("a.js", "load", 1, 20, "abcdef")
	b := testModule("b.js", "load", 40, 20, "abcdef")

	assert.Equal(t, 100.0, Compare(a, b, CompareOptions{}))
}

func TestCompare_Components(t *testing.T) {
	a := testModule("a.js", "fetchOrders", 1, 20, "abcdefghij")
	b := testModule("b.js", "fetchItems", 1, 10, "abcdefghxy")
	b.Metrics.CyclomaticComplexity = 4
	b.Metrics.DependencyCount = 0

	structural := 80.0
	name := 6.0 / 11.0 * 100
	size := 50.0
	ast := (50.0 + 0.0) / 2

	expected := (structural*40 + name*20 + size*10 + ast*30) / 100
	assert.InDelta(t, expected, Compare(a, b, CompareOptions{}), 0.01)
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 100.0, nameSimilarity("LoadUser", "loaduser", false))
	assert.Equal(t, 80.0, nameSimilarity("getUser", "getUserById", false))
	assert.InDelta(t, 54.55, nameSimilarity("fetchOrders", "fetchItems", false), 0.01)
	assert.Equal(t, 0.0, nameSimilarity("alpha", "zebu", false))
	assert.Equal(t, 0.0, nameSimilarity("", "x", false))
	assert.Equal(t, 100.0, nameSimilarity("alpha", "zeta", true))
}

func TestStructuralSimilarity_IgnoreOptions(t *testing.T) {
	comment := string(parser.CommentMarker)
	layout := string(parser.LayoutMarker)
	a := testModule("a.js", "f", 1, 10, "ab"+layout+"cd")
	b := testModule("b.js", "f", 1, 10, "abc"+comment+"d")

	assert.Less(t, structuralSimilarity(a, b, CompareOptions{}), 100.0)
	assert.Equal(t, 100.0, structuralSimilarity(a, b, CompareOptions{IgnoreWhitespace: true, IgnoreComments: true}))
}

func TestSimilarityDetector_ScenarioIdenticalFiles(t *testing.T) {
	p := parser.New(parser.DefaultOptions())
	src := []byte(identicalJS())

	a, err := p.ParseSource("src/billing/total.js", src, time.Time{})
	require.NoError(t, err)
	b, err := p.ParseSource("src/invoices/total.js", src, time.Time{})
	require.NoError(t, err)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	require.Equal(t, 20, a[0].Metrics.LinesOfCode)

	d := NewSimilarityDetector(NewBaseDetector(testConfig()), testConfig().Detectors.Similarity)
	findings, err := d.Detect(context.Background(), Input{Modules: append(a, b...), Focus: model.FocusAll})
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, model.FindingExactDuplicate, f.Type)
	assert.Equal(t, model.SeverityHigh, f.Severity)
	assert.Equal(t, 20, f.EstimatedSavings)
	assert.Equal(t, 100.0, f.SimilarityScore)
	assert.Equal(t, "src/billing/total.js", f.PrimaryLocation.FilePath)
	require.Len(t, f.DuplicateLocations, 1)
	assert.Equal(t, "src/invoices/total.js", f.DuplicateLocations[0].FilePath)
	assert.NotEmpty(t, f.Recommendation)
	assert.NoError(t, f.Validate())
}

func TestSimilarityDetector_FindingFields(t *testing.T) {
	a := testModule("a.js", "loadUsers", 1, 30, "abcdefghij")
	b := testModule("b.js", "loadUsers", 1, 30, "abcdefghiz")
	cfg := testConfig()
	d := NewSimilarityDetector(NewBaseDetector(cfg), cfg.Detectors.Similarity)

	findings, err := d.Detect(context.Background(), Input{Modules: []model.CodeModule{a, b}})
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	// structural 90 → 36 + 20 + 10 + 30
	assert.Equal(t, 96.0, f.SimilarityScore)
	assert.Equal(t, model.FindingSimilarLogic, f.Type)
	assert.Equal(t, model.SeverityHigh, f.Severity)
	assert.Equal(t, model.ImpactScore{Scale: 60, Risk: 2, Quality: 4}, f.ImpactScore)
	assert.Equal(t, 30, f.EstimatedSavings)
}

func TestSimilarityDetector_ThresholdAndOverlap(t *testing.T) {
	cfg := testConfig()
	cfg.Detectors.Similarity.Threshold = 99
	d := NewSimilarityDetector(NewBaseDetector(cfg), cfg.Detectors.Similarity)

	a := testModule("a.js", "loadUsers", 1, 30, "abcdefghij")
	b := testModule("b.js", "loadUsers", 1, 30, "abcdefghiz")
	findings, err := d.Detect(context.Background(), Input{Modules: []model.CodeModule{a, b}})
	require.NoError(t, err)
	assert.Empty(t, findings, "96 is below a threshold of 99")

	outer := testModule("a.js", "outer", 1, 30, "abc")
	inner := testModule("a.js", "outer", 5, 30, "abc")
	findings, err = d.Detect(context.Background(), Input{Modules: []model.CodeModule{outer, inner}})
	require.NoError(t, err)
	assert.Empty(t, findings, "overlapping modules in one file are not compared")
}

func TestSimilarityDetector_Idempotent(t *testing.T) {
	modules := []model.CodeModule{
		testModule("a.js", "loadUsers", 1, 30, "abcdefghij"),
		testModule("b.js", "loadUsers", 1, 30, "abcdefghiz"),
		testModule("c.js", "saveOrders", 1, 12, "zyxwvu"),
		testModule("d.js", "saveOrder", 1, 12, "zyxwvu"),
		testModule("e.js", "other", 1, 50, "qqqqqqqqqqqqqqqq"),
	}
	cfg := testConfig()
	d := NewSimilarityDetector(NewBaseDetector(cfg), cfg.Detectors.Similarity)

	first, err := d.Detect(context.Background(), Input{Modules: modules})
	require.NoError(t, err)
	second, err := d.Detect(context.Background(), Input{Modules: modules})
	require.NoError(t, err)

	require.Len(t, second, len(first))
	require.NotEmpty(t, first)
	for i := range first {
		assert.Equal(t, first[i].SimilarityScore, second[i].SimilarityScore)
		assert.Equal(t, first[i].PrimaryLocation, second[i].PrimaryLocation)
		assert.Equal(t, first[i].DuplicateLocations, second[i].DuplicateLocations)
		assert.NotEqual(t, first[i].ID, second[i].ID)
	}
}

func TestSimilarityDetector_ModuleCap(t *testing.T) {
	assert.Zero(t, testConfig().Detectors.Similarity.MaxModulesToCheck, "every module is compared by default")

	a := testModule("a.js", "copyA", 1, 20, "abcdef")
	b := testModule("b.js", "copyA", 1, 20, "abcdef")
	c := testModule("c.js", "copyA", 1, 20, "abcdef")
	cfg := testConfig()
	cfg.Detectors.Similarity.MaxModulesToCheck = 2
	d := NewSimilarityDetector(NewBaseDetector(cfg), cfg.Detectors.Similarity)

	for _, order := range [][]model.CodeModule{{c, b, a}, {b, c, a}, {a, b, c}} {
		first := order[0].FilePath
		findings, err := d.Detect(context.Background(), Input{Modules: order})
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, "a.js", findings[0].PrimaryLocation.FilePath)
		require.Len(t, findings[0].DuplicateLocations, 1)
		assert.Equal(t, "b.js", findings[0].DuplicateLocations[0].FilePath)
		assert.Equal(t, first, order[0].FilePath, "input slice is left alone")
	}

	cfg.Detectors.Similarity.MaxModulesToCheck = 0
	d = NewSimilarityDetector(NewBaseDetector(cfg), cfg.Detectors.Similarity)
	findings, err := d.Detect(context.Background(), Input{Modules: []model.CodeModule{c, b, a}})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Len(t, findings[0].DuplicateLocations, 2)
}

func TestSimilarityDetector_APIFocus(t *testing.T) {
	modules := []model.CodeModule{
		testModule("src/api/users.js", "listUsers", 1, 20, "abcdef"),
		testModule("src/routes/users.js", "listUsers", 1, 20, "abcdef"),
		testModule("src/lib/users.js", "listUsers", 1, 20, "abcdef"),
	}
	cfg := testConfig()
	d := NewSimilarityDetector(NewBaseDetector(cfg), cfg.Detectors.Similarity)

	findings, err := d.Detect(context.Background(), Input{Modules: modules, Focus: model.FocusAPI})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, model.FindingDuplicateAPI, findings[0].Type)
	assert.Equal(t, "src/api/users.js", findings[0].PrimaryLocation.FilePath)
	require.Len(t, findings[0].DuplicateLocations, 1)
	assert.Equal(t, "src/routes/users.js", findings[0].DuplicateLocations[0].FilePath)
}

func TestSimilarityDetector_Cancelled(t *testing.T) {
	cfg := testConfig()
	d := NewSimilarityDetector(NewBaseDetector(cfg), cfg.Detectors.Similarity)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Detect(ctx, Input{Modules: []model.CodeModule{
		testModule("a.js", "f", 1, 10, "ab"),
		testModule("b.js", "f", 1, 10, "ab"),
	}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimilaritySeverity(t *testing.T) {
	assert.Equal(t, model.SeverityHigh, similaritySeverity(90.5))
	assert.Equal(t, model.SeverityMedium, similaritySeverity(90))
	assert.Equal(t, model.SeverityMedium, similaritySeverity(85))
	assert.Equal(t, model.SeverityLow, similaritySeverity(80))
}
