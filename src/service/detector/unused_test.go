package detector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redundancy-analyzer/src/model"
)

func withDeps(m model.CodeModule, deps ...string) model.CodeModule {
	m.Dependencies = deps
	m.Metrics.DependencyCount = len(deps)
	return m
}

func unusedNames(findings []model.RedundancyFinding) []string {
	names := make([]string, 0, len(findings))
	for _, f := range findings {
		names = append(names, f.ModuleName)
	}
	return names
}

func TestUnusedCodeDetector(t *testing.T) {
	exported := testModule("lib/api.go", "Serve", 1, 20, "a")
	exported.Exported = true

	modules := []model.CodeModule{
		withDeps(testModule("main.go", "main", 1, 20, "a"), "helper", "util.Format"),
		testModule("helper.go", "helper", 1, 20, "a"),
		testModule("util/format.go", "Format", 1, 20, "a"),
		withDeps(testModule("orphan.go", "orphan", 1, 20, "a"), "orphan"),
		testModule("store.go", "Store.Get", 1, 20, "a"),
		testModule("x_test.go", "TestThing", 1, 20, "a"),
		exported,
	}
	cfg := testConfig()
	d := NewUnusedCodeDetector(NewBaseDetector(cfg), cfg.Detectors.DeadCode)

	findings, err := d.Detect(context.Background(), Input{Modules: modules})
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan"}, unusedNames(findings))

	f := findings[0]
	assert.Equal(t, model.FindingUnusedCode, f.Type)
	assert.Empty(t, f.DuplicateLocations)
	assert.Equal(t, 20, f.EstimatedSavings)
	assert.Equal(t, model.SeverityLow, f.Severity)
	assert.NoError(t, f.Validate())

	cfg.Detectors.DeadCode.IncludeExported = true
	d = NewUnusedCodeDetector(NewBaseDetector(cfg), cfg.Detectors.DeadCode)
	findings, err = d.Detect(context.Background(), Input{Modules: modules})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"orphan", "Serve"}, unusedNames(findings))
}

func TestUnusedCodeDetector_Covers(t *testing.T) {
	cfg := testConfig()
	d := NewUnusedCodeDetector(NewBaseDetector(cfg), cfg.Detectors.DeadCode)

	assert.True(t, d.Covers(model.FocusAll))
	assert.True(t, d.Covers(model.FocusCode))
	assert.False(t, d.Covers(model.FocusAPI))
	assert.False(t, d.Covers(model.FocusDatabase))
}

type fixedQuality float64

func (q fixedQuality) ModuleQuality(model.CodeModule) float64 { return float64(q) }

func TestUnusedCodeDetector_UsesModuleQuality(t *testing.T) {
	cfg := testConfig()
	d := NewUnusedCodeDetector(NewBaseDetector(cfg), cfg.Detectors.DeadCode)
	modules := []model.CodeModule{testModule("orphan.go", "orphan", 1, 20, "a")}

	findings, err := d.Detect(context.Background(), Input{Modules: modules, Quality: fixedQuality(60)})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, 60.0, findings[0].ImpactScore.Quality)
	assert.Equal(t, model.SeverityMedium, findings[0].Severity)
}
