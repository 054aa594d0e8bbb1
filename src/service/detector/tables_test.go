package detector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redundancy-analyzer/src/model"
)

func TestTableDetector(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "data/app.db"
	d := NewTableDetector(NewBaseDetector(cfg), cfg.Detectors.Tables)

	tables := []model.DatabaseTableMapping{
		{TableName: "orphan_table", RowCount: -1, IsAbandoned: true},
		{
			TableName:   "legacy_logs",
			RowCount:    -1,
			UsageCount:  1,
			References:  []model.CodeLocation{{FilePath: "scripts/cleanup.py", StartLine: 4, EndLine: 4}},
			IsAbandoned: true,
		},
		{TableName: "orders", HasRepository: true, RepositoryPath: "src/orderRepository.ts"},
	}

	findings, err := d.Detect(context.Background(), Input{Tables: tables})
	require.NoError(t, err)
	require.Len(t, findings, 2)

	orphan := findings[0]
	assert.Equal(t, model.FindingAbandonedTable, orphan.Type)
	assert.Equal(t, "schema://orphan_table", orphan.PrimaryLocation.FilePath)
	require.Len(t, orphan.DuplicateLocations, 1)
	assert.Equal(t, "data/app.db", orphan.DuplicateLocations[0].FilePath)
	assert.NoError(t, orphan.Validate())

	legacy := findings[1]
	require.Len(t, legacy.DuplicateLocations, 1)
	assert.Equal(t, "scripts/cleanup.py", legacy.DuplicateLocations[0].FilePath)
	assert.NotEmpty(t, legacy.Recommendation)
	assert.NoError(t, legacy.Validate())
}

func TestTableDetector_Covers(t *testing.T) {
	cfg := testConfig()
	d := NewTableDetector(NewBaseDetector(cfg), cfg.Detectors.Tables)

	assert.True(t, d.Covers(model.FocusAll))
	assert.True(t, d.Covers(model.FocusDatabase))
	assert.False(t, d.Covers(model.FocusCode))
	assert.False(t, d.Covers(model.FocusAPI))
}
