package detector

import (
	"context"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/metrics"
	"redundancy-analyzer/src/util"
)

// TableDetector turns abandoned table mappings into findings
type TableDetector struct {
	BaseDetector
	cfg config.TableDetectorConfig
}

// NewTableDetector creates a new abandoned table detector
func NewTableDetector(base BaseDetector, cfg config.TableDetectorConfig) *TableDetector {
	return &TableDetector{
		BaseDetector: base,
		cfg:          cfg,
	}
}

// Name returns the detector name
func (d *TableDetector) Name() string {
	return "abandoned_tables"
}

// IsEnabled returns whether the detector is enabled
func (d *TableDetector) IsEnabled() bool {
	return d.cfg.Enabled
}

// Covers returns true when the schema is part of the run
func (d *TableDetector) Covers(focus model.Focus) bool {
	return focus.IncludesDatabase() || focus == ""
}

// Detect reports every mapping marked abandoned
func (d *TableDetector) Detect(ctx context.Context, in Input) ([]model.RedundancyFinding, error) {
	findings := []model.RedundancyFinding{}
	for _, t := range in.Tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !t.IsAbandoned {
			continue
		}
		findings = append(findings, d.tableFinding(t))
	}
	util.Debug("Table detector: %d abandoned of %d tables", len(findings), len(in.Tables))
	return findings, nil
}

func (d *TableDetector) tableFinding(t model.DatabaseTableMapping) model.RedundancyFinding {
	f := d.NewFinding(model.FindingAbandonedTable, model.CodeLocation{
		FilePath: "schema://" + t.TableName,
		Snippet:  "table " + t.TableName,
	})
	f.ModuleName = t.TableName
	if len(t.References) > 0 {
		f.DuplicateLocations = append(f.DuplicateLocations, t.References...)
	} else {
		f.DuplicateLocations = append(f.DuplicateLocations, model.CodeLocation{
			FilePath: d.schemaSource(),
			Snippet:  "definition of table " + t.TableName,
		})
	}
	f.ImpactScore = metrics.CalculateTableImpact(t)
	f.Severity = model.DeriveSeverity(f.ImpactScore)
	f.Recommendation = Recommendation(model.FindingAbandonedTable, t.TableName)
	return f
}

// schemaSource names where table definitions were read from
func (d *TableDetector) schemaSource() string {
	db := d.Cfg.Database
	switch db.Driver {
	case "sqlite":
		return db.DSN
	case "rest":
		return db.URL
	}
	return "config://database.tables"
}
