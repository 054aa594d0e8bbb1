package schema

import (
	"context"
	"sort"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
)

// TableInfo is what a schema source knows about one table. RowCount is -1
// when the source cannot count rows.
type TableInfo struct {
	Name        string
	Columns     []string
	RowCount    int64
	ForeignKeys []model.ForeignKey
}

// Source supplies the table list of the analyzed database
type Source interface {
	Name() string
	Tables(ctx context.Context) ([]TableInfo, error)
}

// NewSource builds the source selected by cfg.Driver. An empty driver yields
// a nil source, which the mapper treats as "no schema available".
func NewSource(cfg config.DatabaseConfig) (Source, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		return NewSQLiteSource(cfg.DSN), nil
	case "rest":
		return NewRESTSource(cfg), nil
	case "static":
		return NewStaticSource(cfg.Tables), nil
	}
	return nil, model.NewError(model.ErrInvalidOptions, "unknown database driver %q", cfg.Driver)
}

func sortTables(tables []TableInfo) {
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
}

