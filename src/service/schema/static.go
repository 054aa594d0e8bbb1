package schema

import (
	"context"
	"strings"
)

// StaticSource serves table names listed in configuration
type StaticSource struct {
	tables []string
}

// NewStaticSource creates a source over a fixed table list
func NewStaticSource(tables []string) *StaticSource {
	return &StaticSource{tables: tables}
}

// Name returns the source name
func (s *StaticSource) Name() string {
	return "static"
}

// Tables returns one entry per distinct, non-blank configured name
func (s *StaticSource) Tables(ctx context.Context) ([]TableInfo, error) {
	seen := make(map[string]bool, len(s.tables))
	out := make([]TableInfo, 0, len(s.tables))
	for _, name := range s.tables {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, TableInfo{Name: name, RowCount: -1})
	}
	sortTables(out)
	return out, nil
}
