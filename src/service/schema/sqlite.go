package schema

import (
	"context"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/util"
)

// SQLiteSource reads the schema of a SQLite database file, read-only
type SQLiteSource struct {
	path string
}

// NewSQLiteSource creates a source for the database at path
func NewSQLiteSource(path string) *SQLiteSource {
	return &SQLiteSource{path: path}
}

// Name returns the source name
func (s *SQLiteSource) Name() string {
	return "sqlite"
}

// Tables lists user tables with their columns, foreign keys and row counts
func (s *SQLiteSource) Tables(ctx context.Context) ([]TableInfo, error) {
	conn, err := sqlite.OpenConn(s.path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, model.WrapError(model.ErrDatabase, err, "open sqlite %s", s.path).WithRecoverable(false)
	}
	defer conn.Close()
	conn.SetInterrupt(ctx.Done())

	var tables []TableInfo
	err = sqlitex.ExecuteTransient(conn,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				tables = append(tables, TableInfo{Name: stmt.ColumnText(0), RowCount: -1})
				return nil
			},
		})
	if err != nil {
		return nil, s.queryError(ctx, err, "list tables")
	}

	for i := range tables {
		t := &tables[i]
		if err := s.describe(conn, t); err != nil {
			return nil, s.queryError(ctx, err, "describe table "+t.Name)
		}
	}

	util.Debug("SQLite schema %s: %d tables", s.path, len(tables))
	return tables, nil
}

func (s *SQLiteSource) describe(conn *sqlite.Conn, t *TableInfo) error {
	err := sqlitex.ExecuteTransient(conn,
		`SELECT name FROM pragma_table_info(?) ORDER BY cid`,
		&sqlitex.ExecOptions{
			Args: []any{t.Name},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				t.Columns = append(t.Columns, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return err
	}

	err = sqlitex.ExecuteTransient(conn,
		`SELECT "from", "table", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`,
		&sqlitex.ExecOptions{
			Args: []any{t.Name},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				t.ForeignKeys = append(t.ForeignKeys, model.ForeignKey{
					Column:    stmt.ColumnText(0),
					RefTable:  stmt.ColumnText(1),
					RefColumn: stmt.ColumnText(2),
				})
				return nil
			},
		})
	if err != nil {
		return err
	}

	return sqlitex.ExecuteTransient(conn,
		`SELECT COUNT(*) FROM `+quoteIdent(t.Name),
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				t.RowCount = stmt.ColumnInt64(0)
				return nil
			},
		})
}

// queryError classifies a failed query; busy and locked databases may be retried
func (s *SQLiteSource) queryError(ctx context.Context, err error, what string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	code := sqlite.ErrCode(err).ToPrimary()
	recoverable := code == sqlite.ResultBusy || code == sqlite.ResultLocked
	return model.WrapError(model.ErrDatabase, err, "sqlite %s", what).
		With("path", s.path).
		WithRecoverable(recoverable)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
