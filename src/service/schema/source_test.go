package schema

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
)

func TestNewSource(t *testing.T) {
	src, err := NewSource(config.DatabaseConfig{})
	require.NoError(t, err)
	assert.Nil(t, src)

	for driver, name := range map[string]string{"sqlite": "sqlite", "rest": "rest", "static": "static"} {
		src, err := NewSource(config.DatabaseConfig{Driver: driver})
		require.NoError(t, err)
		assert.Equal(t, name, src.Name())
	}

	_, err = NewSource(config.DatabaseConfig{Driver: "oracle"})
	assert.Equal(t, model.ErrInvalidOptions, model.CodeOf(err))
}

func TestStaticSource(t *testing.T) {
	tables, err := NewStaticSource([]string{"users", " orders ", "", "users"}).Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "orders", tables[0].Name)
	assert.Equal(t, "users", tables[1].Name)
	assert.Equal(t, int64(-1), tables[0].RowCount)
}

func TestSQLiteSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	require.NoError(t, err)
	require.NoError(t, sqlitex.ExecuteScript(conn, `
CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER REFERENCES customers(id), total REAL);
INSERT INTO customers (name) VALUES ('a'), ('b');
`, nil))
	require.NoError(t, conn.Close())

	tables, err := NewSQLiteSource(path).Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)

	customers, orders := tables[0], tables[1]
	assert.Equal(t, "customers", customers.Name)
	assert.Equal(t, []string{"id", "name"}, customers.Columns)
	assert.Equal(t, int64(2), customers.RowCount)

	assert.Equal(t, "orders", orders.Name)
	assert.Equal(t, int64(0), orders.RowCount)
	assert.Equal(t, []model.ForeignKey{{Column: "customer_id", RefTable: "customers", RefColumn: "id"}}, orders.ForeignKeys)
}

func TestSQLiteSource_MissingFile(t *testing.T) {
	_, err := NewSQLiteSource(filepath.Join(t.TempDir(), "missing.db")).Tables(context.Background())
	require.Error(t, err)
	assert.Equal(t, model.ErrDatabase, model.CodeOf(err))
	assert.False(t, model.IsRecoverable(err))
}

func TestRESTSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/exec_sql", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req execSQLRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.SQL, "'public'")

		var rows []map[string]any
		switch {
		case strings.Contains(req.SQL, "FOREIGN KEY"):
			rows = []map[string]any{{"table_name": "orders", "column_name": "customer_id", "ref_table": "customers", "ref_column": "id"}}
		case strings.Contains(req.SQL, "information_schema.columns"):
			rows = []map[string]any{
				{"table_name": "customers", "column_name": "id"},
				{"table_name": "orders", "column_name": "id"},
				{"table_name": "orders", "column_name": "customer_id"},
			}
		case strings.Contains(req.SQL, "information_schema.tables"):
			rows = []map[string]any{{"table_name": "orders"}, {"table_name": "customers"}}
		case strings.Contains(req.SQL, "pg_stat_user_tables"):
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig().Database
	cfg.URL = srv.URL + "/"
	cfg.APIKey = "secret"

	tables, err := NewRESTSource(cfg).Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "customers", tables[0].Name)
	assert.Equal(t, []string{"id", "customer_id"}, tables[1].Columns)
	assert.Equal(t, int64(-1), tables[1].RowCount)
	require.Len(t, tables[1].ForeignKeys, 1)
	assert.Equal(t, "customers", tables[1].ForeignKeys[0].RefTable)
}

func TestRESTSource_StatusErrors(t *testing.T) {
	status := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", status)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig().Database
	cfg.URL = srv.URL
	source := NewRESTSource(cfg)

	_, err := source.Tables(context.Background())
	require.Error(t, err)
	assert.Equal(t, model.ErrNetwork, model.CodeOf(err))
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.True(t, model.IsRecoverable(err))

	status = http.StatusBadRequest
	_, err = source.Tables(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.False(t, model.IsRecoverable(err))
}
