package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/util"
)

const execSQLPath = "/rest/v1/rpc/exec_sql"

// RESTSource introspects a Postgres schema through a PostgREST exec_sql
// function, as exposed by Supabase projects
type RESTSource struct {
	baseURL       string
	apiKey        string
	schema        string
	httpClient    *http.Client
	retryOnStatus []int
}

// execSQLRequest is the body of an exec_sql call
type execSQLRequest struct {
	SQL string `json:"sql"`
}

// NewRESTSource creates a REST schema source
func NewRESTSource(cfg config.DatabaseConfig) *RESTSource {
	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}
	return &RESTSource{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		schema:  schema,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryOnStatus: cfg.RetryOnStatus,
	}
}

// Name returns the source name
func (s *RESTSource) Name() string {
	return "rest"
}

// Tables lists base tables of the configured schema
func (s *RESTSource) Tables(ctx context.Context) ([]TableInfo, error) {
	schema := quoteLiteral(s.schema)

	rows, err := s.execSQL(ctx, fmt.Sprintf(`SELECT table_name FROM information_schema.tables
WHERE table_schema = %s AND table_type = 'BASE TABLE' ORDER BY table_name`, schema))
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*TableInfo, len(rows))
	tables := make([]TableInfo, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, TableInfo{Name: stringField(row, "table_name"), RowCount: -1})
	}
	for i := range tables {
		byName[tables[i].Name] = &tables[i]
	}

	rows, err = s.execSQL(ctx, fmt.Sprintf(`SELECT table_name, column_name FROM information_schema.columns
WHERE table_schema = %s ORDER BY table_name, ordinal_position`, schema))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if t := byName[stringField(row, "table_name")]; t != nil {
			t.Columns = append(t.Columns, stringField(row, "column_name"))
		}
	}

	rows, err = s.execSQL(ctx, fmt.Sprintf(`SELECT tc.table_name, kcu.column_name,
  ccu.table_name AS ref_table, ccu.column_name AS ref_column
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = %s
ORDER BY tc.table_name, kcu.column_name`, schema))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if t := byName[stringField(row, "table_name")]; t != nil {
			t.ForeignKeys = append(t.ForeignKeys, model.ForeignKey{
				Column:    stringField(row, "column_name"),
				RefTable:  stringField(row, "ref_table"),
				RefColumn: stringField(row, "ref_column"),
			})
		}
	}

	// Row counts come from planner statistics and are optional
	rows, err = s.execSQL(ctx, fmt.Sprintf(`SELECT relname AS table_name, n_live_tup AS row_count
FROM pg_stat_user_tables WHERE schemaname = %s`, schema))
	if err != nil {
		util.Warn("Row counts unavailable for schema %s: %v", s.schema, err)
	} else {
		for _, row := range rows {
			if t := byName[stringField(row, "table_name")]; t != nil {
				if n, ok := row["row_count"].(float64); ok {
					t.RowCount = int64(n)
				}
			}
		}
	}

	sortTables(tables)
	util.Debug("REST schema %s: %d tables", s.schema, len(tables))
	return tables, nil
}

func (s *RESTSource) execSQL(ctx context.Context, query string) ([]map[string]any, error) {
	jsonBody, err := json.Marshal(execSQLRequest{SQL: query})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+execSQLPath, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, model.WrapError(model.ErrInvalidOptions, err, "creating request").WithRecoverable(false)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, model.WrapError(model.ErrNetwork, err, "executing request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		return nil, model.WrapError(model.ErrNetwork, apiErr, "exec_sql").
			With("status", resp.StatusCode).
			WithRecoverable(s.shouldRetry(resp.StatusCode))
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, model.WrapError(model.ErrDatabase, err, "decoding exec_sql response").WithRecoverable(false)
	}
	return rows, nil
}

func (s *RESTSource) shouldRetry(status int) bool {
	for _, code := range s.retryOnStatus {
		if status == code {
			return true
		}
	}
	return false
}

// APIError represents an error response from the REST endpoint
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("REST error (status %d): %s", e.StatusCode, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func stringField(row map[string]any, key string) string {
	v, _ := row[key].(string)
	return v
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
