package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"

	duckdbdriver "github.com/marcboeker/go-duckdb/v2"
)

type TableSchema struct {
	Name    string
	Columns []string
}

// CatalogError reports a query that referenced a missing table or column,
// together with the schema that does exist.
type CatalogError struct {
	Query  string
	Tables []TableSchema
	Err    error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("failed to execute query: %v", e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

func (e *CatalogError) TableNames() []string {
	names := make([]string, 0, len(e.Tables))
	for _, table := range e.Tables {
		names = append(names, table.Name)
	}
	return names
}

type Environment struct {
	GoVersion     string
	DuckDBVersion string
	OS            string
}

type ExecutionError struct {
	Query string
	Env   Environment
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to execute query: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// isCatalogError reports whether err names a table or column that does not
// exist. DuckDB raises missing columns and unknown table qualifiers as binder
// errors.
func isCatalogError(err error) bool {
	var duckErr *duckdbdriver.Error
	if errors.As(err, &duckErr) {
		switch duckErr.Type {
		case duckdbdriver.ErrorTypeCatalog:
			return true
		case duckdbdriver.ErrorTypeBinder:
			if missingBinding(err.Error()) {
				return true
			}
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "Catalog Error") ||
		(strings.Contains(msg, "Binder Error") && missingBinding(msg))
}

func missingBinding(msg string) bool {
	return strings.Contains(msg, "Referenced column") ||
		strings.Contains(msg, "does not have a column named") ||
		strings.Contains(msg, "Referenced table")
}

func catalogSchema(ctx context.Context, db *sql.DB) ([]TableSchema, error) {
	names, err := queryStrings(ctx, db, `SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]TableSchema, 0, len(names))
	for _, name := range names {
		columns, err := queryStrings(ctx, db,
			`SELECT column_name FROM information_schema.columns WHERE table_schema = 'main' AND table_name = ? ORDER BY ordinal_position`,
			name,
		)
		if err != nil {
			return tables, fmt.Errorf("list columns of %q: %w", name, err)
		}
		tables = append(tables, TableSchema{Name: name, Columns: columns})
	}
	return tables, nil
}

// queryStrings drains a single-column result so the connection is free
// before the next statement runs.
func queryStrings(ctx context.Context, db *sql.DB, sqlText string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	values := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

func environment(ctx context.Context, db *sql.DB) Environment {
	env := Environment{
		GoVersion:     runtime.Version(),
		DuckDBVersion: "unknown",
		OS:            runtime.GOOS + "/" + runtime.GOARCH,
	}
	if db == nil {
		return env
	}
	var version string
	if err := db.QueryRowContext(ctx, `SELECT library_version FROM pragma_version()`).Scan(&version); err == nil && version != "" {
		env.DuckDBVersion = version
	}
	return env
}
