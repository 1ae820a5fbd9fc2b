package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/duckmesh/duckask/internal/dataset"
	"github.com/duckmesh/duckask/internal/observability"
	"github.com/duckmesh/duckask/internal/query"
)

// Opener returns a fresh database handle. Engine closes it after each call.
type Opener func() (*sql.DB, error)

func OpenInMemory() (*sql.DB, error) {
	return sql.Open("duckdb", "")
}

type Engine struct {
	Open   Opener
	Loader *dataset.Loader
	Logger *slog.Logger
}

func NewEngine(loader *dataset.Loader, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{Open: OpenInMemory, Loader: loader, Logger: logger}
}

// Execute loads the datasets into a new in-memory database, runs sqlText
// against it and closes the database on every return path.
func (e *Engine) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	if strings.TrimSpace(sqlText) == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if e.Loader == nil {
		return query.Result{}, fmt.Errorf("dataset loader is required")
	}

	start := time.Now()
	result, err := e.execute(ctx, sqlText)
	observability.ObserveQuery(time.Since(start), err)
	if err != nil {
		return query.Result{}, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (e *Engine) execute(ctx context.Context, raw string) (query.Result, error) {
	open := e.Open
	if open == nil {
		open = OpenInMemory
	}
	sqlText := Normalize(raw, e.Loader.Datasets)

	db, err := open()
	if err != nil {
		return query.Result{}, e.executionFailure(ctx, nil, sqlText, fmt.Errorf("open duckdb: %w", err))
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	if err := e.Loader.Load(ctx, db); err != nil {
		return query.Result{}, e.executionFailure(ctx, db, sqlText, err)
	}

	result, err := collect(ctx, db, sqlText)
	if err != nil {
		if isCatalogError(err) {
			return query.Result{}, e.catalogFailure(ctx, db, sqlText, err)
		}
		return query.Result{}, e.executionFailure(ctx, db, sqlText, err)
	}
	return result, nil
}

func collect(ctx context.Context, db *sql.DB, sqlText string) (query.Result, error) {
	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}
	columnTypes := make([]string, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, columnType := range types {
			columnTypes[i] = columnType.DatabaseTypeName()
		}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, err
	}

	return query.Result{
		Columns:     columns,
		ColumnTypes: columnTypes,
		Rows:        resultRows,
	}, nil
}

func (e *Engine) catalogFailure(ctx context.Context, db *sql.DB, sqlText string, cause error) error {
	tables, schemaErr := catalogSchema(ctx, db)
	catalogErr := &CatalogError{Query: sqlText, Tables: tables, Err: cause}

	attrs := []any{
		slog.String("query", sqlText),
		slog.String("error", cause.Error()),
		slog.Any("available_tables", catalogErr.TableNames()),
	}
	for _, table := range tables {
		attrs = append(attrs, slog.Any("columns_in_"+table.Name, table.Columns))
	}
	if schemaErr != nil {
		attrs = append(attrs, slog.String("schema_error", schemaErr.Error()))
	}
	e.Logger.ErrorContext(ctx, "query catalog error", attrs...)
	return catalogErr
}

func (e *Engine) executionFailure(ctx context.Context, db *sql.DB, sqlText string, cause error) error {
	env := environment(ctx, db)
	e.Logger.ErrorContext(ctx, "query execution failed",
		slog.String("query", sqlText),
		slog.String("error_type", errorType(cause)),
		slog.String("error", cause.Error()),
		slog.String("go_version", env.GoVersion),
		slog.String("duckdb_version", env.DuckDBVersion),
		slog.String("os", env.OS),
	)
	return &ExecutionError{Query: sqlText, Env: env, Err: cause}
}

func errorType(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
