package query

import (
	"context"
	"time"
)

// Result is one query's output. Rows are indexed contiguously from zero in
// the order DuckDB produced them.
type Result struct {
	Columns     []string
	ColumnTypes []string
	Rows        [][]any
	Duration    time.Duration
}

type Engine interface {
	Execute(ctx context.Context, sql string) (Result, error)
}
