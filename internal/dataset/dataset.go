package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type Dataset struct {
	Table string
	File  string
}

// Defaults is the fixed CSV pair every session is built from.
var Defaults = []Dataset{
	{Table: "employees", File: "employees.csv"},
	{Table: "purchases", File: "purchases.csv"},
}

type MissingFileError struct {
	Table string
	Path  string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s file not found at: %s", e.Table, e.Path)
}

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Loader struct {
	Dir      string
	Datasets []Dataset
	Logger   *slog.Logger
}

func NewLoader(dir string, logger *slog.Logger) (*Loader, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory %q: %w", dir, err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{Dir: abs, Datasets: Defaults, Logger: logger}, nil
}

// Path returns the absolute, forward-slash path DuckDB reads ds from.
func (l *Loader) Path(ds Dataset) string {
	return filepath.ToSlash(filepath.Join(l.Dir, ds.File))
}

func (l *Loader) Verify() error {
	for _, ds := range l.Datasets {
		path := l.Path(ds)
		info, err := os.Stat(filepath.FromSlash(path))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return &MissingFileError{Table: ds.Table, Path: path}
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory, want a csv file", path)
		}
	}
	return nil
}

// Load materializes every dataset as a table on db. Tables that already
// exist are left untouched.
func (l *Loader) Load(ctx context.Context, db Execer) error {
	l.logDiagnostics(ctx)
	if err := l.Verify(); err != nil {
		return err
	}
	for _, ds := range l.Datasets {
		createSQL := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s AS SELECT * FROM read_csv(%s, header=true, auto_detect=true)`,
			quoteIdent(ds.Table),
			quoteString(l.Path(ds)),
		)
		if _, err := db.ExecContext(ctx, createSQL); err != nil {
			return fmt.Errorf("create table %q: %w", ds.Table, err)
		}
	}
	return nil
}

func (l *Loader) logDiagnostics(ctx context.Context) {
	if !l.Logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	attrs := []any{slog.String("data_dir", l.Dir)}
	for _, ds := range l.Datasets {
		path := l.Path(ds)
		_, err := os.Stat(filepath.FromSlash(path))
		attrs = append(attrs, slog.Group(ds.Table,
			slog.String("path", path),
			slog.Bool("exists", err == nil),
		))
	}
	if wd, err := os.Getwd(); err == nil {
		attrs = append(attrs, slog.String("working_dir", wd))
	}
	if entries, err := os.ReadDir(l.Dir); err == nil {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		attrs = append(attrs, slog.Any("dir_contents", names))
	}
	l.Logger.DebugContext(ctx, "dataset file access", attrs...)
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
