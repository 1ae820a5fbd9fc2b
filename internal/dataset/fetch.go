package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/duckmesh/duckask/internal/storage"
)

type Locator interface {
	Location(key string) string
}

// Fetch copies each dataset file from store into dir so DuckDB can read it
// with read_csv. Objects are keyed by their file name.
func Fetch(ctx context.Context, store storage.ObjectStore, dir string, datasets []Dataset) error {
	if store == nil {
		return fmt.Errorf("object store is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory %q: %w", dir, err)
	}

	for _, ds := range datasets {
		if _, err := store.Stat(ctx, ds.File); err != nil {
			return objectError(store, ds, "stat", err)
		}
		reader, err := store.Get(ctx, ds.File)
		if err != nil {
			return objectError(store, ds, "get", err)
		}

		localPath := filepath.Join(dir, ds.File)
		if err := writeFile(localPath, reader); err != nil {
			_ = reader.Close()
			return fmt.Errorf("write local csv file %q: %w", localPath, err)
		}
		if err := reader.Close(); err != nil {
			return fmt.Errorf("close object %q: %w", ds.File, err)
		}
	}
	return nil
}

func objectError(store storage.ObjectStore, ds Dataset, op string, err error) error {
	if errors.Is(err, storage.ErrObjectNotFound) {
		return &MissingFileError{Table: ds.Table, Path: location(store, ds.File)}
	}
	return fmt.Errorf("%s object %q: %w", op, ds.File, err)
}

func location(store storage.ObjectStore, key string) string {
	if locator, ok := store.(Locator); ok {
		return locator.Location(key)
	}
	return key
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	return copyAndClose(file, reader)
}

// copyAndClose returns the Close error when the copy itself succeeded.
func copyAndClose(dst io.WriteCloser, src io.Reader) error {
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}
