package duckdb

import (
	"strings"

	"github.com/duckmesh/duckask/internal/dataset"
)

// Normalize trims sqlText, terminates it with a semicolon and rewrites
// dataset file names to their table names. The rewrite is a plain substring
// replacement and also applies inside string literals.
func Normalize(sqlText string, datasets []dataset.Dataset) string {
	normalized := strings.TrimSpace(sqlText)
	if !strings.HasSuffix(normalized, ";") {
		normalized += ";"
	}
	for _, ds := range datasets {
		normalized = strings.ReplaceAll(normalized, ds.File, ds.Table)
	}
	return normalized
}
