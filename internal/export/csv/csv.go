// Package csv writes the row collection as one delimited file: a header row
// equal to the canonical column list, then one line per detail page in
// crawl-discovery order. Embedded separators and quotes are escaped by
// encoding/csv's standard quoting.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"suumoscrape/internal/detail"
	"suumoscrape/internal/export"
)

func init() {
	export.Register("csv", func(_ context.Context, cfg export.Config) (export.Sink, error) {
		return &sink{path: cfg.Path}, nil
	})
}

type sink struct {
	path string
}

// WriteRows writes the file atomically: a temp file in the target directory
// renamed into place on success, so a failed run never leaves a truncated
// output behind.
func (s *sink) WriteRows(_ context.Context, columns []string, rows []*detail.Row) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".suumo-csv-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()

	err = writeAll(tmp, columns, rows)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename output into place: %w", err)
	}
	return nil
}

func writeAll(f *os.File, columns []string, rows []*detail.Row) error {
	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(export.Record(row)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
