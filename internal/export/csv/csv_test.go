package csv

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"suumoscrape/internal/detail"
	"suumoscrape/internal/export"
)

// TestWriteRows verifies header, row order, null handling, and standard
// quoting of embedded separators.
func TestWriteRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	sink, err := export.Open(context.Background(), "csv", export.Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	full := detail.NewRow("https://example.jp/bukken/a/")
	full.Set(detail.ColumnName, `マンション"A", 品川`)
	full.Set(detail.ColumnPrice, "3980万円")

	nullRow := detail.NewRow("https://example.jp/bukken/b/")

	if err := sink.WriteRows(context.Background(), detail.Columns, []*detail.Row{full, nullRow}); err != nil {
		t.Fatalf("WriteRows: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}
	if records[0][0] != detail.ColumnURL || len(records[0]) != len(detail.Columns) {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][1] != `マンション"A", 品川` {
		t.Fatalf("quoting lost: %q", records[1][1])
	}
	for i, v := range records[2] {
		if detail.Columns[i] == detail.ColumnURL {
			if v != "https://example.jp/bukken/b/" {
				t.Fatalf("null row url: got %q", v)
			}
			continue
		}
		if v != "" {
			t.Fatalf("null row column %q: expected empty, got %q", detail.Columns[i], v)
		}
	}
}

// TestWriteRows_NoPartialFile verifies a failed write leaves no output file
// behind (the temp file is cleaned up and nothing is renamed into place).
func TestWriteRows_NoPartialFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "missing-subdir", "out.csv")
	sink, err := export.Open(context.Background(), "csv", export.Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	err = sink.WriteRows(context.Background(), detail.Columns, nil)
	if err == nil {
		t.Fatal("expected error for unwritable directory")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".suumo-csv-") {
			t.Fatalf("stray temp file %q left behind", e.Name())
		}
	}
}
