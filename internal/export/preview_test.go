package export

import (
	"context"
	"strings"
	"testing"

	"suumoscrape/internal/detail"
)

// TestPreview verifies the preview prints the header plus at most n rows.
func TestPreview(t *testing.T) {
	t.Parallel()

	rows := []*detail.Row{
		detail.NewRow("https://example.jp/bukken/a/"),
		detail.NewRow("https://example.jp/bukken/b/"),
		detail.NewRow("https://example.jp/bukken/c/"),
	}

	var out strings.Builder
	if err := Preview(&out, detail.Columns, rows, 2); err != nil {
		t.Fatalf("Preview: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}

	// n larger than the row count prints everything, not an error.
	out.Reset()
	if err := Preview(&out, detail.Columns, rows, 10); err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if got := len(strings.Split(strings.TrimSpace(out.String()), "\n")); got != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", got)
	}
}

// TestOpen_UnknownSink verifies Open rejects unregistered sink names.
func TestOpen_UnknownSink(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "postgres", Config{}); err == nil {
		t.Fatal("expected error for unknown sink")
	}
}

// TestRecord verifies null fields flatten to empty strings in column order.
func TestRecord(t *testing.T) {
	t.Parallel()

	row := detail.NewRow("https://example.jp/bukken/a/")
	row.Set(detail.ColumnPrice, "3980万円")

	rec := Record(row)
	if len(rec) != len(detail.Columns) {
		t.Fatalf("expected %d fields, got %d", len(detail.Columns), len(rec))
	}
	if rec[0] != "https://example.jp/bukken/a/" {
		t.Fatalf("url field: got %q", rec[0])
	}
	for i, c := range detail.Columns {
		switch c {
		case detail.ColumnURL, detail.ColumnPrice:
		default:
			if rec[i] != "" {
				t.Fatalf("column %q: expected empty, got %q", c, rec[i])
			}
		}
	}
}
