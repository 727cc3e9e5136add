package export

import (
	"encoding/csv"
	"io"

	"suumoscrape/internal/detail"
)

// Preview writes the header and the first n rows to w in CSV form, so a
// successful run ends with a quick visual check of what was extracted.
func Preview(w io.Writer, columns []string, rows []*detail.Row, n int) error {
	if n > len(rows) {
		n = len(rows)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, row := range rows[:n] {
		if err := cw.Write(Record(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Record flattens a row to strings aligned to detail.Columns. Null fields
// become empty strings.
func Record(row *detail.Row) []string {
	values := row.Values()
	rec := make([]string, len(values))
	for i, v := range values {
		if v != nil {
			rec[i] = *v
		}
	}
	return rec
}
