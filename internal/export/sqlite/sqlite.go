// Package sqlite persists the row collection into a SQLite database file.
//
// All columns are TEXT: the schema stores free-text strings or NULL, matching
// the CSV sink. The table is created if missing and appended to otherwise;
// one run writes its rows in a single transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"suumoscrape/internal/detail"
	"suumoscrape/internal/export"
)

const defaultTable = "listings"

func init() {
	export.Register("sqlite", func(ctx context.Context, cfg export.Config) (export.Sink, error) {
		return open(ctx, cfg)
	})
}

type sink struct {
	db    *sql.DB
	table string
}

func open(ctx context.Context, cfg export.Config) (*sink, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.Path, err)
	}

	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	return &sink{db: db, table: table}, nil
}

// WriteRows creates the table if needed and inserts every row in one
// transaction. NULL is written for fields that were never extracted.
func (s *sink) WriteRows(ctx context.Context, columns []string, rows []*detail.Row) error {
	defer s.db.Close()

	if _, err := s.db.ExecContext(ctx, createSQL(s.table, columns)); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(s.table, columns))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, len(columns))
		for i, v := range row.Values() {
			if v == nil {
				args[i] = nil
			} else {
				args[i] = *v
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// createSQL builds the CREATE TABLE IF NOT EXISTS statement. Column names
// carry Japanese text and separators, so every identifier is quoted.
func createSQL(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
		b.WriteString(" TEXT")
	}
	b.WriteString(")")
	return b.String()
}

func insertSQL(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
	}
	b.WriteString(")")
	return b.String()
}

func sqlIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
