// Package export hands the final ordered row collection to a tabular sink.
//
// Sinks self-register by name from their package init, so the command picks a
// backend with a blank import plus a -sink flag.
package export

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"suumoscrape/internal/detail"
)

// Config carries sink configuration.
type Config struct {
	// Path is the output file path (CSV file, SQLite database file).
	Path string

	// Table is the table name for database sinks. Ignored by file sinks.
	Table string
}

// Sink writes the complete, ordered row collection. Rows are written exactly
// once per run; sinks never update rows across runs.
type Sink interface {
	WriteRows(ctx context.Context, columns []string, rows []*detail.Row) error
}

// Factory builds a Sink from configuration.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a sink available under name. It panics on duplicate names,
// matching database/sql driver registration semantics.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("export: sink %q registered twice", name))
	}
	factories[name] = f
}

// Open builds the named sink.
func Open(ctx context.Context, name string, cfg Config) (Sink, error) {
	mu.RLock()
	f, ok := factories[name]
	available := names()
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("export: unknown sink %q (have %v)", name, available)
	}
	return f(ctx, cfg)
}

func names() []string {
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
