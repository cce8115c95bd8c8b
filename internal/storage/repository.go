// Package storage defines the backend-agnostic repository contract used by the
// conversion catalog and a registry of backend factories.
//
// Backends live in subpackages (sqlite, postgres, mssql, mysql) and register
// themselves in init. Callers blank-import internal/storage/all and obtain a
// Repository through New without naming a concrete backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is implemented by every storage backend.
type Repository interface {
	// Replace deletes the rows whose key columns equal those of the given
	// rows and inserts the rows, in one transaction. Rows are ordered like
	// Config.Columns. It returns the number of rows inserted.
	Replace(ctx context.Context, rows [][]any) (int64, error)

	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	// Close releases the connection pool.
	Close()
}

// Config is the backend-agnostic repository configuration.
type Config struct {
	Kind       string   // registered backend kind, e.g. "sqlite"
	DSN        string   // driver connection string
	Table      string   // target table, optionally schema-qualified
	Columns    []string // ordered columns of every row
	KeyColumns []string // subset of Columns identifying a row for Replace
}

// Factory constructs a Repository for a Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New returns a Repository from the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// KeyIndexes returns the positions of keys within columns.
func KeyIndexes(columns, keys []string) ([]int, error) {
	idx := make([]int, len(keys))
	for i, k := range keys {
		pos := -1
		for j, c := range columns {
			if c == k {
				pos = j
				break
			}
		}
		if pos < 0 {
			return nil, fmt.Errorf("key column %q not in columns %v", k, columns)
		}
		idx[i] = pos
	}
	return idx, nil
}

// KeyValues picks the key values of row in key order.
func KeyValues(row []any, idx []int) []any {
	out := make([]any, len(idx))
	for i, p := range idx {
		out[i] = row[p]
	}
	return out
}

// CheckRows verifies every row has one value per column.
func CheckRows(columns []string, rows [][]any) error {
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d: length %d != columns length %d", i, len(row), len(columns))
		}
	}
	return nil
}
