package storage

import (
	"context"
	"fmt"
	"sync"

	"pdsreader/internal/ddl"
)

// DDLBuilder renders the backend's idempotent CREATE TABLE statement.
// Backends register one per kind at init time.
type DDLBuilder func(t ddl.TableDef) (string, error)

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBuilder{}
)

// RegisterDDL registers (or replaces) the DDL builder for kind.
func RegisterDDL(kind string, fn DDLBuilder) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable renders t with the builder registered for kind and applies it
// through repo.Exec. It is safe to call on every run.
func EnsureTable(ctx context.Context, kind string, repo Repository, t ddl.TableDef) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL builder registered for storage.kind=%q", kind)
	}
	sql, err := fn(t)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if err := repo.Exec(ctx, sql); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}
