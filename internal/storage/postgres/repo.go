// Package postgres implements a Postgres repository using pgx v5. Replace
// deletes the keyed rows and COPYs the new ones inside one transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pdsreader/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN        string   // connection string for pgxpool
	Table      string   // target table, e.g. "public.pds_conversions"
	Columns    []string // ordered columns for COPY
	KeyColumns []string // columns matched by Replace's DELETE
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	close := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, close, nil
}

// Replace deletes rows matching the key columns of rows and COPYs rows into
// the table, in one transaction.
func (r *Repository) Replace(ctx context.Context, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := storage.CheckRows(r.cfg.Columns, rows); err != nil {
		return 0, fmt.Errorf("postgres: Replace: %w", err)
	}
	idx, err := storage.KeyIndexes(r.cfg.Columns, r.cfg.KeyColumns)
	if err != nil {
		return 0, fmt.Errorf("postgres: Replace: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if len(idx) > 0 {
		del := fmt.Sprintf("DELETE FROM %s WHERE %s", pgFQN(r.cfg.Table), buildDeleteCondition(r.cfg.KeyColumns))
		for _, row := range rows {
			if _, err := tx.Exec(ctx, del, storage.KeyValues(row, idx)...); err != nil {
				return 0, fmt.Errorf("delete matching rows: %w", err)
			}
		}
	}

	n, err := tx.CopyFrom(ctx, splitFQN(r.cfg.Table), r.cfg.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, copyError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.pool.Exec(ctx, sql)
	return err
}

// copyError surfaces the server's detail text when COPY is rejected.
func copyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("copy: %s (%s): %w", pgErr.Detail, pgErr.SQLState(), err)
	}
	return fmt.Errorf("copy: %w", err)
}

// buildDeleteCondition renders "k1" = $1 AND "k2" = $2 for the key columns.
func buildDeleteCondition(keyColumns []string) string {
	conds := make([]string, 0, len(keyColumns))
	for i, col := range keyColumns {
		conds = append(conds, fmt.Sprintf("%s = $%d", pgIdent(col), i+1))
	}
	return strings.Join(conds, " AND ")
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.pds_conversions"
// to "public"."pds_conversions".
func pgFQN(name string) string { return dialect.QuoteFQN(name) }

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
