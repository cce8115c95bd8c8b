// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API. Replace deletes the keyed rows and bulk-copies the
// new ones inside one transaction.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pdsreader/internal/storage"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN        string
	Table      string
	Columns    []string
	KeyColumns []string
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	close := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, close, nil
}

// Replace deletes rows matching the key columns of rows, then bulk-copies
// rows, in one transaction.
func (r *Repository) Replace(ctx context.Context, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := storage.CheckRows(r.cfg.Columns, rows); err != nil {
		return 0, fmt.Errorf("mssql: Replace: %w", err)
	}
	idx, err := storage.KeyIndexes(r.cfg.Columns, r.cfg.KeyColumns)
	if err != nil {
		return 0, fmt.Errorf("mssql: Replace: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	if len(idx) > 0 {
		del := fmt.Sprintf("DELETE FROM %s WHERE %s", msFQN(r.cfg.Table), buildDeleteCondition(r.cfg.KeyColumns))
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, del, storage.KeyValues(row, idx)...); err != nil {
				rollback()
				return 0, fmt.Errorf("delete matching rows: %w", err)
			}
		}
	}

	n, err := r.bulk(ctx, tx, r.cfg.Columns, rows)
	if err != nil {
		rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func (r *Repository) bulk(ctx context.Context, tx *sql.Tx, columns []string, rows [][]any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(r.cfg.Table, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// buildDeleteCondition renders [k1] = @p1 AND [k2] = @p2 for the key columns.
func buildDeleteCondition(keyColumns []string) string {
	conds := make([]string, 0, len(keyColumns))
	for i, col := range keyColumns {
		conds = append(conds, fmt.Sprintf("%s = @p%d", msIdent(col), i+1))
	}
	return strings.Join(conds, " AND ")
}

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "dbo.pds_conversions" to
// "[dbo].[pds_conversions]".
func msFQN(name string) string { return dialect.QuoteFQN(name) }
