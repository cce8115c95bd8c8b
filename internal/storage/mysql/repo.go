// Package mysql implements a MySQL-backed storage.Repository using
// database/sql and github.com/go-sql-driver/mysql. Rows are written with
// multi-row INSERT statements inside a transaction.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pdsreader/internal/storage"

	"github.com/go-sql-driver/mysql"
)

// insertChunk bounds the rows per INSERT so the placeholder count stays well
// under the server's 65535 limit.
const insertChunk = 500

// Config holds MySQL repository configuration.
type Config struct {
	DSN        string // e.g. "user:pass@tcp(127.0.0.1:3306)/pds"
	Table      string
	Columns    []string
	KeyColumns []string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository validates the DSN, opens a pool and pings the server.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dsnCfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	connector, err := mysql.NewConnector(dsnCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	close := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, close, nil
}

// Replace deletes rows matching the key columns of rows, then inserts rows,
// in one transaction.
func (r *Repository) Replace(ctx context.Context, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := storage.CheckRows(r.cfg.Columns, rows); err != nil {
		return 0, fmt.Errorf("mysql: Replace: %w", err)
	}
	idx, err := storage.KeyIndexes(r.cfg.Columns, r.cfg.KeyColumns)
	if err != nil {
		return 0, fmt.Errorf("mysql: Replace: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	if len(idx) > 0 {
		del := fmt.Sprintf("DELETE FROM %s WHERE %s", myFQN(r.cfg.Table), buildDeleteCondition(r.cfg.KeyColumns))
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, del, storage.KeyValues(row, idx)...); err != nil {
				rollback()
				return 0, fmt.Errorf("delete matching rows: %w", err)
			}
		}
	}

	n, err := r.insert(ctx, tx, r.cfg.Columns, rows)
	if err != nil {
		rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func (r *Repository) insert(ctx context.Context, tx *sql.Tx, columns []string, rows [][]any) (int64, error) {
	var total int64
	for start := 0; start < len(rows); start += insertChunk {
		end := start + insertChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		args := make([]any, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			args = append(args, row...)
		}
		res, err := tx.ExecContext(ctx, buildInsert(r.cfg.Table, columns, len(chunk)), args...)
		if err != nil {
			return total, fmt.Errorf("insert rows %d-%d: %w", start, end-1, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += n
	}
	return total, nil
}

// Exec executes a single statement.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	_, err := r.db.ExecContext(ctx, sqlText)
	return err
}

// buildInsert renders INSERT INTO `t` (`a`,`b`) VALUES (?,?),(?,?) for n rows.
func buildInsert(table string, columns []string, n int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(myFQN(table))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(mapIdent(columns), ","))
	sb.WriteString(") VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(tuple)
	}
	return sb.String()
}

// buildDeleteCondition renders `k1` = ? AND `k2` = ? for the key columns.
func buildDeleteCondition(keyColumns []string) string {
	conds := make([]string, 0, len(keyColumns))
	for _, col := range keyColumns {
		conds = append(conds, myIdent(col)+" = ?")
	}
	return strings.Join(conds, " AND ")
}

// myIdent backtick-quotes an identifier, doubling embedded backticks.
func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// myFQN quotes a possibly database-qualified name like "pds.conversions".
func myFQN(name string) string { return dialect.QuoteFQN(name) }

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = myIdent(c)
	}
	return out
}
