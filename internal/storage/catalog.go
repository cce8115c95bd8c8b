package storage

import (
	"context"
	"fmt"

	"pdsreader/internal/ddl"
	"pdsreader/internal/schema"
)

// DefaultCatalogTable is used when no catalog table is configured.
const DefaultCatalogTable = "pds_conversions"

// CatalogEntry records one converted data file.
type CatalogEntry struct {
	Job     string
	Source  string // data file path
	Output  string // binary file path
	Date    int32  // YYYYMMDD resolved from the file name; 0 when none
	Records int
	Layout  schema.Layout
}

// Row returns the entry's values ordered like CatalogTable's columns.
func (e CatalogEntry) Row() []any {
	var date any
	if e.Date != 0 {
		date = int64(e.Date)
	}
	return []any{
		e.Job,
		e.Output,
		e.Source,
		date,
		int64(e.Records),
		e.Layout.String(),
		fmt.Sprintf("%016x", e.Layout.Fingerprint()),
	}
}

// CatalogTable describes the catalog table. Entries are keyed by job and
// output path, so a rerun replaces the previous rows.
func CatalogTable(fqn string) ddl.TableDef {
	return ddl.TableDef{
		FQN: fqn,
		Columns: []ddl.ColumnDef{
			{Name: "job", SQLType: ddl.TypeKey, PrimaryKey: true},
			{Name: "output", SQLType: ddl.TypeKey, PrimaryKey: true},
			{Name: "source", SQLType: ddl.TypeText},
			{Name: "date", SQLType: ddl.TypeInt, Nullable: true},
			{Name: "records", SQLType: ddl.TypeInt},
			{Name: "layout", SQLType: ddl.TypeText},
			{Name: "layout_hash", SQLType: ddl.TypeKey},
		},
	}
}

// Catalog writes CatalogEntry rows through a Repository.
type Catalog struct {
	repo Repository
}

// OpenCatalog connects the backend registered for kind, creates the catalog
// table when missing and returns a Catalog. table defaults to
// DefaultCatalogTable.
func OpenCatalog(ctx context.Context, kind, dsn, table string) (*Catalog, error) {
	if table == "" {
		table = DefaultCatalogTable
	}
	td := CatalogTable(table)
	repo, err := New(ctx, Config{
		Kind:       kind,
		DSN:        dsn,
		Table:      table,
		Columns:    td.Names(),
		KeyColumns: td.PrimaryKey(),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if err := EnsureTable(ctx, kind, repo, td); err != nil {
		repo.Close()
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return &Catalog{repo: repo}, nil
}

// Record stores e, replacing an earlier entry for the same job and output.
func (c *Catalog) Record(ctx context.Context, e CatalogEntry) error {
	if _, err := c.repo.Replace(ctx, [][]any{e.Row()}); err != nil {
		return fmt.Errorf("catalog: record %s: %w", e.Output, err)
	}
	return nil
}

// Close releases the underlying repository.
func (c *Catalog) Close() {
	c.repo.Close()
}
