// Package sqlite implements a SQLite-backed storage.Repository.
package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:catalog.db?cache=shared"
	//   "/data/bin/catalog.db"
	DSN string

	// Table is the target table. Dotted names such as "main.pds_conversions"
	// are quoted segment by segment.
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string

	// KeyColumns identify the rows that Replace deletes before inserting.
	KeyColumns []string
}
