package sqlite

import (
	"strings"

	gddl "pdsreader/internal/ddl"
)

var dialect = gddl.Dialect{
	Name:    "sqlite",
	Quote:   sqIdent,
	MapType: MapType,
}

// MapType maps a logical type into a SQLite column type. SQLite is dynamically
// typed, so this only picks the affinity; unknown names pass through.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "INTEGER"
	case "float", "double", "real":
		return "REAL"
	case "key", "text", "string":
		return "TEXT"
	case "blob", "bytes":
		return "BLOB"
	default:
		return kind
	}
}

// BuildCreateTableSQL returns a CREATE TABLE IF NOT EXISTS statement with
// double-quoted identifiers.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.Render(dialect, t)
}
