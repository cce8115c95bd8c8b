package mysql

import (
	"strings"

	gddl "pdsreader/internal/ddl"
)

var dialect = gddl.Dialect{
	Name:    "mysql",
	Quote:   myIdent,
	MapType: MapType,
}

// MapType maps a logical type into a MySQL column type. TEXT cannot be part
// of a primary key without a prefix length, so key columns use VARCHAR.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "key":
		return "VARCHAR(255)"
	case "text", "string":
		return "LONGTEXT"
	case "float", "double":
		return "DOUBLE"
	default:
		return kind
	}
}

// BuildCreateTableSQL returns a MySQL CREATE TABLE IF NOT EXISTS statement
// with backtick-quoted identifiers.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.Render(dialect, t)
}
