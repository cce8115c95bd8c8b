package postgres

import (
	"strings"

	gddl "pdsreader/internal/ddl"
)

var dialect = gddl.Dialect{
	Name:    "postgres",
	Quote:   pgIdent,
	MapType: MapType,
}

// MapType normalizes a logical type into a Postgres SQL type.
//
//	"int"/"integer"/"bigint" -> BIGINT
//	"key"/"text"/"string"    -> TEXT
//	"float"/"double"         -> DOUBLE PRECISION
//	anything else            -> passed through
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "key", "text", "string":
		return "TEXT"
	case "float", "double":
		return "DOUBLE PRECISION"
	default:
		return kind
	}
}

// BuildCreateTableSQL returns a Postgres CREATE TABLE IF NOT EXISTS statement
// with double-quoted identifiers.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.Render(dialect, t)
}
