package mssql

import (
	"fmt"
	"strings"

	gddl "pdsreader/internal/ddl"
)

var dialect = gddl.Dialect{
	Name:    "mssql",
	Quote:   msIdent,
	MapType: MapType,
	Guard: func(quoted, create string) string {
		// T-SQL has no CREATE TABLE IF NOT EXISTS.
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  %s\nEND;", quoted, create)
	},
}

// MapType maps a logical type into a SQL Server column type. Key columns get
// a bounded NVARCHAR so that a composite primary key stays within the index
// key size limit.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "key":
		return "NVARCHAR(200)"
	case "text", "string":
		return "NVARCHAR(MAX)"
	case "float", "double":
		return "FLOAT"
	default:
		return kind
	}
}

// BuildCreateTableSQL returns a T-SQL script creating the table when
// OBJECT_ID finds none.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.Render(dialect, t)
}
