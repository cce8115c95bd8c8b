// Package ddl is a small, backend-agnostic model of a SQL table definition
// and a renderer that turns it into a dialect's CREATE TABLE statement.
//
// Backends (internal/storage/<kind>/ddl) supply a Dialect: identifier
// quoting, the create guard and a type mapping for the logical column types
// used by the conversion catalog.
package ddl

// Logical column types. Backends map them to concrete SQL types.
const (
	TypeKey  = "key"  // short string that takes part in a primary key
	TypeText = "text" // unbounded string
	TypeInt  = "int"  // 64-bit integer
)

// ColumnDef describes a single column.
//
// Name is unquoted; quoting happens at render time. SQLType is either a
// concrete SQL type or one of the logical Type* constants, which Render
// resolves through the dialect. Default is emitted as raw SQL.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name in dotted form ("schema.table") and the
// ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// PrimaryKey returns the names of the primary-key columns in column order.
func (t TableDef) PrimaryKey() []string {
	var out []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// Names returns the column names in order.
func (t TableDef) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
