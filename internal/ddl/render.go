package ddl

import (
	"fmt"
	"strings"
)

// Dialect captures what differs between backends when rendering DDL.
type Dialect struct {
	// Name prefixes error messages, e.g. "postgres".
	Name string

	// Quote quotes a single identifier segment.
	Quote func(id string) string

	// MapType resolves a logical type to a SQL type. Types it does not
	// recognise are expected to be returned as-is by the caller's mapping.
	MapType func(kind string) string

	// Guard wraps the bare CREATE TABLE statement so that it is a no-op when
	// the table exists. Nil means "CREATE TABLE IF NOT EXISTS".
	Guard func(quotedFQN, create string) string
}

// QuoteFQN quotes each non-empty dotted segment of fqn.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.Quote(p))
	}
	return strings.Join(out, ".")
}

// Render builds an idempotent CREATE TABLE statement for t.
//
// Columns render as <name> <type> [NOT NULL] [DEFAULT <expr>]; primary-key
// columns are always NOT NULL and are listed in a trailing PRIMARY KEY clause
// in column order.
func Render(d Dialect, t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", d.Name, name)
		}
		if d.MapType != nil {
			typ = d.MapType(typ)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.Quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := d.QuoteFQN(fqn)
	if d.Guard == nil {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
			quoted, strings.Join(cols, ",\n  ")), nil
	}
	create := fmt.Sprintf("CREATE TABLE %s (\n    %s\n  );", quoted, strings.Join(cols, ",\n    "))
	return d.Guard(quoted, create), nil
}
