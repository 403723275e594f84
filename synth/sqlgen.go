package synth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c360/datalink/schema"
)

// renderSQL writes a CREATE TABLE statement typed from the plan followed by
// one INSERT per record.
func renderSQL(plan *Plan, rows [][]any) (*Output, error) {
	out := &Output{Extension: "sql", ContentType: "application/sql"}
	if len(rows) == 0 {
		out.Data = []byte("-- No data to convert")
		return out, nil
	}

	idents := make([]string, len(plan.Columns))
	for i, col := range plan.Columns {
		idents[i] = quoteIdentifier(sanitizeSQLName(col.Name))
	}
	table := quoteIdentifier(sanitizeSQLName(plan.Spec.Table))

	var b strings.Builder
	fmt.Fprintf(&b, "-- SQL insert statements for %d records\n\n", len(rows))
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table)
	for i, col := range plan.Columns {
		b.WriteString("    ")
		b.WriteString(idents[i])
		b.WriteByte(' ')
		b.WriteString(sqlColumnType(col))
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if i < len(plan.Columns)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(");\n\n")

	columnList := strings.Join(idents, ", ")
	values := make([]string, len(plan.Columns))
	for _, row := range rows {
		for i, v := range row {
			values[i] = sqlValue(v)
		}
		fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s);\n", table, columnList, strings.Join(values, ", "))
	}

	out.Data = []byte(b.String())
	return out, nil
}

// sqlColumnType maps a column to a portable SQL type.
func sqlColumnType(col Column) string {
	switch col.Type {
	case schema.TypeInteger:
		return "INTEGER"
	case schema.TypeFloat:
		return "REAL"
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeString:
		switch col.Format {
		case schema.FormatDate:
			return "DATE"
		case schema.FormatTimestamp:
			return "TIMESTAMP"
		}
		return "TEXT"
	default:
		return "TEXT"
	}
}

// sqlValue renders a coerced value as a SQL literal. Strings quote with
// doubled single quotes; nested values quote their JSON rendering.
func sqlValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return "'" + strings.ReplaceAll(renderCell(v), "'", "''") + "'"
	}
}

// sanitizeSQLName rewrites a name into a bare SQL identifier.
func sanitizeSQLName(name string) string {
	ident := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if ident == "" {
		return "field"
	}
	if ident[0] >= '0' && ident[0] <= '9' {
		return "_" + ident
	}
	return ident
}

// quoteIdentifier wraps an identifier in double quotes.
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}
