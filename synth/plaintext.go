package synth

import (
	"fmt"
	"strings"
)

// renderINI writes one section per record with sanitized keys. Values lose
// their newlines.
func renderINI(plan *Plan, rows [][]any) (*Output, error) {
	keys := make([]string, len(plan.Columns))
	for i, col := range plan.Columns {
		keys[i] = sanitizeINIKey(col.Name)
	}

	var b strings.Builder
	b.WriteString("; Generated INI file\n")
	fmt.Fprintf(&b, "; Total records: %d\n\n", len(rows))
	for i, row := range rows {
		fmt.Fprintf(&b, "[record_%d]\n", i)
		for j, v := range row {
			value := strings.ReplaceAll(renderCell(v), "\n", " ")
			fmt.Fprintf(&b, "%s = %s\n", keys[j], value)
		}
		b.WriteByte('\n')
	}
	return &Output{Data: []byte(b.String()), Extension: "ini", ContentType: "text/plain"}, nil
}

// sanitizeINIKey rewrites a column name into a safe INI key.
func sanitizeINIKey(name string) string {
	key := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
	if key == "" {
		return "key"
	}
	return key
}

// renderText writes a plain listing, one block per record.
func renderText(plan *Plan, rows [][]any) (*Output, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Data Export - %d Records\n", len(rows))
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n\n")
	for i, row := range rows {
		fmt.Fprintf(&b, "Record %d:\n", i+1)
		b.WriteString(strings.Repeat("-", 20))
		b.WriteByte('\n')
		for j, v := range row {
			fmt.Fprintf(&b, "%s: %s\n", plan.Columns[j].Name, renderCell(v))
		}
		b.WriteByte('\n')
	}
	return &Output{Data: []byte(b.String()), Extension: "txt", ContentType: "text/plain"}, nil
}
