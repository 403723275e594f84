package synth

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"

	"github.com/c360/datalink/errors"
)

// renderXML writes a data document: one record element per row, one child
// element per column. Null values render as empty elements.
func renderXML(plan *Plan, rows [][]any) (*Output, error) {
	names := make([]string, len(plan.Columns))
	for i, col := range plan.Columns {
		names[i] = sanitizeXMLTag(col.Name)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, "<data record_count=\"%d\">\n", len(rows))
	for i, row := range rows {
		fmt.Fprintf(&buf, "  <record index=\"%d\">\n", i)
		for j, v := range row {
			if v == nil {
				fmt.Fprintf(&buf, "    <%s/>\n", names[j])
				continue
			}
			fmt.Fprintf(&buf, "    <%s>", names[j])
			if err := xml.EscapeText(&buf, []byte(renderCell(v))); err != nil {
				return nil, errors.Wrap(err, "Synthesizer", "renderXML", "escape text")
			}
			fmt.Fprintf(&buf, "</%s>\n", names[j])
		}
		buf.WriteString("  </record>\n")
	}
	buf.WriteString("</data>\n")
	return &Output{Data: buf.Bytes(), Extension: "xml", ContentType: "application/xml"}, nil
}

// sanitizeXMLTag rewrites a column name into a valid element name.
func sanitizeXMLTag(name string) string {
	tag := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
	if tag == "" {
		return "field"
	}
	if tag[0] >= '0' && tag[0] <= '9' {
		return "_" + tag
	}
	return tag
}

// renderHTML writes a standalone page with the records in a styled table.
func renderHTML(plan *Plan, rows [][]any) (*Output, error) {
	out := &Output{Extension: "html", ContentType: "text/html"}
	if len(rows) == 0 {
		out.Data = []byte("<html><body><p>No data</p></body></html>")
		return out, nil
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<title>Converted Data</title>\n<style>\n")
	b.WriteString("table { border-collapse: collapse; width: 100%; }\n")
	b.WriteString("th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }\n")
	b.WriteString("th { background-color: #4CAF50; color: white; }\n")
	b.WriteString("tr:nth-child(even) { background-color: #f2f2f2; }\n")
	b.WriteString("</style>\n</head>\n<body>\n<h1>Data Export</h1>\n")
	fmt.Fprintf(&b, "<p>Total Records: %d</p>\n<table>\n", len(rows))

	if !plan.Spec.OmitHeaders {
		b.WriteString("<thead><tr>")
		for _, col := range plan.Columns {
			b.WriteString("<th>")
			b.WriteString(html.EscapeString(col.Name))
			b.WriteString("</th>")
		}
		b.WriteString("</tr></thead>\n")
	}
	b.WriteString("<tbody>\n")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, v := range row {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(renderCell(v)))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n</body>\n</html>")

	out.Data = []byte(b.String())
	return out, nil
}

// markdownRowLimit caps the number of table rows rendered; a trailing note
// reports the remainder.
const markdownRowLimit = 1000

// renderMarkdown writes the records as a Markdown table.
func renderMarkdown(plan *Plan, rows [][]any) (*Output, error) {
	out := &Output{Extension: "md", ContentType: "text/markdown"}
	if len(rows) == 0 {
		out.Data = []byte("# No Data\n\nNo records to display.")
		return out, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Data Export\n\n**Total Records:** %d\n\n", len(rows))

	names := plan.columnNames()
	b.WriteString("| " + strings.Join(names, " | ") + " |\n")
	sep := make([]string, len(names))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")

	limit := len(rows)
	if limit > markdownRowLimit {
		limit = markdownRowLimit
	}
	cells := make([]string, len(plan.Columns))
	for _, row := range rows[:limit] {
		for i, v := range row {
			cells[i] = strings.ReplaceAll(renderCell(v), "|", "\\|")
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	if len(rows) > markdownRowLimit {
		fmt.Fprintf(&b, "\n*Note: Showing first %d of %d records*\n", markdownRowLimit, len(rows))
	}

	out.Data = []byte(b.String())
	return out, nil
}
