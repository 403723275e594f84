package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360/datalink/errors"
	"github.com/c360/datalink/schema"
)

// Target identifies an output format.
type Target string

const (
	TargetCSV      Target = "csv"
	TargetTSV      Target = "tsv"
	TargetJSON     Target = "json"
	TargetJSONL    Target = "jsonl"
	TargetYAML     Target = "yaml"
	TargetXML      Target = "xml"
	TargetHTML     Target = "html"
	TargetMarkdown Target = "markdown"
	TargetSQL      Target = "sql"
	TargetINI      Target = "ini"
	TargetText     Target = "txt"
	// TargetArrow emits an Apache Arrow schema document for the stream
	// instead of rendering the records themselves.
	TargetArrow Target = "arrow"
)

// knownTargets is the set of formats render can produce.
var knownTargets = map[Target]struct{}{
	TargetCSV:      {},
	TargetTSV:      {},
	TargetJSON:     {},
	TargetJSONL:    {},
	TargetYAML:     {},
	TargetXML:      {},
	TargetHTML:     {},
	TargetMarkdown: {},
	TargetSQL:      {},
	TargetINI:      {},
	TargetText:     {},
	TargetArrow:    {},
}

// TargetSpec describes the desired output shape.
type TargetSpec struct {
	// Format selects the output format. Empty defaults to CSV.
	Format Target
	// Columns fixes the output columns and their order. Empty derives
	// them from the profile.
	Columns []Column
	// Table names the target table for SQL output.
	Table string
	// Delimiter separates fields in delimited output. Zero defaults to a
	// comma; TSV always uses a tab.
	Delimiter rune
	// OmitHeaders drops the header row from tabular output. Formats that
	// cannot express a headerless table ignore it.
	OmitHeaders bool
}

// Column maps one record path to one output column.
type Column struct {
	// Name is the output column or element name.
	Name string
	// Path is the record path the value is read from, dotted for nested
	// objects. Empty defaults to Name.
	Path string
	// Type is the type values are coerced to. Empty takes the profile's
	// inferred type for Path, falling back to string.
	Type schema.Type
	// Format refines string columns with a detected value format.
	Format schema.Format
	// Elem is the element type of array columns.
	Elem schema.Type
	// Nullable reports whether null values are expected in this column.
	Nullable bool
}

// Plan is the record-to-output mapping built once per synthesis and applied
// to every record.
type Plan struct {
	Spec    TargetSpec
	Columns []Column
}

// columnNames returns the output names in plan order.
func (p *Plan) columnNames() []string {
	names := make([]string, len(p.Columns))
	for i, col := range p.Columns {
		names[i] = col.Name
	}
	return names
}

// BuildPlan resolves a target spec against a profile. Spec columns are taken
// as given with unset attributes filled from the profile; without spec
// columns the plan carries one column per record-level leaf in the profile,
// nested paths flattened with underscores and sorted by path.
func BuildPlan(profile *schema.Profile, spec TargetSpec) (*Plan, error) {
	spec.Format = normalizeTarget(spec.Format)
	if _, ok := knownTargets[spec.Format]; !ok {
		return nil, errors.WrapInvalid(ErrUnknownTarget, "Synthesizer", "BuildPlan",
			fmt.Sprintf("target %q", spec.Format))
	}

	if spec.Format == TargetTSV {
		spec.Delimiter = '\t'
	} else if spec.Delimiter == 0 {
		spec.Delimiter = ','
	}
	if spec.Table == "" {
		spec.Table = "imported_data"
	}

	var cols []Column
	if len(spec.Columns) > 0 {
		cols = append(cols, spec.Columns...)
	} else {
		cols = deriveColumns(profile)
	}

	seen := make(map[string]struct{}, len(cols))
	for i := range cols {
		col := &cols[i]
		if col.Name == "" {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Synthesizer", "BuildPlan",
				fmt.Sprintf("column %d has no name", i))
		}
		if _, dup := seen[col.Name]; dup {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Synthesizer", "BuildPlan",
				fmt.Sprintf("duplicate column %q", col.Name))
		}
		seen[col.Name] = struct{}{}

		if col.Path == "" {
			col.Path = col.Name
		}
		if col.Type == "" {
			fillFromProfile(col, profile)
		}
		switch col.Type {
		case schema.TypeString, schema.TypeInteger, schema.TypeFloat, schema.TypeBoolean, schema.TypeArray:
		default:
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Synthesizer", "BuildPlan",
				fmt.Sprintf("column %q has unsupported type %q", col.Name, col.Type))
		}
	}

	return &Plan{Spec: spec, Columns: cols}, nil
}

// normalizeTarget folds case and accepts the aliases md, yml, and
// parquet_schema.
func normalizeTarget(t Target) Target {
	switch folded := Target(strings.ToLower(strings.TrimSpace(string(t)))); folded {
	case "":
		return TargetCSV
	case "md":
		return TargetMarkdown
	case "yml":
		return TargetYAML
	case "parquet_schema":
		return TargetArrow
	default:
		return folded
	}
}

// deriveColumns flattens a profile into output columns: one column per
// record-level path, nested paths joined with underscores. Object fields
// contribute their children instead of a column of their own; array fields
// become single columns rendered as JSON.
func deriveColumns(p *schema.Profile) []Column {
	if p == nil {
		return nil
	}
	paths := make([]string, 0, len(p.Fields))
	for path, f := range p.Fields {
		if strings.Contains(path, schema.ElementSuffix) {
			continue
		}
		if f.InferredType() == schema.TypeObject {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	cols := make([]Column, 0, len(paths))
	for _, path := range paths {
		col := Column{Name: flattenName(path), Path: path}
		fillFromProfile(&col, p)
		cols = append(cols, col)
	}
	return cols
}

// fillFromProfile sets a column's type, format, element type, and
// nullability from the profile entry for its path. Paths the profile never
// saw become nullable string columns.
func fillFromProfile(col *Column, p *schema.Profile) {
	col.Type = schema.TypeString
	if p == nil {
		col.Nullable = true
		return
	}
	f, ok := p.Fields[col.Path]
	if !ok {
		col.Nullable = true
		return
	}

	col.Nullable = f.NullRate() > 0
	switch t := f.InferredType(); t {
	case schema.TypeNull, schema.TypeObject:
		// stays a string column
	case schema.TypeString:
		col.Format = f.Format()
	case schema.TypeArray:
		col.Type = t
		if elem, ok := p.Fields[col.Path+schema.ElementSuffix]; ok {
			col.Elem = elem.InferredType()
		}
	default:
		col.Type = t
	}
}

// flattenName turns a dotted record path into a flat column name.
func flattenName(path string) string {
	return strings.ReplaceAll(path, ".", "_")
}

// lookupPath walks a dotted path through nested objects. A missing or
// non-object segment yields nil.
func lookupPath(rec schema.Record, path string) any {
	var cur any = rec
	for path != "" {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		seg := path
		if i := strings.IndexByte(path, '.'); i >= 0 {
			seg, path = path[:i], path[i+1:]
		} else {
			path = ""
		}
		cur = m[seg]
	}
	return cur
}
