package synth

import (
	"encoding/json"
	"strconv"

	"github.com/apache/arrow/go/v13/arrow"

	"github.com/c360/datalink/errors"
	"github.com/c360/datalink/schema"
)

// renderArrowSchema writes the plan as an Arrow schema document instead of
// rendering the records: one Arrow field per column, types derived from the
// learned ones, the record count carried as schema metadata.
func renderArrowSchema(plan *Plan, rows [][]any) (*Output, error) {
	fields := make([]arrow.Field, len(plan.Columns))
	for i, col := range plan.Columns {
		fields[i] = arrow.Field{
			Name:     col.Name,
			Type:     arrowType(col),
			Nullable: col.Nullable,
		}
	}
	md := arrow.NewMetadata([]string{"record_count"}, []string{strconv.Itoa(len(rows))})
	s := arrow.NewSchema(fields, &md)

	doc := arrowSchemaDoc{
		Type:     "struct",
		Metadata: make(map[string]string, s.Metadata().Len()),
		Fields:   make([]arrowFieldDoc, 0, len(s.Fields())),
	}
	for i, key := range s.Metadata().Keys() {
		doc.Metadata[key] = s.Metadata().Values()[i]
	}
	for _, f := range s.Fields() {
		doc.Fields = append(doc.Fields, arrowFieldDoc{
			Name:     f.Name,
			Type:     f.Type.String(),
			Nullable: f.Nullable,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "Synthesizer", "renderArrowSchema", "encode schema")
	}
	return &Output{Data: data, Extension: "arrow.schema.json", ContentType: "application/json"}, nil
}

type arrowSchemaDoc struct {
	Type     string            `json:"type"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Fields   []arrowFieldDoc   `json:"fields"`
}

type arrowFieldDoc struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// arrowType maps a column to its Arrow data type. Date and timestamp
// formatted string columns take the corresponding temporal types.
func arrowType(col Column) arrow.DataType {
	if col.Type == schema.TypeArray {
		return arrow.ListOf(arrowScalarType(col.Elem))
	}
	if col.Type == schema.TypeString {
		switch col.Format {
		case schema.FormatDate:
			return arrow.FixedWidthTypes.Date32
		case schema.FormatTimestamp:
			return arrow.FixedWidthTypes.Timestamp_ms
		}
	}
	return arrowScalarType(col.Type)
}

// arrowScalarType maps a scalar type, defaulting to utf8.
func arrowScalarType(t schema.Type) arrow.DataType {
	switch t {
	case schema.TypeInteger:
		return arrow.PrimitiveTypes.Int64
	case schema.TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case schema.TypeBoolean:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}
