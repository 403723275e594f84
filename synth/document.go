package synth

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/c360/datalink/errors"
)

// renderJSON writes an indented JSON array of objects, keys in plan order.
func renderJSON(plan *Plan, rows [][]any) (*Output, error) {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			compact.WriteByte(',')
		}
		if err := writeJSONObject(&compact, plan, row); err != nil {
			return nil, err
		}
	}
	compact.WriteByte(']')

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, compact.Bytes(), "", "  "); err != nil {
		return nil, errors.Wrap(err, "Synthesizer", "renderJSON", "indent document")
	}
	return &Output{Data: pretty.Bytes(), Extension: "json", ContentType: "application/json"}, nil
}

// renderJSONL writes one compact JSON object per line.
func renderJSONL(plan *Plan, rows [][]any) (*Output, error) {
	var buf bytes.Buffer
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := writeJSONObject(&buf, plan, row); err != nil {
			return nil, err
		}
	}
	return &Output{Data: buf.Bytes(), Extension: "jsonl", ContentType: "application/x-ndjson"}, nil
}

// writeJSONObject renders one row as a JSON object with keys in plan order.
// Nested values marshal with sorted map keys, so the bytes are stable.
func writeJSONObject(buf *bytes.Buffer, plan *Plan, row []any) error {
	buf.WriteByte('{')
	for i, col := range plan.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col.Name)
		if err != nil {
			return errors.Wrap(err, "Synthesizer", "writeJSONObject", "encode key")
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(row[i])
		if err != nil {
			return errors.Wrap(err, "Synthesizer", "writeJSONObject", "encode value")
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return nil
}

// renderYAML writes a YAML sequence of mappings, keys in plan order.
func renderYAML(plan *Plan, rows [][]any) (*Output, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, row := range rows {
		rec := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i, col := range plan.Columns {
			rec.Content = append(rec.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col.Name},
				yamlValue(row[i]))
		}
		seq.Content = append(seq.Content, rec)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return nil, errors.Wrap(err, "Synthesizer", "renderYAML", "encode document")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "Synthesizer", "renderYAML", "close encoder")
	}
	return &Output{Data: buf.Bytes(), Extension: "yaml", ContentType: "application/yaml"}, nil
}

// yamlValue builds the node for one coerced value. Arrays and nested
// objects render flow-style, object keys sorted.
func yamlValue(v any) *yaml.Node {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(x)}
	case int64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(x, 10)}
	case uint64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatUint(x, 10)}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(x, 'g', -1, 64)}
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: x}
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, item := range x {
			seq.Content = append(seq.Content, yamlValue(item))
		}
		return seq
	case map[string]any:
		keys := make([]string, 0, len(x))
		for key := range x {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: yaml.FlowStyle}
		for _, key := range keys {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				yamlValue(x[key]))
		}
		return m
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: renderCell(x)}
	}
}
