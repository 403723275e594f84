package synth

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/c360/datalink/schema"
)

// maxExactInt bounds the float64 range treated as integral, matching the
// learner's normalization.
const maxExactInt = 1 << 53

// CoercionError reports a runtime value that cannot be represented in its
// target column type.
type CoercionError struct {
	Field      string
	Value      any
	TargetType schema.Type
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot coerce field %q value %v (%T) to %s",
		e.Field, e.Value, e.Value, e.TargetType)
}

// coerceRecord maps one record onto the plan's columns. Row values land in
// the closed set the sinks render: nil, bool, int64, uint64, float64,
// string, and []any.
func coerceRecord(plan *Plan, rec schema.Record) ([]any, error) {
	row := make([]any, len(plan.Columns))
	for i, col := range plan.Columns {
		v, err := coerce(lookupPath(rec, col.Path), col)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// coerce converts a runtime value to its column's target type following the
// learner's normalization: integral floats are integers, NaN is null, times
// and bytes are strings. Null passes through every target.
func coerce(v any, col Column) (any, error) {
	c, err := canonicalize(v)
	if err != nil {
		return nil, &CoercionError{Field: col.Name, Value: v, TargetType: col.Type}
	}
	if c == nil {
		return nil, nil
	}

	switch col.Type {
	case schema.TypeString:
		return coerceString(c, col)
	case schema.TypeInteger:
		switch x := c.(type) {
		case int64:
			return x, nil
		case uint64:
			return x, nil
		}
	case schema.TypeFloat:
		switch x := c.(type) {
		case int64:
			return float64(x), nil
		case uint64:
			return float64(x), nil
		case float64:
			return x, nil
		}
	case schema.TypeBoolean:
		if b, ok := c.(bool); ok {
			return b, nil
		}
	case schema.TypeArray:
		if items, ok := c.([]any); ok {
			return items, nil
		}
	}
	return nil, &CoercionError{Field: col.Name, Value: v, TargetType: col.Type}
}

// coerceString renders any canonical value as text: scalars as literals,
// nested values as compact JSON.
func coerceString(c any, col Column) (any, error) {
	switch x := c.(type) {
	case bool:
		return strconv.FormatBool(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case string:
		return x, nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, &CoercionError{Field: col.Name, Value: c, TargetType: col.Type}
		}
		return string(b), nil
	}
}

// canonicalize rewrites a value into the closed set sinks render. Numbers
// follow the learner's normalization, NaN and infinities become null, times
// render RFC 3339, bytes become strings with invalid UTF-8 escaped. Nested
// objects and arrays canonicalize element-wise. Values of any other type
// cannot be rendered and fail.
func canonicalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	case string:
		return escapeInvalidUTF8(x), nil
	case []byte:
		return escapeInvalidUTF8(string(x)), nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return canonicalUint(uint64(x)), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return canonicalUint(x), nil
	case float32:
		return canonicalFloat(float64(x)), nil
	case float64:
		return canonicalFloat(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		if f, err := x.Float64(); err == nil {
			return canonicalFloat(f), nil
		}
		return nil, nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for key, val := range x {
			c, err := canonicalize(val)
			if err != nil {
				return nil, err
			}
			out[key] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			c, err := canonicalize(val)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// canonicalFloat folds integral floats into integers and NaN and infinities
// into null.
func canonicalFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f == math.Trunc(f) && math.Abs(f) < maxExactInt {
		return int64(f)
	}
	return f
}

// canonicalUint keeps values beyond the int64 range unsigned.
func canonicalUint(x uint64) any {
	if x <= math.MaxInt64 {
		return int64(x)
	}
	return x
}

// escapeInvalidUTF8 returns s unchanged when it is valid UTF-8, otherwise
// rewrites it with escape sequences so undecodable bytes survive text
// output.
func escapeInvalidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	q := strconv.Quote(s)
	return q[1 : len(q)-1]
}

// renderCell renders a coerced value as plain text: empty for null, JSON
// for nested values.
func renderCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
