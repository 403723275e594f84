package dispatch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// maxExactInt is the largest magnitude a float64 can hold without losing
// integer precision. Integral floats beyond it keep their float rendering.
const maxExactInt = 1 << 53

// Fingerprint derives the cache key for an agent and parameter set. The
// parameters are rendered in a canonical form, object keys sorted
// recursively and scalars normalized, so semantically identical parameter
// sets always produce the same key regardless of map ordering or of whether
// a number arrived as int, float64, or json.Number. The key is
// "<agent>:<sha256 hex>" so operators can attribute keys to agents.
func Fingerprint(agent string, params map[string]any) string {
	var b strings.Builder
	appendCanonical(&b, params)
	sum := sha256.Sum256([]byte(b.String()))
	return agent + ":" + hex.EncodeToString(sum[:])
}

// appendCanonical writes the canonical rendering of a parameter value.
func appendCanonical(b *strings.Builder, value any) {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			appendJSONString(b, k)
			b.WriteByte(':')
			appendCanonical(b, v[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			appendCanonical(b, elem)
		}
		b.WriteByte(']')
	case string:
		appendJSONString(b, v)
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case int:
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case int32:
		b.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	case float32:
		appendFloat(b, float64(v))
	case float64:
		appendFloat(b, v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			b.WriteString(strconv.FormatInt(i, 10))
		} else if f, err := v.Float64(); err == nil {
			appendFloat(b, f)
		} else {
			appendJSONString(b, v.String())
		}
	default:
		// Typed maps, slices, and structs. encoding/json sorts map keys,
		// so this stays deterministic.
		data, err := json.Marshal(v)
		if err != nil {
			b.WriteString(fmt.Sprintf("%v", v))
			return
		}
		b.Write(data)
	}
}

// appendFloat renders integral floats as integers so 2, 2.0, and
// json.Number("2") all collide.
func appendFloat(b *strings.Builder, f float64) {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < maxExactInt {
		b.WriteString(strconv.FormatInt(int64(f), 10))
		return
	}
	b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}

// appendJSONString writes a string in its JSON encoding.
func appendJSONString(b *strings.Builder, s string) {
	data, _ := json.Marshal(s)
	b.Write(data)
}
