package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintKeyShape(t *testing.T) {
	key := Fingerprint("weather", map[string]any{"city": "oslo"})

	parts := strings.SplitN(key, ":", 2)
	require.Len(t, parts, 2)
	assert.Equal(t, "weather", parts[0])
	assert.Len(t, parts[1], 64, "sha256 hex digest")
}

func TestFingerprintMapOrderIndependence(t *testing.T) {
	// Maps iterate in random order; build the same logical parameters many
	// times and require a single key.
	keys := make(map[string]bool)
	for i := 0; i < 50; i++ {
		params := map[string]any{
			"city":  "oslo",
			"units": "metric",
			"day":   3,
			"nested": map[string]any{
				"a": 1,
				"b": 2,
				"c": 3,
			},
		}
		keys[Fingerprint("weather", params)] = true
	}
	assert.Len(t, keys, 1)
}

func TestFingerprintNumericNormalization(t *testing.T) {
	base := Fingerprint("calc", map[string]any{"n": 2})

	assert.Equal(t, base, Fingerprint("calc", map[string]any{"n": int64(2)}))
	assert.Equal(t, base, Fingerprint("calc", map[string]any{"n": float64(2)}))
	assert.Equal(t, base, Fingerprint("calc", map[string]any{"n": json.Number("2")}))
	assert.Equal(t, base, Fingerprint("calc", map[string]any{"n": json.Number("2.0")}))

	assert.NotEqual(t, base, Fingerprint("calc", map[string]any{"n": 2.5}))
	assert.NotEqual(t, base, Fingerprint("calc", map[string]any{"n": "2"}), "string two is not number two")
	assert.NotEqual(t, base, Fingerprint("calc", map[string]any{"n": 3}))
}

func TestFingerprintDecodedJSONMatchesLiteral(t *testing.T) {
	// Parameters decoded from JSON (float64 numbers) must collide with the
	// same parameters built programmatically with ints.
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"limit": 10, "filters": {"min": 1, "max": 5}}`), &decoded))

	literal := map[string]any{
		"limit":   10,
		"filters": map[string]any{"min": 1, "max": 5},
	}

	assert.Equal(t, Fingerprint("orders", literal), Fingerprint("orders", decoded))
}

func TestFingerprintDistinguishes(t *testing.T) {
	base := Fingerprint("weather", map[string]any{"city": "oslo"})

	t.Run("different agent", func(t *testing.T) {
		other := Fingerprint("forecast", map[string]any{"city": "oslo"})
		assert.NotEqual(t, base, other)
	})

	t.Run("different value", func(t *testing.T) {
		other := Fingerprint("weather", map[string]any{"city": "bergen"})
		assert.NotEqual(t, base, other)
	})

	t.Run("different key", func(t *testing.T) {
		other := Fingerprint("weather", map[string]any{"town": "oslo"})
		assert.NotEqual(t, base, other)
	})

	t.Run("array order matters", func(t *testing.T) {
		a := Fingerprint("weather", map[string]any{"cities": []any{"oslo", "bergen"}})
		b := Fingerprint("weather", map[string]any{"cities": []any{"bergen", "oslo"}})
		assert.NotEqual(t, a, b)
	})

	t.Run("null differs from absent", func(t *testing.T) {
		a := Fingerprint("weather", map[string]any{"city": "oslo", "units": nil})
		assert.NotEqual(t, base, a)
	})
}

func TestFingerprintEmptyParameters(t *testing.T) {
	assert.Equal(t,
		Fingerprint("weather", nil),
		Fingerprint("weather", map[string]any{}),
		"nil and empty parameter sets are the same intent")
}

func TestFingerprintTypedValues(t *testing.T) {
	// Programmatic intents may carry typed slices and maps; these must stay
	// deterministic too.
	keys := make(map[string]bool)
	for i := 0; i < 20; i++ {
		params := map[string]any{
			"tags":   []string{"a", "b"},
			"counts": map[string]int{"x": 1, "y": 2, "z": 3},
		}
		keys[Fingerprint("report", params)] = true
	}
	assert.Len(t, keys, 1)
}

func BenchmarkFingerprint(b *testing.B) {
	params := map[string]any{
		"customer": "acme-corp",
		"limit":    float64(25),
		"filters": map[string]any{
			"region":   "emea",
			"min":      float64(10),
			"statuses": []any{"open", "pending", "closed"},
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Fingerprint("orders", params)
	}
}

func BenchmarkFingerprintWide(b *testing.B) {
	params := make(map[string]any, 100)
	for i := 0; i < 100; i++ {
		params[fmt.Sprintf("field_%03d", i)] = i
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Fingerprint("wide", params)
	}
}
