package dispatch

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/datalink/capability"
)

func TestValidateParameters(t *testing.T) {
	desc := capability.Descriptor{
		Name: "orders",
		Parameters: []capability.ParameterSpec{
			{Name: "customer", Type: capability.TypeString, Required: true},
			{Name: "limit", Type: capability.TypeInt},
			{Name: "min_total", Type: capability.TypeFloat},
			{Name: "include_closed", Type: capability.TypeBool},
			{Name: "filter", Type: capability.TypeObject},
			{Name: "statuses", Type: capability.TypeArray},
			{Name: "extra", Type: capability.TypeAny},
		},
	}

	t.Run("all types valid", func(t *testing.T) {
		err := validateParameters(desc, map[string]any{
			"customer":       "acme",
			"limit":          10,
			"min_total":      99.5,
			"include_closed": true,
			"filter":         map[string]any{"region": "emea"},
			"statuses":       []any{"open", "pending"},
			"extra":          nil,
		})
		assert.NoError(t, err)
	})

	t.Run("optional parameters may be absent", func(t *testing.T) {
		err := validateParameters(desc, map[string]any{"customer": "acme"})
		assert.NoError(t, err)
	})

	t.Run("missing required parameter", func(t *testing.T) {
		err := validateParameters(desc, map[string]any{"limit": 5})

		var vErr *InvalidParametersError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "customer", vErr.Field)
		assert.Contains(t, vErr.Reason, "required")
	})

	t.Run("first violation wins in declaration order", func(t *testing.T) {
		// Both limit and include_closed are wrong; limit is declared first
		err := validateParameters(desc, map[string]any{
			"customer":       "acme",
			"limit":          "ten",
			"include_closed": "yes",
		})

		var vErr *InvalidParametersError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "limit", vErr.Field)
	})

	t.Run("undeclared parameters pass through", func(t *testing.T) {
		err := validateParameters(desc, map[string]any{
			"customer": "acme",
			"debug":    "anything goes",
		})
		assert.NoError(t, err)
	})

	t.Run("int accepts JSON number forms", func(t *testing.T) {
		for _, value := range []any{int(7), int32(7), int64(7), float64(7), json.Number("7"), json.Number("7.0")} {
			err := validateParameters(desc, map[string]any{"customer": "acme", "limit": value})
			assert.NoError(t, err, "value %#v should satisfy int", value)
		}
	})

	t.Run("int rejects fractional values", func(t *testing.T) {
		for _, value := range []any{float64(7.5), json.Number("7.5"), "7", true} {
			err := validateParameters(desc, map[string]any{"customer": "acme", "limit": value})

			var vErr *InvalidParametersError
			require.ErrorAs(t, err, &vErr, "value %#v should not satisfy int", value)
			assert.Equal(t, "limit", vErr.Field)
		}
	})

	t.Run("float accepts any numeric", func(t *testing.T) {
		for _, value := range []any{int(7), int64(7), float32(7.5), float64(7.5), json.Number("7.5")} {
			err := validateParameters(desc, map[string]any{"customer": "acme", "min_total": value})
			assert.NoError(t, err, "value %#v should satisfy float", value)
		}
	})

	t.Run("float rejects non-numerics", func(t *testing.T) {
		err := validateParameters(desc, map[string]any{"customer": "acme", "min_total": "99.5"})

		var vErr *InvalidParametersError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "min_total", vErr.Field)
	})

	t.Run("bool is strict", func(t *testing.T) {
		for _, value := range []any{"true", 1, float64(1)} {
			err := validateParameters(desc, map[string]any{"customer": "acme", "include_closed": value})

			var vErr *InvalidParametersError
			require.ErrorAs(t, err, &vErr, "value %#v should not satisfy bool", value)
			assert.Equal(t, "include_closed", vErr.Field)
		}
	})

	t.Run("string is strict", func(t *testing.T) {
		err := validateParameters(desc, map[string]any{"customer": 42})

		var vErr *InvalidParametersError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "customer", vErr.Field)
		assert.Contains(t, vErr.Reason, "string")
	})

	t.Run("object and array are structural", func(t *testing.T) {
		err := validateParameters(desc, map[string]any{"customer": "acme", "filter": []any{"region"}})
		var vErr *InvalidParametersError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "filter", vErr.Field)

		err = validateParameters(desc, map[string]any{"customer": "acme", "statuses": map[string]any{}})
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "statuses", vErr.Field)
	})

	t.Run("any accepts everything", func(t *testing.T) {
		for _, value := range []any{nil, "s", 1, 1.5, true, map[string]any{}, []any{1}} {
			err := validateParameters(desc, map[string]any{"customer": "acme", "extra": value})
			assert.NoError(t, err, "value %#v should satisfy any", value)
		}
	})

	t.Run("explicit null fails typed parameters", func(t *testing.T) {
		err := validateParameters(desc, map[string]any{"customer": "acme", "limit": nil})

		var vErr *InvalidParametersError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "limit", vErr.Field)
	})
}

func TestInvalidParametersErrorMessage(t *testing.T) {
	err := &InvalidParametersError{Field: "city", Reason: "must be a string, got int"}
	assert.Equal(t, `invalid parameter "city": must be a string, got int`, err.Error())
}

func TestAgentExecutionErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &AgentExecutionError{Agent: "weather", Err: cause}

	assert.Contains(t, err.Error(), "weather")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}
