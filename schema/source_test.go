package schema

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/datalink/errors"
)

func TestSliceSourceIteration(t *testing.T) {
	ctx := context.Background()
	src := NewSliceSource(Record{"a": 1}, Record{"a": 2})

	first, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first["a"])

	second, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, second["a"])

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, src.Reset())
	first, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first["a"])
}

func TestSliceSourceHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewSliceSource(Record{"a": 1})
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONLSource(t *testing.T) {
	input := `{"id": 1, "name": "a"}

not json
{"id": 2, "name": "b"}
{"id": 9007199254740993}
`
	src := NewJSONLSource(strings.NewReader(input))
	ctx := context.Background()

	var records []Record
	for {
		record, err := src.Next(ctx)
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		records = append(records, record)
	}
	require.Len(t, records, 3)
	assert.Equal(t, 1, src.Malformed())

	profile, err := Learn(context.Background(), NewSliceSource(records...))
	require.NoError(t, err)
	id := profile.Fields["id"]
	require.NotNil(t, id)
	assert.Equal(t, TypeInteger, id.InferredType())
	assert.EqualValues(t, 3, id.DistinctEstimate())
}

func TestJSONLSourceReset(t *testing.T) {
	src := NewJSONLSource(strings.NewReader("{\"a\": 1}\nbroken\n"))
	ctx := context.Background()

	_, err := src.Next(ctx)
	require.NoError(t, err)
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, src.Malformed())

	require.NoError(t, src.Reset())
	assert.Equal(t, 0, src.Malformed())

	record, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), record["a"])
}

func TestJSONLSourceScalarLinesSkipped(t *testing.T) {
	src := NewJSONLSource(strings.NewReader("null\n42\n[1]\n{\"ok\": true}\n"))
	ctx := context.Background()

	record, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, record["ok"])
	assert.Equal(t, 3, src.Malformed())
}

func TestJSONLSourceNilReader(t *testing.T) {
	src := NewJSONLSource(nil)

	_, err := src.Next(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Error(t, src.Reset())
}

func TestExtractRecords(t *testing.T) {
	alpha := map[string]any{"a": 1}
	beta := map[string]any{"b": 2}

	t.Run("bare array", func(t *testing.T) {
		records := ExtractRecords([]any{alpha, beta})
		require.Len(t, records, 2)
		assert.Equal(t, Record(alpha), records[0])
	})

	t.Run("wrapper keys", func(t *testing.T) {
		for _, key := range []string{"data", "records", "items", "results", "rows", "entries", "content"} {
			records := ExtractRecords(map[string]any{key: []any{alpha}})
			require.Len(t, records, 1, "key %q", key)
		}
	})

	t.Run("first wrapper key wins", func(t *testing.T) {
		payload := map[string]any{
			"content": []any{beta},
			"data":    []any{alpha},
		}
		records := ExtractRecords(payload)
		require.Len(t, records, 1)
		assert.Equal(t, Record(alpha), records[0])
	})

	t.Run("single object payload", func(t *testing.T) {
		records := ExtractRecords(alpha)
		require.Len(t, records, 1)
		assert.Equal(t, Record(alpha), records[0])
	})

	t.Run("wrapper holding object stays whole", func(t *testing.T) {
		payload := map[string]any{"data": alpha}
		records := ExtractRecords(payload)
		require.Len(t, records, 1)
		assert.Equal(t, Record(payload), records[0])
	})

	t.Run("non-object elements dropped", func(t *testing.T) {
		records := ExtractRecords([]any{alpha, 42, "x"})
		require.Len(t, records, 1)
	})

	t.Run("record slice passes through", func(t *testing.T) {
		records := ExtractRecords([]Record{alpha, beta})
		assert.Len(t, records, 2)
	})

	t.Run("scalar payload", func(t *testing.T) {
		assert.Nil(t, ExtractRecords("just text"))
		assert.Nil(t, ExtractRecords(nil))
	})
}
