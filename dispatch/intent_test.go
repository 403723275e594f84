package dispatch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentUnmarshal(t *testing.T) {
	raw := `{
		"agent_name": "sql_query",
		"parameters": {"query": "SELECT 1", "limit": 10},
		"cache_options": {"skip_cache": true, "ttl_override": "10m"}
	}`

	var intent Intent
	require.NoError(t, json.Unmarshal([]byte(raw), &intent))

	assert.Equal(t, "sql_query", intent.AgentName)
	assert.Equal(t, "SELECT 1", intent.Parameters["query"])
	assert.True(t, intent.CacheOptions.SkipCache)
	assert.Equal(t, 10*time.Minute, intent.CacheOptions.TTLOverride)
}

func TestCacheOptionsTTLForms(t *testing.T) {
	t.Run("integer nanoseconds", func(t *testing.T) {
		var opts CacheOptions
		require.NoError(t, json.Unmarshal([]byte(`{"ttl_override": 1500000000}`), &opts))
		assert.Equal(t, 1500*time.Millisecond, opts.TTLOverride)
	})

	t.Run("absent means no override", func(t *testing.T) {
		var opts CacheOptions
		require.NoError(t, json.Unmarshal([]byte(`{"skip_cache": true}`), &opts))
		assert.Zero(t, opts.TTLOverride)
		assert.True(t, opts.SkipCache)
	})

	t.Run("unparseable string", func(t *testing.T) {
		var opts CacheOptions
		err := json.Unmarshal([]byte(`{"ttl_override": "fast"}`), &opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ttl_override")
	})

	t.Run("wrong type", func(t *testing.T) {
		var opts CacheOptions
		err := json.Unmarshal([]byte(`{"ttl_override": [1]}`), &opts)
		require.Error(t, err)
	})
}
