package cache

import (
	"context"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/datalink/metric"
)

func TestCacheMetricsIntegration(t *testing.T) {
	// Create metrics registry
	metricsRegistry := metric.NewMetricsRegistry()

	// Create cache with metrics enabled
	cfg := Config{Enabled: true, MaxSize: 10, TTL: time.Minute, CleanupInterval: time.Minute}
	cache, err := New[string](context.Background(), cfg, WithMetrics[string](metricsRegistry, "test_cache"))
	require.NoError(t, err)
	defer cache.Close()

	// Perform cache operations
	_, _ = cache.Set("key1", "value1")
	_, _ = cache.SetWithOptions("key2", "value2", EntryOptions{Tags: []string{"group"}})

	// Access key1 (hit)
	val, found := cache.Get("key1")
	assert.True(t, found)
	assert.Equal(t, "value1", val)

	// Access non-existent key (miss)
	_, found = cache.Get("key3")
	assert.False(t, found)

	// Invalidate the tagged entry
	removed, err := cache.InvalidateTag("group")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Gather metrics from registry
	metricFamilies, err := metricsRegistry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	// Verify cache metrics exist and have correct values
	metricsByName := make(map[string]*dto.MetricFamily)
	for _, mf := range metricFamilies {
		metricsByName[*mf.Name] = mf
	}

	// Check hits metric
	hitsMetric := metricsByName["datalink_cache_hits_total"]
	require.NotNil(t, hitsMetric, "hits metric should exist")
	assert.Equal(t, float64(1), *hitsMetric.Metric[0].Counter.Value, "should have 1 hit")

	// Check misses metric
	missesMetric := metricsByName["datalink_cache_misses_total"]
	require.NotNil(t, missesMetric, "misses metric should exist")
	assert.Equal(t, float64(1), *missesMetric.Metric[0].Counter.Value, "should have 1 miss")

	// Check sets metric
	setsMetric := metricsByName["datalink_cache_sets_total"]
	require.NotNil(t, setsMetric, "sets metric should exist")
	assert.Equal(t, float64(2), *setsMetric.Metric[0].Counter.Value, "should have 2 sets")

	// Check invalidations metric
	invalidationsMetric := metricsByName["datalink_cache_invalidations_total"]
	require.NotNil(t, invalidationsMetric, "invalidations metric should exist")
	assert.Equal(t, float64(1), *invalidationsMetric.Metric[0].Counter.Value, "should have 1 invalidation")

	// Check size metric
	sizeMetric := metricsByName["datalink_cache_size"]
	require.NotNil(t, sizeMetric, "size metric should exist")
	assert.Equal(t, float64(1), *sizeMetric.Metric[0].Gauge.Value, "should have 1 item remaining")

	// Check component label
	assert.Equal(t, "test_cache", *hitsMetric.Metric[0].Label[0].Value, "should have correct component label")
}

func TestCacheWithoutMetrics(t *testing.T) {
	// Create cache without metrics registry
	cfg := Config{Enabled: true, MaxSize: 10, TTL: time.Minute, CleanupInterval: time.Minute}
	cache, err := New[string](context.Background(), cfg)
	require.NoError(t, err)
	defer cache.Close()

	// Perform cache operations
	_, _ = cache.Set("key1", "value1")
	val, found := cache.Get("key1")
	assert.True(t, found)
	assert.Equal(t, "value1", val)

	// Should work without errors even though no metrics are configured
}

func TestCacheStatsAlwaysEnabled(t *testing.T) {
	// Create metrics registry
	metricsRegistry := metric.NewMetricsRegistry()

	// Stats are always on; only metrics need to be explicitly enabled
	cfg := Config{Enabled: true, MaxSize: 10, TTL: time.Minute, CleanupInterval: time.Minute}
	cache, err := New[string](context.Background(), cfg, WithMetrics[string](metricsRegistry, "test_cache"))
	require.NoError(t, err)
	defer cache.Close()

	tagged := cache.(*store[string])
	assert.NotNil(t, tagged.metrics, "metrics should be enabled")
	assert.NotNil(t, tagged.stats, "stats should always be enabled")
}
