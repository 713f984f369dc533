package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
	"github.com/couchcryptid/quake-monitor-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func TestCachedGeocoder_RoundedKeyHits(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Anchorage, Alaska, United States"}}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, 10, metrics)

	_, err := cached.ReverseGeocode(context.Background(), 61.21811, -149.90021)
	require.NoError(t, err)
	r, err := cached.ReverseGeocode(context.Background(), 61.21832, -149.90005)
	require.NoError(t, err)

	assert.Equal(t, "Anchorage, Alaska, United States", r.FormattedAddress)
	assert.Equal(t, 1, inner.calls, "nearby coordinates share a cache entry")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")), 1e-9)
}

func TestCachedGeocoder_DistinctCoordinatesMiss(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Somewhere"}}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), 35.0, 139.0)
	_, _ = cached.ReverseGeocode(context.Background(), 35.01, 139.0)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, cached.Len())
}

func TestCachedGeocoder_EmptyAndErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ReverseGeocode(context.Background(), -20.1, -175.2)
	_, _ = cached.ReverseGeocode(context.Background(), -20.1, -175.2)
	assert.Equal(t, 2, inner.calls)

	inner.err = errors.New("timeout")
	_, err := cached.ReverseGeocode(context.Background(), -20.1, -175.2)
	require.Error(t, err)
	assert.Zero(t, cached.Len())
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "rev:61.218,-149.900", cacheKey(61.21811, -149.90021))
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A"})
	c.put("b", domain.GeocodingResult{PlaceName: "B"})
	c.put("c", domain.GeocodingResult{PlaceName: "C"})

	_, ok := c.get("a")
	assert.False(t, ok, "oldest entry evicted")
	_, ok = c.get("b")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A"})
	c.put("b", domain.GeocodingResult{PlaceName: "B"})
	c.get("a")
	c.put("c", domain.GeocodingResult{PlaceName: "C"})

	_, ok := c.get("a")
	assert.True(t, ok)
	_, ok = c.get("b")
	assert.False(t, ok)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A1"})
	c.put("a", domain.GeocodingResult{PlaceName: "A2"})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result.PlaceName)
	assert.Equal(t, 1, c.len())
}
