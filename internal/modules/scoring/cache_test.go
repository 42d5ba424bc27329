package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketdoctor/internal/domain"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "BTCUSDT|1h|1700000000000", cacheKey("BTCUSDT", domain.TF1h, 1_700_000_000_000))
}

func TestCacheLRUEviction(t *testing.T) {
	c := newScoreCache(2, time.Minute)
	a, b, d := &Evaluation{}, &Evaluation{}, &Evaluation{}

	c.put("k1", a)
	c.put("k2", b)

	// Touch k1 so k2 becomes the coldest entry.
	_, ok := c.get("k1")
	require.True(t, ok)

	c.put("k3", d)

	_, ok = c.get("k2")
	assert.False(t, ok, "coldest entry must be evicted")
	got, ok := c.get("k1")
	require.True(t, ok)
	assert.Same(t, a, got)
	got, ok = c.get("k3")
	require.True(t, ok)
	assert.Same(t, d, got)
	assert.Equal(t, 2, c.len())
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newScoreCache(4, time.Minute)
	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }

	c.put("k1", &Evaluation{})
	_, ok := c.get("k1")
	require.True(t, ok)

	c.now = func() time.Time { return base.Add(61 * time.Second) }
	_, ok = c.get("k1")
	assert.False(t, ok, "entry past its TTL must read as a miss")
	assert.Zero(t, c.len(), "expired entries are dropped on access")
}

func TestCachePurge(t *testing.T) {
	c := newScoreCache(4, time.Minute)
	c.put("k1", &Evaluation{})
	c.put("k2", &Evaluation{})

	c.purge()

	assert.Zero(t, c.len())
	_, ok := c.get("k1")
	assert.False(t, ok)
}

func TestCachePutUpdatesExistingKey(t *testing.T) {
	c := newScoreCache(4, time.Minute)
	a, b := &Evaluation{}, &Evaluation{}

	c.put("k1", a)
	c.put("k1", b)

	assert.Equal(t, 1, c.len())
	got, ok := c.get("k1")
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestCacheZeroSizeDisables(t *testing.T) {
	c := newScoreCache(0, time.Minute)

	c.put("k1", &Evaluation{})

	_, ok := c.get("k1")
	assert.False(t, ok)
	assert.Zero(t, c.len())
}
