package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyHashStableAndFilterOrderIndependent(t *testing.T) {
	k1 := Key{SessionID: "s1", Filters: map[string]string{"category": "tops", "color": "blue"}, Count: 5, HistoryLength: 3}
	k2 := Key{SessionID: "s1", Filters: map[string]string{"color": "blue", "category": "tops"}, Count: 5, HistoryLength: 3}
	assert.Equal(t, k1.Hash(), k2.Hash())
}

func TestKeyHashChangesWithHistoryLength(t *testing.T) {
	k1 := Key{SessionID: "s1", Count: 5, HistoryLength: 3}
	k2 := Key{SessionID: "s1", Count: 5, HistoryLength: 4}
	assert.NotEqual(t, k1.Hash(), k2.Hash())
}

func TestGetSetRoundTrip(t *testing.T) {
	c := New(Config{Enabled: true, TTL: time.Minute, MaxEntries: 10})
	k := Key{SessionID: "s1", Count: 5}.Hash()

	_, ok := c.Get(k)
	assert.False(t, ok)

	c.Set("s1", k, []byte("payload"))
	v, ok := c.Get(k)
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), v)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c := New(Config{Enabled: false, TTL: time.Minute, MaxEntries: 10})
	c.Set("s1", "k", []byte("v"))
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c := New(Config{Enabled: true, TTL: 5 * time.Millisecond, MaxEntries: 10})
	c.Set("s1", "k", []byte("v"))
	time.Sleep(10 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestLRUEvictsOldest(t *testing.T) {
	c := New(Config{Enabled: true, TTL: time.Minute, MaxEntries: 2})
	c.Set("s1", "a", []byte("1"))
	c.Set("s1", "b", []byte("2"))
	c.Set("s1", "c", []byte("3")) // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestInvalidateSession(t *testing.T) {
	c := New(Config{Enabled: true, TTL: time.Minute, MaxEntries: 10})
	c.Set("s1", "a", []byte("1"))
	c.Set("s1", "b", []byte("2"))
	c.Set("s2", "c", []byte("3"))

	c.InvalidateSession("s1")

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok, "other sessions unaffected")
}

func TestResetClearsEntriesAndCounters(t *testing.T) {
	c := New(Config{Enabled: true, TTL: time.Minute, MaxEntries: 10})
	c.Set("s1", "a", []byte("1"))
	c.Get("a")
	c.Get("missing")

	c.Reset()
	stats := c.Stats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}
