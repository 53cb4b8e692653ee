package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashbook/internal/log"
)

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestTTL(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewLRUCache[string](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("k", "v")
	c.Set("k2", "v2")

	now = now.Add(2 * time.Second)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())

	hits, misses := c.Stats()
	assert.Zero(t, hits)
	assert.Equal(t, uint64(1), misses)
}

func TestGetOrCompute(t *testing.T) {
	c := NewLRUCache[[]byte](4, time.Minute)
	calls := 0
	render := func() ([]byte, error) {
		calls++
		return []byte("png"), nil
	}
	key := RevisionKey("pie", "png", 7)
	assert.Equal(t, "pie:png:7", key)

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute(key, render)
		require.NoError(t, err)
		assert.Equal(t, []byte("png"), v)
	}
	assert.Equal(t, 1, calls)

	_, err := c.GetOrCompute("bad", func() ([]byte, error) { return nil, errors.New("nope") })
	assert.Error(t, err)
	_, ok := c.Get("bad")
	assert.False(t, ok, "errors are not cached")
}

func TestManager(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewLRUCache[int](4, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)

	m := NewManager(log.Discard())
	m.Register(c)
	now = now.Add(time.Hour)
	assert.Equal(t, 1, m.CleanAll())

	m.StartCleanup(context.Background(), time.Millisecond)
	m.Stop()
	m.Stop()
}
