package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_AddGetRoundTrip(t *testing.T) {
	c := New[string]()
	c.Add("key", "value", time.Minute)

	entry, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", entry.Value)
	assert.False(t, entry.Expired(time.Now()))
}

func TestCache_GetMissing(t *testing.T) {
	c := New[string]()

	entry, ok := c.Get("absent")
	assert.False(t, ok)
	assert.Nil(t, entry)

	entry, ok = c.Get("")
	assert.False(t, ok)
	assert.Nil(t, entry)
}

func TestCache_ExpiredEntryStillReturned(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := New[int](WithClock(clock))

	c.Add("key", 42, time.Second)
	now = now.Add(2 * time.Second)

	entry, ok := c.Get("key")
	require.True(t, ok, "expired entries must stay visible to the caller")
	assert.Equal(t, 42, entry.Value)
	assert.True(t, entry.Expired(now))
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c := New[string]()
	c.Add("key", "value", 0)

	entry, ok := c.Get("key")
	require.True(t, ok)
	assert.False(t, entry.Expired(time.Now().Add(24*time.Hour)))
}

func TestCache_OverwriteLastWriteWins(t *testing.T) {
	c := New[string]()
	c.Add("key", "first", time.Minute)
	c.Add("key", "second", time.Minute)

	entry, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "second", entry.Value)
	assert.Equal(t, 1, c.Len())
}

func TestCache_RemoveAndClear(t *testing.T) {
	c := New[string]()
	c.Add("a", "1", time.Minute)
	c.Add("b", "2", time.Minute)

	c.Remove("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_MaxSizeEvictsOldest(t *testing.T) {
	c := New[int](WithMaxSize(2))
	c.Add("a", 1, time.Minute)
	c.Add("b", 2, time.Minute)
	c.Add("c", 3, time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int]()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.Add(fmt.Sprintf("key-%d", n%10), n, time.Minute)
		}(i)
		go func(n int) {
			defer wg.Done()
			c.Get(fmt.Sprintf("key-%d", n%10))
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 10)
}
