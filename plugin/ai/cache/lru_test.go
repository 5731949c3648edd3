package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRU_BasicOperations(t *testing.T) {
	c := NewLRU[string](100, time.Minute)

	t.Run("SetAndGet", func(t *testing.T) {
		c.Set("key1", "value1")

		val, ok := c.Get("key1")
		assert.True(t, ok)
		assert.Equal(t, "value1", val)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		val, ok := c.Get("nonexistent")
		assert.False(t, ok)
		assert.Empty(t, val)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		c.Set("key2", "original")
		c.Set("key2", "updated")

		val, ok := c.Get("key2")
		assert.True(t, ok)
		assert.Equal(t, "updated", val)
	})
}

func TestLRU_Expiration(t *testing.T) {
	c := NewLRU[string](10, time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("expiring", "value")
	_, ok := c.Get("expiring")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("expiring")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[int](3, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch "a" so "b" becomes the oldest.
	_, _ = c.Get("a")
	c.Set("d", 4)

	_, ok := c.Get("b")
	assert.False(t, ok)
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, key)
	}
	assert.Equal(t, 3, c.Len())
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int](50, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*100+j)%75)
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
