package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyDependsOnEveryPart(t *testing.T) {
	base := Key("a", "summary", "job", []string{"Go"})
	assert.Equal(t, base, Key("a", "summary", "job", []string{"Go"}))
	assert.NotEqual(t, base, Key("b", "summary", "job", []string{"Go"}))
	assert.NotEqual(t, base, Key("a", "summary v2", "job", []string{"Go"}))
	assert.NotEqual(t, base, Key("a", "summary", "other job", []string{"Go"}))
	assert.NotEqual(t, base, Key("a", "summary", "job", []string{"Go", "SQL"}))
	assert.NotEqual(t, Key("ab", "c", "job", nil), Key("a", "bc", "job", nil))
}

func TestGetPut(t *testing.T) {
	c := NewScoreCache(4, time.Minute)
	k := Key("a", "s", "j", nil)

	_, ok := c.Get(k)
	assert.False(t, ok)

	c.Put(k, "a", 0.7)
	v, ok := c.Get(k)
	assert.True(t, ok)
	assert.Equal(t, 0.7, v)

	c.Put(k, "a", 0.9)
	v, _ = c.Get(k)
	assert.Equal(t, 0.9, v)
	assert.Equal(t, 1, c.Size())
}

func TestExpiry(t *testing.T) {
	c := NewScoreCache(4, time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Put("k", "a", 0.5)
	now = now.Add(2 * time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestLRUEviction(t *testing.T) {
	c := NewScoreCache(2, time.Minute)
	c.Put("k1", "a", 0.1)
	c.Put("k2", "b", 0.2)
	_, _ = c.Get("k1")
	c.Put("k3", "c", 0.3)

	_, ok := c.Get("k2")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("k1")
	assert.True(t, ok)
	_, ok = c.Get("k3")
	assert.True(t, ok)
}

func TestInvalidateProfile(t *testing.T) {
	c := NewScoreCache(10, time.Minute)
	c.Put("k1", "a", 0.1)
	c.Put("k2", "b", 0.2)
	c.Put("k3", "a", 0.3)

	c.InvalidateProfile("a")
	assert.Equal(t, 1, c.Size())
	_, ok := c.Get("k2")
	assert.True(t, ok)

	c.InvalidateProfile("b")
	assert.Zero(t, c.Size())
}

func TestConcurrentAccess(t *testing.T) {
	c := NewScoreCache(16, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				k := Key("p", "s", "j", []string{string(rune('a' + j%20))})
				c.Put(k, "p", float64(i))
				c.Get(k)
				if j%25 == 0 {
					c.InvalidateProfile("p")
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Size(), 16)
}
