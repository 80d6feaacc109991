package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// ScoreCache remembers relevance scores per (profile, summary, job, key terms).
// The summary is part of the key, so a re-ingested profile never hits a score
// computed for its old content. Entries expire after ttl and the least
// recently used entry is evicted once maxSize is reached.
type ScoreCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	profileID string
	score     float64
	timestamp time.Time
}

func NewScoreCache(maxSize int, ttl time.Duration) *ScoreCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ScoreCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key derives the cache key for one scoring request.
func Key(profileID, summary, jobText string, keyTerms []string) string {
	summaryHash := sha256.Sum256([]byte(summary))

	h := sha256.New()
	for _, part := range []string{profileID, hex.EncodeToString(summaryHash[:]), jobText, strings.Join(keyTerms, "\x1f")} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func (c *ScoreCache) Get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return 0, false
	}
	if c.now().Sub(entry.timestamp) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return 0, false
	}
	c.moveToEnd(key)
	return entry.score, true
}

func (c *ScoreCache) Put(key, profileID string, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &cacheEntry{profileID: profileID, score: score, timestamp: c.now()}
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry{profileID: profileID, score: score, timestamp: c.now()}
	c.order = append(c.order, key)
}

// InvalidateProfile drops every score recorded for profileID.
func (c *ScoreCache) InvalidateProfile(profileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.order[:0]
	for _, key := range c.order {
		if c.entries[key].profileID == profileID {
			delete(c.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
}

func (c *ScoreCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ScoreCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *ScoreCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *ScoreCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
