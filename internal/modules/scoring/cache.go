package scoring

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/marketdoctor/internal/domain"
)

// cacheKey identifies one evaluation: scores are immutable for a given
// (symbol, timeframe, last bar) triple until the weights change.
func cacheKey(symbol string, tf domain.Timeframe, lastBarTS int64) string {
	return fmt.Sprintf("%s|%s|%d", symbol, tf, lastBarTS)
}

type cacheEntry struct {
	key     string
	ev      *Evaluation
	savedAt time.Time
}

// scoreCache is an LRU cache with per-entry TTL. Entries are shared
// pointers; callers treat evaluations as read-only.
type scoreCache struct {
	mu      sync.Mutex
	size    int
	ttl     time.Duration
	entries map[string]*list.Element
	order   *list.List // front is most recently used

	now func() time.Time
}

func newScoreCache(size int, ttl time.Duration) *scoreCache {
	return &scoreCache{
		size:    size,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// get returns a live entry and refreshes its recency. Expired entries are
// dropped on access.
func (c *scoreCache) get(key string) (*Evaluation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*cacheEntry)
	if c.now().Sub(ent.savedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false
	}
	c.order.MoveToFront(el)
	return ent.ev, true
}

// put stores an evaluation, evicting from the cold end when full.
func (c *scoreCache) put(key string, ev *Evaluation) {
	if c.size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*cacheEntry)
		ent.ev = ev
		ent.savedAt = c.now()
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{key: key, ev: ev, savedAt: c.now()})
	c.entries[key] = el
	for len(c.entries) > c.size {
		coldest := c.order.Back()
		if coldest == nil {
			break
		}
		c.order.Remove(coldest)
		delete(c.entries, coldest.Value.(*cacheEntry).key)
	}
}

// purge drops every entry. Called when the active weights change.
func (c *scoreCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// len reports the number of cached entries, expired or not.
func (c *scoreCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
