// internal/memory/lru.go
package memory

import (
	"encoding/json"
	"sync"
)

// DefaultCapacity is used when a non-positive capacity is configured.
const DefaultCapacity = 1000

type lruEntry struct {
	key   string
	value json.RawMessage
	prev  *lruEntry
	next  *lruEntry
}

// ShortTerm is a fixed-capacity LRU of the latest record per customer.
// Recency is refreshed on both Put and Get. One mutex guards every
// operation, including the size check and eviction that follow an insert.
type ShortTerm struct {
	mu sync.Mutex

	capacity int
	items    map[string]*lruEntry

	// head.next is the most recently used, tail.prev the least.
	head *lruEntry
	tail *lruEntry

	hits      uint64
	misses    uint64
	evictions uint64
}

// ShortTermStats describes cache occupancy.
type ShortTermStats struct {
	CurrentSize        int     `json:"current_size"`
	Capacity           int     `json:"capacity"`
	UtilizationPercent float64 `json:"utilization_percent"`
	Hits               uint64  `json:"hits"`
	Misses             uint64  `json:"misses"`
	Evictions          uint64  `json:"evictions"`
}

func NewShortTerm(capacity int) *ShortTerm {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &ShortTerm{
		capacity: capacity,
		items:    make(map[string]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Put inserts or replaces key and marks it most recently used. It reports
// the evicted key, if any.
func (c *ShortTerm) Put(key string, value json.RawMessage) (evicted string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.items[key]; exists {
		e.value = value
		c.moveToFront(e)
		return "", false
	}

	e := &lruEntry{key: key, value: value}
	c.addToFront(e)
	c.items[key] = e

	if len(c.items) > c.capacity {
		oldest := c.tail.prev
		c.removeEntry(oldest)
		c.evictions++
		return oldest.key, true
	}
	return "", false
}

// Get returns the value of key and marks it most recently used.
func (c *ShortTerm) Get(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.items[key]
	if !exists {
		c.misses++
		return nil, false
	}
	c.moveToFront(e)
	c.hits++
	return e.value, true
}

// Snapshot copies the current contents. Order is unspecified.
func (c *ShortTerm) Snapshot() map[string]json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]json.RawMessage, len(c.items))
	for k, e := range c.items {
		out[k] = e.value
	}
	return out
}

// Keys returns keys from most to least recently used.
func (c *ShortTerm) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for e := c.head.next; e != c.tail; e = e.next {
		keys = append(keys, e.key)
	}
	return keys
}

// oldestFirst copies keys and values from least to most recently used under
// a single lock.
func (c *ShortTerm) oldestFirst() ([]string, map[string]json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	values := make(map[string]json.RawMessage, len(c.items))
	for e := c.tail.prev; e != c.head; e = e.prev {
		keys = append(keys, e.key)
		values[e.key] = e.value
	}
	return keys, values
}

func (c *ShortTerm) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lruEntry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

func (c *ShortTerm) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *ShortTerm) Stats() ShortTermStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ShortTermStats{
		CurrentSize:        len(c.items),
		Capacity:           c.capacity,
		UtilizationPercent: round2(float64(len(c.items)) / float64(c.capacity) * 100),
		Hits:               c.hits,
		Misses:             c.misses,
		Evictions:          c.evictions,
	}
}

func (c *ShortTerm) addToFront(e *lruEntry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *ShortTerm) removeFromList(e *lruEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *ShortTerm) moveToFront(e *lruEntry) {
	c.removeFromList(e)
	c.addToFront(e)
}

func (c *ShortTerm) removeEntry(e *lruEntry) {
	c.removeFromList(e)
	delete(c.items, e.key)
}
