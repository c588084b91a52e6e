package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache holds list responses keyed by normalised query. Entries leave the
// cache when they are older than ttl or when maxSize is exceeded, oldest use
// first.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	index map[string]*list.Element
	order *list.List // front is most recently used
	gen   uint64     // bumped by Clear
}

var _ Cache[int] = (*LRUCache[int])(nil)

type entry[T any] struct {
	key     string
	value   T
	storeAt time.Time
}

func (e *entry[T]) stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.storeAt) > ttl
}

// NewLRUCache returns an empty cache. A maxSize below 1 is treated as 1.
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		index:   map[string]*list.Element{},
		order:   list.New(),
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	e := el.Value.(*entry[T])
	if e.stale(c.now(), c.ttl) {
		c.drop(el)
		var zero T
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value)
}

// Generation identifies the cache contents between two Clear calls.
func (c *LRUCache[T]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetIfGeneration stores value only if Clear has not run since gen was
// read. A value computed before a write then never outlives the write's
// invalidation.
func (c *LRUCache[T]) SetIfGeneration(key string, value T, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.put(key, value)
	return true
}

func (c *LRUCache[T]) put(key string, value T) {
	e := &entry[T]{key: key, value: value, storeAt: c.now()}
	if el, ok := c.index[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(e)
	for c.order.Len() > c.maxSize {
		c.drop(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.drop(el)
	}
}

// Clear empties the cache. The server calls it after every write so that no
// list response outlives the data it was built from.
func (c *LRUCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.index)
	c.order.Init()
	c.gen++
}

// CleanExpired drops stale entries and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*entry[T]).stale(now, c.ttl) {
			c.drop(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}
