package cache

import (
	"container/list"
	"sync"
	"time"
)

// EvictReason says why an entry left an LRUCache.
type EvictReason int

const (
	EvictExpired EvictReason = iota
	EvictCapacity
	EvictDeleted
)

func (r EvictReason) String() string {
	switch r {
	case EvictExpired:
		return "expired"
	case EvictCapacity:
		return "capacity"
	default:
		return "deleted"
	}
}

// Options tunes an LRUCache.
type Options struct {
	// MaxEntries bounds the cache; the least recently used entry goes first.
	MaxEntries int
	// TTL is an idle timeout: every Get or Set pushes the deadline out again.
	TTL time.Duration
	// OnEvict, when set, is called outside the lock for every removed entry.
	OnEvict func(key string, reason EvictReason)
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// LRUCache is a size-bounded map whose entries expire after TTL of
// inactivity.
type LRUCache[T any] struct {
	mu      sync.Mutex
	opts    Options
	index   map[string]*list.Element
	recency *list.List // front = most recently touched
}

type entry[T any] struct {
	key      string
	value    T
	deadline time.Time
}

type eviction struct {
	key    string
	reason EvictReason
}

// NewLRUCache keeps up to maxSize entries for ttl of inactivity each.
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return NewLRUCacheWithOptions[T](Options{MaxEntries: maxSize, TTL: ttl})
}

func NewLRUCacheWithOptions[T any](opts Options) *LRUCache[T] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LRUCache[T]{
		opts:    opts,
		index:   make(map[string]*list.Element),
		recency: list.New(),
	}
}

// Get returns the live value for key and refreshes its deadline.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	var (
		zero    T
		evicted []eviction
	)
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[T])
	now := c.opts.Now()
	if now.After(e.deadline) {
		c.unlink(el)
		evicted = append(evicted, eviction{key, EvictExpired})
		return zero, false
	}
	e.deadline = now.Add(c.opts.TTL)
	c.recency.MoveToFront(el)
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *LRUCache[T]) Set(key string, value T) {
	var evicted []eviction
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := c.opts.Now().Add(c.opts.TTL)
	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry[T])
		e.value, e.deadline = value, deadline
		c.recency.MoveToFront(el)
		return
	}

	c.index[key] = c.recency.PushFront(&entry[T]{key: key, value: value, deadline: deadline})
	for c.recency.Len() > c.opts.MaxEntries {
		oldest := c.recency.Back()
		evicted = append(evicted, eviction{oldest.Value.(*entry[T]).key, EvictCapacity})
		c.unlink(oldest)
	}
}

func (c *LRUCache[T]) Delete(key string) {
	var evicted []eviction
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.unlink(el)
		evicted = append(evicted, eviction{key, EvictDeleted})
	}
}

// CleanExpired drops every entry past its deadline and returns how many
// were removed.
func (c *LRUCache[T]) CleanExpired() int {
	var evicted []eviction
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Now()
	// Deadlines follow recency, so the back of the list expires first.
	for el := c.recency.Back(); el != nil; el = c.recency.Back() {
		e := el.Value.(*entry[T])
		if !now.After(e.deadline) {
			break
		}
		c.unlink(el)
		evicted = append(evicted, eviction{e.key, EvictExpired})
	}
	return len(evicted)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *LRUCache[T]) unlink(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.recency.Remove(el)
}

func (c *LRUCache[T]) notify(evicted []eviction) {
	if c.opts.OnEvict == nil {
		return
	}
	for _, ev := range evicted {
		c.opts.OnEvict(ev.key, ev.reason)
	}
}
