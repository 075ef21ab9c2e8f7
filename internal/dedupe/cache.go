// ABOUTME: Thread-safe TTL cache of request idempotency keys
// ABOUTME: Lets the API reject a replayed mutating request within a time window

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type cacheEntry struct {
	claimed time.Time
	element *list.Element
}

// Cache remembers claimed keys for ttl, holding at most maxSize of them.
// The oldest claim is evicted first when full.
type Cache struct {
	mu      sync.Mutex
	claims  map[string]*cacheEntry
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a cache and starts its background sweep. Call Close to stop it.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		claims:  make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Claim records key and reports whether this call is the first within the
// TTL. A false return means the key was already claimed.
func (c *Cache) Claim(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, ok := c.claims[key]; ok {
		if now.Sub(entry.claimed) < c.ttl {
			return false
		}
		entry.claimed = now
		c.order.MoveToBack(entry.element)
		return true
	}

	if len(c.claims) >= c.maxSize {
		c.evictOldest()
	}
	c.claims[key] = &cacheEntry{claimed: now, element: c.order.PushBack(key)}
	return true
}

// Release drops key so a failed request can be retried with it.
func (c *Cache) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.claims[key]; ok {
		c.order.Remove(entry.element)
		delete(c.claims, key)
	}
}

// Len returns the number of live claims.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.claims)
}

// Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.claims, key)
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep drops expired claims. Claims are ordered by time, so it stops at the
// first live one.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for e := c.order.Front(); e != nil; {
		key, _ := e.Value.(string)
		entry := c.claims[key]
		if now.Sub(entry.claimed) < c.ttl {
			return
		}
		next := e.Next()
		c.order.Remove(e)
		delete(c.claims, key)
		e = next
	}
}

// Close stops the background sweep. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
