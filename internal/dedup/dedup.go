// Package dedup suppresses re-delivery of message identities already seen
// on a source.
//
// Each source gets its own Cache; the monitor serializes access per source,
// so the cache itself is not synchronized. Eviction means an old identity may
// come back as "new" later. That staleness is an accepted trade-off, not a bug.
package dedup

const (
	// DefaultCap is the point at which the cache trims itself.
	DefaultCap = 10000
	// DefaultKeep is how many of the most recent identities survive a trim.
	DefaultKeep = 8000
)

// Cache is a bounded, insertion-ordered set of message identities.
type Cache struct {
	cap  int
	keep int

	seen  map[string]struct{}
	order []string
}

// New returns a cache that trims to keep entries once cap is exceeded.
// Non-positive arguments fall back to the defaults.
func New(capacity, keep int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	if keep <= 0 || keep > capacity {
		keep = DefaultKeep
		if keep > capacity {
			keep = capacity
		}
	}
	return &Cache{
		cap:  capacity,
		keep: keep,
		seen: make(map[string]struct{}),
	}
}

// Observe reports whether id is new. The first call for an identity returns
// true and records it; every later call returns false until the entry is
// evicted by a trim.
func (c *Cache) Observe(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := c.seen[id]; ok {
		return false
	}
	c.seen[id] = struct{}{}
	c.order = append(c.order, id)

	if len(c.seen) > c.cap {
		c.trim()
	}
	return true
}

// Len returns the number of identities currently tracked.
func (c *Cache) Len() int { return len(c.seen) }

func (c *Cache) trim() {
	drop := len(c.order) - c.keep
	if drop <= 0 {
		return
	}
	for _, id := range c.order[:drop] {
		delete(c.seen, id)
	}
	c.order = append(c.order[:0:0], c.order[drop:]...)
}
