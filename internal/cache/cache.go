// Package cache keeps result sets of previously seen filter combinations for one session.
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// All is the signature of an unfiltered collection.
const All = "ALL"

// Signature builds the canonical key of a filter set: sorted, de-duplicated, comma-joined.
// An empty set yields All.
func Signature(filters ...string) string {
	set := make(map[string]struct{}, len(filters))
	keys := make([]string, 0, len(filters))
	for _, f := range filters {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, dup := set[f]; dup {
			continue
		}
		set[f] = struct{}{}
		keys = append(keys, f)
	}
	if len(keys) == 0 {
		return All
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// Entry is a cached result set plus the window it was fetched for.
type Entry[T any] struct {
	Items  []T
	Total  int
	Offset int
	Limit  int
}

type entry[T any] struct {
	Entry[T]
	expireAt time.Time // zero => no TTL
}

// Cache maps a filter signature to the items fetched for it. Safe for concurrent use.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	ttl     time.Duration
	now     func() time.Time
}

// New constructs a cache. ttl <= 0 keeps entries until Clear.
func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{entries: make(map[string]entry[T]), ttl: ttl, now: time.Now}
}

// Get returns a copy of the items stored under signature.
func (c *Cache[T]) Get(signature string) ([]T, bool) {
	e, ok := c.Lookup(signature)
	return e.Items, ok
}

// Lookup returns a copy of the whole entry stored under signature.
func (c *Cache[T]) Lookup(signature string) (Entry[T], bool) {
	c.mu.RLock()
	e, ok := c.entries[signature]
	c.mu.RUnlock()
	if !ok {
		return Entry[T]{}, false
	}
	if !e.expireAt.IsZero() && !c.now().Before(e.expireAt) {
		c.mu.Lock()
		// re-check: a concurrent Put may have refreshed it
		if cur, still := c.entries[signature]; still && cur.expireAt.Equal(e.expireAt) {
			delete(c.entries, signature)
		}
		c.mu.Unlock()
		return Entry[T]{}, false
	}
	out := e.Entry
	out.Items = append([]T(nil), e.Items...)
	return out, true
}

// Put stores items under signature, replacing any previous entry.
func (c *Cache[T]) Put(signature string, items []T) {
	c.Store(signature, Entry[T]{Items: items, Total: len(items), Limit: len(items)})
}

// Store is Put with the remote total and fetch window.
func (c *Cache[T]) Store(signature string, in Entry[T]) {
	in.Items = append([]T(nil), in.Items...)
	e := entry[T]{Entry: in}
	if c.ttl > 0 {
		e.expireAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[signature] = e
	c.mu.Unlock()
}

// Delete drops the entry stored under signature.
func (c *Cache[T]) Delete(signature string) {
	c.mu.Lock()
	delete(c.entries, signature)
	c.mu.Unlock()
}

// Remove drops items matching match from every entry and lowers their totals.
func (c *Cache[T]) Remove(match func(T) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sig, e := range c.entries {
		kept := e.Items[:0:0]
		for _, it := range e.Items {
			if !match(it) {
				kept = append(kept, it)
			}
		}
		if removed := len(e.Items) - len(kept); removed > 0 {
			e.Items = kept
			e.Total = max(0, e.Total-removed)
			c.entries[sig] = e
		}
	}
}

// Clear drops all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[T])
	c.mu.Unlock()
}

// Len reports the number of live entries.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
