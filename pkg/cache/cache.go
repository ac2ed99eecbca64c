// Package cache memoises schedules and lap tables for the lifetime of the process.
package cache

import (
	"fmt"
	"strings"
	"sync"
)

type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: map[K]V{}}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = value
}

// Reset drops every entry.
func (c *Cache[K, V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = map[K]V{}
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Key identifies a lap table. Event names compare case insensitively.
type Key struct {
	Season int
	Event  string
}

func NewKey(season int, event string) Key {
	return Key{Season: season, Event: strings.ToLower(strings.TrimSpace(event))}
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s", k.Season, k.Event)
}
