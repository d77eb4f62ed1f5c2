// Copyright 2026 SG Prop Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides a size-bounded, TTL-expiring, LRU-evicting response
// cache. The cache is advisory: a miss is never an error, and entries expire
// lazily on read. Two pools exist per server, one for light API responses
// and one for heavy analytics.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a fixed-capacity LRU map with per-entry TTL. All methods are safe
// for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = most recently used

	hits   uint64
	misses uint64

	group singleflight.Group

	// now is swappable so tests can drive expiry without sleeping.
	now func() time.Time
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	HitRate  float64 `json:"hitRate"`
}

// New builds a cache holding at most capacity entries, each living for ttl
// unless overridden at Put time.
func New(capacity int, ttl time.Duration) *Cache {
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the cached value and true on a hit. A present-but-expired
// entry is removed and counted as a miss. Hits promote the entry to most
// recently used.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	ent := el.Value.(*entry)
	if c.now().After(ent.expiresAt) {
		c.removeLocked(el)
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return ent.value, true
}

// Put stores value under key with the default TTL.
func (c *Cache) Put(key string, value []byte) {
	c.PutTTL(key, value, c.ttl)
}

// PutTTL stores value with an explicit TTL. Storing over an existing key
// refreshes both value and expiry. At capacity the least-recently-used entry
// is evicted first.
func (c *Cache) PutTTL(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*entry)
		ent.value = value
		ent.expiresAt = c.now().Add(ttl)
		c.order.MoveToFront(el)
		return
	}

	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}
	el := c.order.PushFront(&entry{key: key, value: value, expiresAt: c.now().Add(ttl)})
	c.entries[key] = el
}

// Invalidate removes every entry whose key contains substr and returns the
// number removed. Used for dataset-scoped flushes.
func (c *Cache) Invalidate(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, el := range c.entries {
		if strings.Contains(key, substr) {
			c.removeLocked(el)
			removed++
		}
	}
	return removed
}

// Clear removes everything and returns the number of entries dropped.
// Hit/miss counters survive a clear.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*list.Element, c.capacity)
	c.order.Init()
	return n
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats snapshots the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Size:     len(c.entries),
		Capacity: c.capacity,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Fill returns the cached value for key, or runs fill once — concurrent
// callers for the same missing key share a single execution — and caches its
// result. fill errors are returned without caching.
func (c *Cache) Fill(key string, fill func() ([]byte, error)) ([]byte, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		body, err := fill()
		if err != nil {
			return nil, err
		}
		c.Put(key, body)
		return body, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

func (c *Cache) removeLocked(el *list.Element) {
	ent := el.Value.(*entry)
	delete(c.entries, ent.key)
	c.order.Remove(el)
}
