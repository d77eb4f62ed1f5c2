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
package cache

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPut(t *testing.T) {
	c := New(10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Put("a", []byte("body-a"))
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("body-a"), got)

	// Storing over a key refreshes the value.
	c.Put("a", []byte("body-a2"))
	got, ok = c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("body-a2"), got)
	assert.Equal(t, 1, c.Len())
}

func TestCapacityNeverExceeded(t *testing.T) {
	c := New(3, time.Minute)
	for i := 0; i < 50; i++ {
		c.Put(fmt.Sprintf("key-%d", i), []byte("x"))
		assert.LessOrEqual(t, c.Len(), 3)
	}
	assert.Equal(t, 3, c.Len())
}

func TestLRUEviction(t *testing.T) {
	c := New(2, time.Minute)
	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))

	// Touch a so b becomes least recently used.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", []byte("3"))

	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c := New(10, 10*time.Minute)
	clock := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Put("a", []byte("1"))

	clock = clock.Add(9 * time.Minute)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clock = clock.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "expired entry must never be returned")
	assert.Equal(t, 0, c.Len(), "expired entry is removed on read")
}

func TestPutTTLOverride(t *testing.T) {
	c := New(10, time.Hour)
	clock := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.PutTTL("short", []byte("1"), time.Minute)
	clock = clock.Add(2 * time.Minute)
	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("GET:/api/datasets/cea/stats", []byte("1"))
	c.Put("GET:/api/datasets/cea/agents/top", []byte("2"))
	c.Put("GET:/api/datasets/other/stats", []byte("3"))

	removed := c.Invalidate("cea")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("GET:/api/datasets/other/stats")
	assert.True(t, ok)
}

func TestClear(t *testing.T) {
	c := New(10, time.Minute)
	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))

	assert.Equal(t, 2, c.Clear())
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Clear())
}

func TestStats(t *testing.T) {
	c := New(5, time.Minute)
	c.Put("a", []byte("1"))

	_, _ = c.Get("a")
	_, _ = c.Get("a")
	_, _ = c.Get("missing")

	s := c.Stats()
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, 1, s.Size)
	assert.Equal(t, 5, s.Capacity)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 0.001)
}

func TestFill(t *testing.T) {
	t.Run("caches the produced value", func(t *testing.T) {
		c := New(10, time.Minute)
		calls := 0
		fill := func() ([]byte, error) {
			calls++
			return []byte("produced"), nil
		}

		v, hit, err := c.Fill("k", fill)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, []byte("produced"), v)

		v, hit, err = c.Fill("k", fill)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, []byte("produced"), v)
		assert.Equal(t, 1, calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		c := New(10, time.Minute)
		boom := errors.New("boom")

		_, _, err := c.Fill("k", func() ([]byte, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)

		v, hit, err := c.Fill("k", func() ([]byte, error) { return []byte("ok"), nil })
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, []byte("ok"), v)
	})

	t.Run("concurrent misses share one execution", func(t *testing.T) {
		c := New(10, time.Minute)
		var calls atomic.Int32
		release := make(chan struct{})
		fill := func() ([]byte, error) {
			calls.Add(1)
			<-release
			return []byte("once"), nil
		}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, _, err := c.Fill("k", fill)
				assert.NoError(t, err)
				assert.Equal(t, []byte("once"), v)
			}()
		}
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestKey(t *testing.T) {
	assert.Equal(t, "GET:/api/datasets", Key("GET", "/api/datasets", nil))

	q1 := url.Values{"b": {"2"}, "a": {"1"}}
	q2 := url.Values{"a": {"1"}, "b": {"2"}}
	assert.Equal(t, Key("GET", "/p", q1), Key("GET", "/p", q2),
		"parameter order must not change the key")
	assert.Equal(t, "GET:/p?a=1&b=2", Key("GET", "/p", q1))
}
