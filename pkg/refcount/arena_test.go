// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package refcount

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	name string
}

func TestCountTryGetAfterZero(t *testing.T) {
	var c Count
	c.Init()

	require.True(t, c.TryGet())
	assert.False(t, c.Put())
	assert.True(t, c.Put())
	assert.False(t, c.TryGet(), "count must not be revived once it reached zero")
	assert.Equal(t, int64(0), c.Load())
}

func TestCountPutUnderflowPanics(t *testing.T) {
	var c Count
	c.Init()
	c.Put()
	assert.Panics(t, func() { c.Put() })
}

func TestArenaLifecycle(t *testing.T) {
	var freed []string
	a := NewArena(func(it *item) { freed = append(freed, it.name) })

	h := a.Insert(&item{name: "ctx1"})
	assert.NotEqual(t, Nil, h)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, int64(1), a.Refs(h))

	v, ok := a.TryAcquire(h)
	require.True(t, ok)
	assert.Equal(t, "ctx1", v.name)
	assert.Equal(t, int64(2), a.Refs(h))

	a.Release(h)
	assert.Empty(t, freed)

	a.Release(h)
	assert.Equal(t, []string{"ctx1"}, freed)
	assert.Equal(t, 0, a.Len())

	_, ok = a.TryAcquire(h)
	assert.False(t, ok)
	assert.Equal(t, int64(0), a.Refs(h))
}

func TestArenaStaleHandleAfterReuse(t *testing.T) {
	a := NewArena[item](nil)

	h1 := a.Insert(&item{name: "old"})
	a.Release(h1)

	h2 := a.Insert(&item{name: "new"})
	assert.Equal(t, h1.index(), h2.index(), "slot should be reused")
	assert.NotEqual(t, h1, h2)

	_, ok := a.TryAcquire(h1)
	assert.False(t, ok, "stale handle must not resolve to the new value")

	v, ok := a.TryAcquire(h2)
	require.True(t, ok)
	assert.Equal(t, "new", v.name)
	a.Release(h2)
}

func TestArenaNilHandle(t *testing.T) {
	a := NewArena[item](nil)
	_, ok := a.TryAcquire(Nil)
	assert.False(t, ok)
	assert.Panics(t, func() { a.Release(Nil) })
}

func TestArenaRangeSkipsReleased(t *testing.T) {
	a := NewArena[item](nil)
	h1 := a.Insert(&item{name: "a"})
	h2 := a.Insert(&item{name: "b"})
	a.Release(h1)

	var names []string
	a.Range(func(h Handle, it *item) bool {
		assert.Equal(t, h2, h)
		names = append(names, it.name)
		return true
	})
	assert.Equal(t, []string{"b"}, names)
	assert.Equal(t, int64(1), a.Refs(h2), "range must drop its temporary reference")
}

func TestArenaConcurrentAcquireRelease(t *testing.T) {
	var mu sync.Mutex
	frees := 0
	a := NewArena(func(*item) {
		mu.Lock()
		frees++
		mu.Unlock()
	})
	h := a.Insert(&item{name: "busy"})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if _, ok := a.TryAcquire(h); ok {
					a.Release(h)
				}
			}
		}()
	}

	a.Release(h)
	wg.Wait()

	assert.Equal(t, 1, frees)
	_, ok := a.TryAcquire(h)
	assert.False(t, ok)
}
