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
	"fmt"
	"sync"
)

// Handle identifies an arena slot. The low 32 bits hold the slot index and
// the high 32 bits hold the slot generation, so a handle to a freed slot never
// aliases whatever is stored there next.
type Handle uint64

// Nil is the zero handle. It never resolves.
const Nil Handle = 0

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index))
}

func (h Handle) index() uint32 { return uint32(h) }
func (h Handle) gen() uint32   { return uint32(h >> 32) }

// String implements fmt.Stringer.
func (h Handle) String() string {
	return fmt.Sprintf("%d.%d", h.index(), h.gen())
}

type slot[T any] struct {
	gen  uint32
	refs Count
	val  *T
}

// Arena stores reference-counted values in slots addressed by stable handles.
// A value is freed when its last reference is released; the optional OnFree
// callback observes the value at that point.
type Arena[T any] struct {
	mu     sync.RWMutex
	slots  []*slot[T]
	free   []uint32
	live   int
	onFree func(*T)
}

// NewArena returns an empty arena. onFree may be nil.
func NewArena[T any](onFree func(*T)) *Arena[T] {
	return &Arena[T]{
		// slot 0 is reserved so that Nil never resolves
		slots:  []*slot[T]{{gen: 0}},
		onFree: onFree,
	}
}

// Insert stores v with a reference count of one and returns its handle.
func (a *Arena[T]) Insert(v *T) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, &slot[T]{})
	}

	s := a.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.val = v
	s.refs.Init()
	a.live++

	return makeHandle(idx, s.gen)
}

// TryAcquire takes a reference on the value behind h. It fails once the
// value's count has reached zero or its slot has been reused.
func (a *Arena[T]) TryAcquire(h Handle) (*T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := a.lookup(h)
	if s == nil || !s.refs.TryGet() {
		return nil, false
	}
	return s.val, true
}

// Release drops a reference on h. The value is freed when this was the last one.
func (a *Arena[T]) Release(h Handle) {
	a.mu.RLock()
	s := a.lookup(h)
	a.mu.RUnlock()

	if s == nil {
		panic(fmt.Sprintf("refcount: release of stale handle %s", h))
	}
	if !s.refs.Put() {
		return
	}

	a.mu.Lock()
	v := s.val
	s.val = nil
	a.free = append(a.free, h.index())
	a.live--
	a.mu.Unlock()

	if a.onFree != nil && v != nil {
		a.onFree(v)
	}
}

// Refs returns the reference count behind h, or zero when h is stale.
func (a *Arena[T]) Refs(h Handle) int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := a.lookup(h)
	if s == nil {
		return 0
	}
	return s.refs.Load()
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live
}

// Range calls fn for every live value, taking a reference for the duration of
// the call. Values released concurrently are skipped.
func (a *Arena[T]) Range(fn func(Handle, *T) bool) {
	a.mu.RLock()
	handles := make([]Handle, 0, a.live)
	for i, s := range a.slots {
		if i == 0 || s.val == nil {
			continue
		}
		handles = append(handles, makeHandle(uint32(i), s.gen))
	}
	a.mu.RUnlock()

	for _, h := range handles {
		v, ok := a.TryAcquire(h)
		if !ok {
			continue
		}
		cont := fn(h, v)
		a.Release(h)
		if !cont {
			return
		}
	}
}

// lookup must be called with a.mu held.
func (a *Arena[T]) lookup(h Handle) *slot[T] {
	idx := h.index()
	if idx == 0 || int(idx) >= len(a.slots) {
		return nil
	}
	s := a.slots[idx]
	if s.gen != h.gen() || s.val == nil {
		return nil
	}
	return s
}
