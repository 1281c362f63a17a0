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

package gpu

import (
	"sync"
	"sync/atomic"

	"github.com/NVIDIA/gpudbg/pkg/refcount"
)

// DrawqueueSize is the fixed capacity of a context draw queue.
const DrawqueueSize = 128

// Process identifies the client that owns a context.
type Process struct {
	Comm string
	PID  int
}

// Context is one client's command stream.
type Context struct {
	ID       uint32
	Type     ContextType
	Priority int
	Proc     Process
	TID      int

	flags atomic.Uint64
	priv  atomic.Uint64

	queued   atomic.Uint32
	consumed atomic.Uint32
	retired  atomic.Uint32
	// highest retired timestamp seen across the device when this context last retired
	internal atomic.Uint32

	Queue  Drawqueue
	Events EventGroup

	handle refcount.Handle
}

// Handle returns the arena handle of the context.
func (c *Context) Handle() refcount.Handle {
	return c.handle
}

// Flags returns the user flag word, including the priority and type fields.
func (c *Context) Flags() uint64 {
	return c.flags.Load()
}

// Priv returns the private status word.
func (c *Context) Priv() uint64 {
	return c.priv.Load()
}

// SetPriv sets private bit n.
func (c *Context) SetPriv(n uint) {
	for {
		old := c.priv.Load()
		if c.priv.CompareAndSwap(old, old|1<<n) {
			return
		}
	}
}

// TestAndSetPriv sets private bit n and reports whether it was already set.
func (c *Context) TestAndSetPriv(n uint) bool {
	for {
		old := c.priv.Load()
		if old&(1<<n) != 0 {
			return true
		}
		if c.priv.CompareAndSwap(old, old|1<<n) {
			return false
		}
	}
}

// ClearPriv clears private bit n.
func (c *Context) ClearPriv(n uint) {
	for {
		old := c.priv.Load()
		if c.priv.CompareAndSwap(old, old&^(1<<n)) {
			return
		}
	}
}

// TestPriv reports whether private bit n is set.
func (c *Context) TestPriv(n uint) bool {
	return c.priv.Load()&(1<<n) != 0
}

// Detached reports whether the context has been detached from its client.
func (c *Context) Detached() bool {
	return c.TestPriv(ContextPrivDetached)
}

// InternalTimestamp returns the locally tracked highest retired timestamp.
func (c *Context) InternalTimestamp() uint32 {
	return c.internal.Load()
}

// Drawqueue is a bounded circular queue of work unit handles.
// head == tail means empty, so at most DrawqueueSize-1 entries are held.
type Drawqueue struct {
	mu    sync.Mutex
	slots [DrawqueueSize]refcount.Handle
	head  uint32
	tail  uint32
}

func drawqueueNext(i uint32) uint32 {
	return (i + 1) % DrawqueueSize
}

// Push appends h. It reports false when the queue is full.
func (q *Drawqueue) Push(h refcount.Handle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	next := drawqueueNext(q.tail)
	if next == q.head {
		return false
	}
	q.slots[q.tail] = h
	q.tail = next
	return true
}

// Pop removes the oldest entry.
func (q *Drawqueue) Pop() (refcount.Handle, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == q.tail {
		return refcount.Nil, false
	}
	h := q.slots[q.head]
	q.slots[q.head] = refcount.Nil
	q.head = drawqueueNext(q.head)
	return h, true
}

// PopHead removes the oldest entry only if it is still h.
func (q *Drawqueue) PopHead(h refcount.Handle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == q.tail || q.slots[q.head] != h {
		return false
	}
	q.slots[q.head] = refcount.Nil
	q.head = drawqueueNext(q.head)
	return true
}

// Peek returns the oldest entry without removing it.
func (q *Drawqueue) Peek() (refcount.Handle, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == q.tail {
		return refcount.Nil, false
	}
	return q.slots[q.head], true
}

// Len returns the number of queued entries.
func (q *Drawqueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int((q.tail + DrawqueueSize - q.head) % DrawqueueSize)
}

// Bounds returns head and tail.
func (q *Drawqueue) Bounds() (head, tail uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head, q.tail
}

// Walk calls fn for every entry from head to tail. The queue lock is held for
// the whole walk so the index bounds stay stable; fn must not touch the queue.
func (q *Drawqueue) Walk(fn func(refcount.Handle)) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := q.head; i != q.tail; i = drawqueueNext(i) {
		fn(q.slots[i])
	}
}

// Event is one pending completion callback.
type Event struct {
	Timestamp uint32
	Func      string
	Created   uint32
	Callback  func(retired uint32)
}

// EventGroup is the list of pending completion events of a context.
type EventGroup struct {
	mu     sync.Mutex
	events []*Event
}

// Add appends an event.
func (g *EventGroup) Add(e *Event) {
	g.mu.Lock()
	g.events = append(g.events, e)
	g.mu.Unlock()
}

// Expire removes every event whose timestamp has been retired and returns
// them in list order. Callbacks run outside the lock.
func (g *EventGroup) Expire(retired uint32) []*Event {
	g.mu.Lock()
	var fired []*Event
	kept := g.events[:0]
	for _, e := range g.events {
		if timestampCmp(e.Timestamp, retired) <= 0 {
			fired = append(fired, e)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(g.events); i++ {
		g.events[i] = nil
	}
	g.events = kept
	g.mu.Unlock()

	for _, e := range fired {
		if e.Callback != nil {
			e.Callback(retired)
		}
	}
	return fired
}

// Len returns the number of pending events.
func (g *EventGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.events)
}

// Walk calls fn for every pending event in list order under the event lock.
func (g *EventGroup) Walk(fn func(*Event)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, e := range g.events {
		fn(e)
	}
}

// timestampCmp compares two wrapping 32-bit timestamps.
func timestampCmp(a, b uint32) int {
	switch d := int32(a - b); {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}
