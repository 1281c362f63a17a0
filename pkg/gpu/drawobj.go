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

import "sync/atomic"

// MaxSyncPoints bounds the number of events in one sync object.
const MaxSyncPoints = 64

// DrawObjKind tags the DrawObj variant.
type DrawObjKind int

const (
	DrawObjKindSync DrawObjKind = iota
	DrawObjKindCmd
	DrawObjKindMarker
)

// String implements fmt.Stringer.
func (k DrawObjKind) String() string {
	switch k {
	case DrawObjKindSync:
		return "syncobj"
	case DrawObjKindCmd:
		return "cmdobj"
	case DrawObjKindMarker:
		return "markerobj"
	default:
		return "unknown"
	}
}

// DrawObj is one unit of queued work. Exactly one of Sync or Cmd is set,
// according to Kind.
type DrawObj struct {
	Kind      DrawObjKind
	Context   uint32
	Timestamp uint32
	Flags     uint64

	Sync *SyncObj
	Cmd  *CmdObj
}

// NewCmdObj builds a command (or, when marker is set, marker) object.
func NewCmdObj(contextID, timestamp uint32, flags uint64, marker bool) *DrawObj {
	kind := DrawObjKindCmd
	if marker {
		kind = DrawObjKindMarker
		flags |= DrawObjMarker
	}
	return &DrawObj{
		Kind:      kind,
		Context:   contextID,
		Timestamp: timestamp,
		Flags:     flags,
		Cmd:       &CmdObj{},
	}
}

// NewSyncObj builds a sync object with every event pending.
func NewSyncObj(contextID uint32, flags uint64, events ...SyncEvent) *DrawObj {
	if len(events) > MaxSyncPoints {
		events = events[:MaxSyncPoints]
	}
	s := &SyncObj{Events: events}
	if n := len(events); n == MaxSyncPoints {
		s.pending.Store(^uint64(0))
	} else {
		s.pending.Store(1<<n - 1)
	}
	return &DrawObj{
		Kind:    DrawObjKindSync,
		Context: contextID,
		Flags:   flags | DrawObjSync,
		Sync:    s,
	}
}

// CmdObj is the payload of command and marker objects.
type CmdObj struct {
	priv atomic.Uint64
}

// Priv returns the private bit set.
func (c *CmdObj) Priv() uint64 {
	return c.priv.Load()
}

// SetPriv sets private bit n.
func (c *CmdObj) SetPriv(n uint) {
	for {
		old := c.priv.Load()
		if c.priv.CompareAndSwap(old, old|1<<n) {
			return
		}
	}
}

// SyncEventType tags the SyncEvent variant.
type SyncEventType int

const (
	SyncEventTimestamp SyncEventType = iota
	SyncEventFence
	SyncEventTimeline
)

// SyncEvent is one wait condition inside a sync object.
type SyncEvent struct {
	Type SyncEventType

	// Timestamp waits.
	Context   uint32
	Timestamp uint32

	// Fence waits. Fences may be nil when the backend has no info.
	Fences *FenceInfo

	// Timeline waits, terminated by a zero Timeline or by the end of the slice.
	Timelines []TimelinePoint
}

// FenceInfo is the fence payload of a sync event.
type FenceInfo struct {
	Fences []Fence
}

// Fence names one fence a sync event waits on.
type Fence struct {
	Name string
}

// TimelinePoint is one (timeline, seqno) pair a sync event waits on.
type TimelinePoint struct {
	Timeline uint32
	Seqno    uint64
}

// SyncObj holds sync events and the pending mask owned by the sync backend.
type SyncObj struct {
	Events  []SyncEvent
	pending atomic.Uint64
}

// EventPending reports whether event i has not been satisfied yet.
func (s *SyncObj) EventPending(i int) bool {
	if i < 0 || i >= len(s.Events) {
		return false
	}
	return s.pending.Load()&(1<<uint(i)) != 0
}

// Signal marks event i satisfied and reports whether every event now is.
func (s *SyncObj) Signal(i int) bool {
	mask := uint64(1) << uint(i)
	for {
		old := s.pending.Load()
		if s.pending.CompareAndSwap(old, old&^mask) {
			return old&^mask == 0
		}
	}
}

// Pending returns the raw pending mask.
func (s *SyncObj) Pending() uint64 {
	return s.pending.Load()
}
