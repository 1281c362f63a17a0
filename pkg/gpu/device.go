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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/NVIDIA/gpudbg/pkg/refcount"
)

var (
	// ErrQueueFull is returned by Submit when the draw queue has no free slot.
	ErrQueueFull = errors.New("draw queue full")
	// ErrContextGone is returned when a context handle no longer resolves.
	ErrContextGone = errors.New("context no longer exists")
	// ErrInvalidSID is returned for an out of range BCL side id.
	ErrInvalidSID = errors.New("invalid bcl sid")
)

// execWeight is the semaphore weight a power cycle takes to exclude all execution.
const execWeight = 1 << 20

// BCLSIDCount is the number of BCL side ids exposed by the GMU.
const BCLSIDCount = 3

// TimestampKind selects one of the context timestamps.
type TimestampKind int

const (
	TimestampQueued TimestampKind = iota
	TimestampConsumed
	TimestampRetired
)

// TimestampReader reads one context timestamp. Each kind is read independently.
type TimestampReader interface {
	ReadTimestamp(c *Context, kind TimestampKind) uint32
}

// GMU is the subset of graphics management unit operations used by the
// introspection surface.
type GMU interface {
	BCLSIDGet(sid int) uint64
	BCLSIDSet(ctx context.Context, sid int, val uint64) error
}

// ContextObserver is notified when contexts come and go. Calls are made
// synchronously while the creator's reference is still held.
type ContextObserver interface {
	ContextCreated(c *Context)
	ContextDetached(c *Context)
}

// Preemption holds the preemption tunables.
type Preemption struct {
	Level           atomic.Uint32
	UsesGMEM        atomic.Bool
	SkipSaveRestore atomic.Bool
}

// Options configures a Device.
type Options struct {
	Name          string
	Features      []Feature
	IFPCHystFloor uint32
}

// Device is the owning hardware abstraction. Tunable storage is one atomic
// word per field; the tunable registry is the only writer outside the driver.
type Device struct {
	Name string

	features FeatureSet
	gmu      GMU

	Contexts *refcount.Arena[Context]
	DrawObjs *refcount.Arena[DrawObj]

	exec        *semaphore.Weighted
	suspended   atomic.Bool
	activeCount atomic.Int32

	ctxMu     sync.Mutex
	byID      map[uint32]refcount.Handle
	nextID    uint32
	observers []ContextObserver

	globalRetired atomic.Uint32

	ISDBEnabled            atomic.Bool
	SnapshotCtxtRecordSize atomic.Uint64
	LMEnabled              atomic.Bool
	LMLimit                atomic.Uint32
	LMThresholdCross       atomic.Uint32
	CooperativeReset       atomic.Bool
	UCHEClientPF           atomic.Uint32
	PatchRegList           atomic.Bool
	BCLThrottleTimeUS      atomic.Uint32
	WarmbootEnabled        atomic.Bool
	IFPCHyst               atomic.Uint32
	IFPCHystFloor          uint32
	DumpAllIBs             atomic.Bool
	Preempt                Preemption
}

// NewDevice creates a device with the given capabilities.
func NewDevice(opts Options) *Device {
	d := &Device{
		Name:          opts.Name,
		features:      NewFeatureSet(opts.Features...),
		DrawObjs:      refcount.NewArena[DrawObj](nil),
		exec:          semaphore.NewWeighted(execWeight),
		byID:          make(map[uint32]refcount.Handle),
		IFPCHystFloor: opts.IFPCHystFloor,
	}
	d.Contexts = refcount.NewArena(d.freeContext)

	if d.features.Has(FeatureGMU) {
		d.gmu = &simGMU{}
	}
	if d.features.Has(FeatureLM) {
		d.LMEnabled.Store(true)
		d.LMLimit.Store(6000)
	}
	d.IFPCHyst.Store(max(opts.IFPCHystFloor, 80))
	d.Preempt.Level.Store(1)
	d.PatchRegList.Store(true)

	return d
}

// HasFeature reports whether the device has capability f. It is pure.
func (d *Device) HasFeature(f Feature) bool {
	return d.features.Has(f)
}

// Features returns the device capabilities.
func (d *Device) Features() []Feature {
	return d.features.List()
}

// GMU returns the GMU operations, or nil when the device has no GMU.
func (d *Device) GMU() GMU {
	return d.gmu
}

// ActiveCount returns the number of in-flight activity references.
func (d *Device) ActiveCount() int32 {
	return d.activeCount.Load()
}

// Suspended reports whether a power cycle is in progress.
func (d *Device) Suspended() bool {
	return d.suspended.Load()
}

// BeginExec marks the start of GPU execution. It blocks while a power cycle
// holds the device.
func (d *Device) BeginExec(ctx context.Context) error {
	if err := d.exec.Acquire(ctx, 1); err != nil {
		return err
	}
	d.activeCount.Add(1)
	return nil
}

// EndExec pairs with BeginExec.
func (d *Device) EndExec() {
	d.activeCount.Add(-1)
	d.exec.Release(1)
}

// suspend waits for all execution to drain and then excludes it.
func (d *Device) suspend(ctx context.Context) error {
	if err := d.exec.Acquire(ctx, execWeight); err != nil {
		return err
	}
	d.suspended.Store(true)
	return nil
}

func (d *Device) resume() {
	d.suspended.Store(false)
	d.exec.Release(execWeight)
}

// Subscribe registers a context observer. Contexts that already exist are
// reported to it immediately.
func (d *Device) Subscribe(o ContextObserver) {
	d.ctxMu.Lock()
	d.observers = append(d.observers, o)
	d.ctxMu.Unlock()

	d.Contexts.Range(func(_ refcount.Handle, c *Context) bool {
		if !c.Detached() {
			o.ContextCreated(c)
		}
		return true
	})
}

func (d *Device) observersSnapshot() []ContextObserver {
	d.ctxMu.Lock()
	defer d.ctxMu.Unlock()
	return append([]ContextObserver(nil), d.observers...)
}

// ContextSpec describes a context to create.
type ContextSpec struct {
	Type     ContextType
	Priority int
	Flags    uint64
	Proc     Process
	TID      int
}

// CreateContext allocates a context. The returned context carries the
// creator's reference, dropped by DetachContext.
func (d *Device) CreateContext(spec ContextSpec) *Context {
	flags := spec.Flags &^ (ContextPriorityMask | ContextTypeMask)
	flags |= (uint64(spec.Priority) << ContextPriorityShift) & ContextPriorityMask
	flags |= (uint64(spec.Type) << ContextTypeShift) & ContextTypeMask

	c := &Context{
		Type:     spec.Type,
		Priority: spec.Priority,
		Proc:     spec.Proc,
		TID:      spec.TID,
	}
	c.flags.Store(flags)

	d.ctxMu.Lock()
	d.nextID++
	c.ID = d.nextID
	c.handle = d.Contexts.Insert(c)
	d.byID[c.ID] = c.handle
	d.ctxMu.Unlock()

	slog.Debug("context created", "id", c.ID, "type", c.Type.String(), "pid", c.Proc.PID)

	for _, o := range d.observersSnapshot() {
		o.ContextCreated(c)
	}
	return c
}

// LookupContext returns the handle for a context id.
func (d *Device) LookupContext(id uint32) (refcount.Handle, bool) {
	d.ctxMu.Lock()
	defer d.ctxMu.Unlock()
	h, ok := d.byID[id]
	return h, ok
}

// ContextIDs returns the ids of contexts that have not been freed yet.
func (d *Device) ContextIDs() []uint32 {
	var ids []uint32
	d.Contexts.Range(func(_ refcount.Handle, c *Context) bool {
		ids = append(ids, c.ID)
		return true
	})
	return ids
}

// DetachContext marks the context detached, tells observers, cancels queued
// work and drops the creator's reference. Other holders keep the context
// alive until they release.
func (d *Device) DetachContext(id uint32) error {
	h, ok := d.LookupContext(id)
	if !ok {
		return fmt.Errorf("context %d: %w", id, ErrContextGone)
	}
	c, ok := d.Contexts.TryAcquire(h)
	if !ok {
		return fmt.Errorf("context %d: %w", id, ErrContextGone)
	}
	defer d.Contexts.Release(h)

	if c.TestAndSetPriv(ContextPrivDetached) {
		return nil
	}

	d.ctxMu.Lock()
	delete(d.byID, id)
	d.ctxMu.Unlock()

	for _, o := range d.observersSnapshot() {
		o.ContextDetached(c)
	}

	for {
		oh, ok := c.Queue.Pop()
		if !ok {
			break
		}
		d.DrawObjs.Release(oh)
	}

	slog.Debug("context detached", "id", id)
	d.Contexts.Release(h)
	return nil
}

func (d *Device) freeContext(c *Context) {
	slog.Debug("context freed", "id", c.ID)
}

// ReadTimestamp implements TimestampReader.
func (d *Device) ReadTimestamp(c *Context, kind TimestampKind) uint32 {
	switch kind {
	case TimestampQueued:
		return c.queued.Load()
	case TimestampConsumed:
		return c.consumed.Load()
	case TimestampRetired:
		return c.retired.Load()
	default:
		return 0
	}
}

// Submit queues obj on c. Command and marker objects are assigned the next
// queued timestamp. The queue holds the object's initial reference.
func (d *Device) Submit(c *Context, obj *DrawObj) (refcount.Handle, error) {
	if c.Detached() {
		return refcount.Nil, fmt.Errorf("context %d: %w", c.ID, ErrContextGone)
	}
	if obj.Kind != DrawObjKindSync {
		obj.Timestamp = c.queued.Add(1)
	}
	obj.Context = c.ID

	h := d.DrawObjs.Insert(obj)
	if !c.Queue.Push(h) {
		d.DrawObjs.Release(h)
		return refcount.Nil, ErrQueueFull
	}
	c.SetPriv(ContextPrivSubmitted)
	return h, nil
}

// Retire completes the object at the head of c's queue. A sync object with
// pending events blocks the queue and is left in place.
func (d *Device) Retire(c *Context) bool {
	h, ok := c.Queue.Peek()
	if !ok {
		return false
	}
	obj, ok := d.DrawObjs.TryAcquire(h)
	if !ok {
		return false
	}
	blocked := obj.Kind == DrawObjKindSync && obj.Sync.Pending() != 0
	ts := obj.Timestamp
	kind := obj.Kind
	d.DrawObjs.Release(h)
	if blocked {
		return false
	}

	if !c.Queue.PopHead(h) {
		return false
	}
	if kind != DrawObjKindSync {
		c.consumed.Store(ts)
		c.retired.Store(ts)
		g := d.bumpGlobalRetired(ts)
		c.internal.Store(g)
		c.Events.Expire(ts)
	}
	d.DrawObjs.Release(h)
	return true
}

func (d *Device) bumpGlobalRetired(ts uint32) uint32 {
	for {
		old := d.globalRetired.Load()
		if timestampCmp(ts, old) <= 0 {
			return old
		}
		if d.globalRetired.CompareAndSwap(old, ts) {
			return ts
		}
	}
}

type simGMU struct {
	sids [BCLSIDCount]atomic.Uint64
}

func (g *simGMU) BCLSIDGet(sid int) uint64 {
	if sid < 0 || sid >= BCLSIDCount {
		return 0
	}
	return g.sids[sid].Load()
}

func (g *simGMU) BCLSIDSet(_ context.Context, sid int, val uint64) error {
	if sid < 0 || sid >= BCLSIDCount {
		return fmt.Errorf("sid %d: %w", sid, ErrInvalidSID)
	}
	g.sids[sid].Store(val)
	return nil
}
