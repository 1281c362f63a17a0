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
	"math/rand/v2"
	"time"

	"github.com/NVIDIA/gpudbg/pkg/refcount"
)

// Pipeline is a synthetic command submission workload. Each step submits
// work to every live context, signals sync events and retires completed
// objects while holding an execution reference on the device.
type Pipeline struct {
	dev      *Device
	interval time.Duration
	rnd      *rand.Rand

	// MaxSubmit bounds the objects submitted per context per step.
	MaxSubmit int

	// MaxTransient bounds the short-lived contexts the pipeline creates
	// and detaches on its own. Zero disables churn.
	MaxTransient int

	transient []uint32
	nextPID   int
}

// NewPipeline returns a workload for dev stepping every interval. seed makes
// the object mix reproducible.
func NewPipeline(dev *Device, interval time.Duration, seed uint64) *Pipeline {
	return &Pipeline{
		dev:       dev,
		interval:  interval,
		rnd:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		MaxSubmit: 4,
	}
}

// Run steps the pipeline until ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("invalid pipeline interval %s", p.interval)
	}
	slog.Info("pipeline started", "device", p.dev.Name, "interval", p.interval.String())

	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("pipeline stopped", "device", p.dev.Name)
			return nil
		case <-t.C:
			if err := p.Step(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return err
			}
		}
	}
}

// Step runs one round of submission and retirement.
func (p *Pipeline) Step(ctx context.Context) error {
	if err := p.dev.BeginExec(ctx); err != nil {
		return err
	}
	defer p.dev.EndExec()

	p.dev.Contexts.Range(func(_ refcount.Handle, c *Context) bool {
		if c.Detached() {
			return true
		}
		p.submit(c)
		p.signalHead(c)
		for n := p.rnd.IntN(p.MaxSubmit + 1); n > 0 && p.dev.Retire(c); n-- {
		}
		return true
	})

	p.churn()

	if p.dev.HasFeature(FeatureLM) && p.dev.LMEnabled.Load() && p.rnd.IntN(8) == 0 {
		p.dev.LMThresholdCross.Add(1)
	}
	if p.dev.HasFeature(FeatureBCL) && p.rnd.IntN(4) == 0 {
		p.dev.BCLThrottleTimeUS.Add(uint32(p.rnd.IntN(50)))
	}
	return nil
}

// Transient returns the IDs of the live contexts the pipeline created.
func (p *Pipeline) Transient() []uint32 {
	return append([]uint32(nil), p.transient...)
}

// churn attaches a short-lived client context or detaches the oldest one.
func (p *Pipeline) churn() {
	if p.MaxTransient <= 0 {
		return
	}
	switch r := p.rnd.IntN(4); {
	case r == 0 && len(p.transient) < p.MaxTransient:
		p.nextPID++
		c := p.dev.CreateContext(ContextSpec{
			Type:     ContextType(1 + p.rnd.IntN(int(ContextTypeVK))),
			Priority: p.rnd.IntN(3),
			Proc:     Process{Comm: "transient", PID: 10000 + p.nextPID},
		})
		p.transient = append(p.transient, c.ID)
	case r == 1 && len(p.transient) > 0:
		id := p.transient[0]
		p.transient = p.transient[1:]
		if err := p.dev.DetachContext(id); err != nil {
			slog.Debug("detach failed", "context", id, "error", err)
		}
	}
}

func (p *Pipeline) submit(c *Context) {
	n := p.rnd.IntN(p.MaxSubmit + 1)
	for i := 0; i < n; i++ {
		obj := p.nextObj(c)
		if _, err := p.dev.Submit(c, obj); err != nil {
			if !errors.Is(err, ErrQueueFull) {
				slog.Debug("submit failed", "context", c.ID, "error", err)
			}
			return
		}
		if obj.Kind != DrawObjKindSync && p.rnd.IntN(3) == 0 {
			c.Events.Add(&Event{
				Timestamp: obj.Timestamp,
				Func:      "pipeline_complete",
				Created:   c.queued.Load(),
			})
		}
	}
}

func (p *Pipeline) nextObj(c *Context) *DrawObj {
	switch r := p.rnd.IntN(10); {
	case r == 0:
		return NewCmdObj(c.ID, 0, DrawObjCtxSwitch, true)
	case r <= 2:
		return NewSyncObj(c.ID, 0, p.syncEvents(c)...)
	default:
		obj := NewCmdObj(c.ID, 0, p.cmdFlags(), false)
		if p.rnd.IntN(6) == 0 {
			obj.Cmd.SetPriv(CmdObjWFI)
		}
		if p.rnd.IntN(8) == 0 {
			obj.Cmd.SetPriv(CmdObjForcePreamble)
		}
		return obj
	}
}

func (p *Pipeline) cmdFlags() uint64 {
	var f uint64
	if p.rnd.IntN(4) == 0 {
		f |= DrawObjEndOfFrame
	}
	if p.rnd.IntN(5) == 0 {
		f |= DrawObjSubmitIBList
	}
	if p.rnd.IntN(10) == 0 {
		f |= DrawObjPwrConstraint
	}
	return f
}

func (p *Pipeline) syncEvents(c *Context) []SyncEvent {
	n := 1 + p.rnd.IntN(3)
	events := make([]SyncEvent, 0, n)
	for i := 0; i < n; i++ {
		switch p.rnd.IntN(3) {
		case 0:
			events = append(events, SyncEvent{
				Type:      SyncEventTimestamp,
				Context:   c.ID,
				Timestamp: c.queued.Load(),
			})
		case 1:
			events = append(events, SyncEvent{
				Type: SyncEventFence,
				Fences: &FenceInfo{Fences: []Fence{
					{Name: fmt.Sprintf("sync_file:%d", p.rnd.IntN(1000))},
				}},
			})
		default:
			events = append(events, SyncEvent{
				Type: SyncEventTimeline,
				Timelines: []TimelinePoint{
					{Timeline: uint32(1 + p.rnd.IntN(4)), Seqno: p.rnd.Uint64N(1 << 20)},
				},
			})
		}
	}
	return events
}

// signalHead satisfies one pending event of a sync object at the head of
// the queue, so sync objects stay visible for a few steps before retiring.
func (p *Pipeline) signalHead(c *Context) {
	h, ok := c.Queue.Peek()
	if !ok {
		return
	}
	obj, ok := p.dev.DrawObjs.TryAcquire(h)
	if !ok {
		return
	}
	defer p.dev.DrawObjs.Release(h)

	if obj.Kind != DrawObjKindSync {
		return
	}
	for i := range obj.Sync.Events {
		if obj.Sync.EventPending(i) {
			obj.Sync.Signal(i)
			return
		}
	}
}
