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

package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NVIDIA/gpudbg/pkg/errors"
	"github.com/NVIDIA/gpudbg/pkg/flags"
	"github.com/NVIDIA/gpudbg/pkg/gpu"
	"github.com/NVIDIA/gpudbg/pkg/refcount"
)

// Report is an open context report. It holds a reference on the context
// from Open until Close, so the context stays readable even if it is
// detached or invalidated in the meantime.
type Report struct {
	dev *gpu.Device
	ctx *gpu.Context
	h   refcount.Handle

	once   sync.Once
	closed atomic.Bool
}

// Open acquires the context behind h. It fails with ErrCodeNotFound when the
// context's reference count has already reached zero.
func Open(dev *gpu.Device, h refcount.Handle) (*Report, error) {
	c, ok := dev.Contexts.TryAcquire(h)
	if !ok {
		reportsTotal.WithLabelValues("gone").Inc()
		return nil, errors.NewWithContext(errors.ErrCodeNotFound, "context no longer exists",
			map[string]any{"handle": h.String()})
	}
	reportsOpen.Inc()
	return &Report{dev: dev, ctx: c, h: h}, nil
}

// OpenID is Open for a context id.
func OpenID(dev *gpu.Device, id uint32) (*Report, error) {
	h, ok := dev.LookupContext(id)
	if !ok {
		reportsTotal.WithLabelValues("gone").Inc()
		return nil, errors.NewWithContext(errors.ErrCodeNotFound, "context does not exist",
			map[string]any{"id": id})
	}
	return Open(dev, h)
}

// Context returns the context the report is pinned to.
func (r *Report) Context() *gpu.Context {
	return r.ctx
}

// Close drops the reference taken by Open. It is safe to call more than once.
func (r *Report) Close() error {
	r.once.Do(func() {
		r.closed.Store(true)
		reportsOpen.Dec()
		r.dev.Contexts.Release(r.h)
	})
	return nil
}

// WriteTo renders the report into w. Once the reference is held no part of
// the report can fail; missing draw objects are skipped. A closed report
// fails with ErrCodeInvalidRequest.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	if r.closed.Load() {
		return 0, errors.NewWithContext(errors.ErrCodeInvalidRequest, "report is closed",
			map[string]any{"id": r.ctx.ID})
	}
	start := time.Now()

	var buf bytes.Buffer
	r.render(&buf)

	n, err := w.Write(buf.Bytes())
	if err != nil {
		reportsTotal.WithLabelValues("error").Inc()
		return int64(n), fmt.Errorf("write context %d report: %w", r.ctx.ID, err)
	}

	reportsTotal.WithLabelValues("success").Inc()
	reportDuration.Observe(time.Since(start).Seconds())
	slog.Debug("context report rendered", "id", r.ctx.ID, "bytes", n)
	return int64(n), nil
}

// String renders the report. A closed report renders empty.
func (r *Report) String() string {
	if r.closed.Load() {
		return ""
	}
	var buf bytes.Buffer
	r.render(&buf)
	return buf.String()
}

func (r *Report) render(w Writer) {
	c := r.ctx

	fmt.Fprintf(w, "id: %d type: %s priority: %d process: %s (%d) tid: %d\n",
		c.ID, c.Type, c.Priority, c.Proc.Comm, c.Proc.PID, c.TID)

	_, _ = w.WriteString("flags: ")
	flags.Write(w, c.Flags()&^(gpu.ContextPriorityMask|gpu.ContextTypeMask), ContextFlags)
	_, _ = w.WriteString(" priv: ")
	flags.Write(w, c.Priv(), ContextPriv)
	_, _ = w.WriteString("\n")

	queued := r.dev.ReadTimestamp(c, gpu.TimestampQueued)
	consumed := r.dev.ReadTimestamp(c, gpu.TimestampConsumed)
	retired := r.dev.ReadTimestamp(c, gpu.TimestampRetired)
	fmt.Fprintf(w, "timestamps: queued: %d consumed: %d retired: %d global:%d\n",
		queued, consumed, retired, c.InternalTimestamp())

	_, _ = w.WriteString("drawqueue:\n")
	c.Queue.Walk(func(h refcount.Handle) {
		RenderDrawObj(w, r.dev.DrawObjs, h)
	})

	// the queue lock is released before the event lock is taken
	_, _ = w.WriteString("events:\n")
	c.Events.Walk(func(e *gpu.Event) {
		fmt.Fprintf(w, "\t%d: %s created: %d\n", e.Timestamp, e.Func, e.Created)
	})
}
