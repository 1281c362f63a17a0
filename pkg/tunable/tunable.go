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

package tunable

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NVIDIA/gpudbg/pkg/defaults"
	"github.com/NVIDIA/gpudbg/pkg/errors"
	"github.com/NVIDIA/gpudbg/pkg/gpu"
)

// State tracks a restart-applied write.
type State int32

const (
	StateIdle State = iota
	StateRestartPending
	StateApplied
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRestartPending:
		return "restart-pending"
	case StateApplied:
		return "applied"
	default:
		return "unknown"
	}
}

// Kind is the semantic type of a tunable value.
type Kind string

const (
	KindBool    Kind = "bool"
	KindBounded Kind = "bounded"
	KindRaw     Kind = "raw"
)

// Write results, used as the metrics label and in logs.
const (
	resultStored    = "stored"
	resultRestarted = "restarted"
	resultNoop      = "noop"
	resultDisabled  = "disabled"
	resultIgnored   = "ignored"
	resultFailed    = "failed"
	resultRejected  = "rejected"
)

// Tunable is one named scalar with its own read and write rules.
type Tunable struct {
	name string
	help string
	kind Kind

	read  func() uint64
	store func(uint64)
	set   func(context.Context, uint64) error

	enabled   func() bool
	apply     func() bool
	normalize []func(uint64) uint64
	restart   func() bool
	cycler    gpu.PowerCycler
	timeout   time.Duration
	sticky    bool

	mu    sync.Mutex
	state atomic.Int32
}

// Option configures a Tunable.
type Option func(*Tunable)

// New returns a tunable named name whose live value is read by read. Without
// WithStore or WithSetter the tunable is read-only.
func New(name string, read func() uint64, opts ...Option) *Tunable {
	t := &Tunable{name: name, read: read, kind: KindRaw, timeout: defaults.PowerCycleTimeout}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithHelp sets the description shown in listings.
func WithHelp(help string) Option {
	return func(t *Tunable) {
		t.help = help
	}
}

// WithStore sets the direct mutation of the backing word.
func WithStore(store func(uint64)) Option {
	return func(t *Tunable) {
		t.store = store
	}
}

// WithSetter sets a fallible write path that bypasses the restart logic,
// for values owned by another unit such as the GMU.
func WithSetter(set func(context.Context, uint64) error) Option {
	return func(t *Tunable) {
		t.set = set
	}
}

// WithFeature gates the tunable on enabled. While it reports false, reads
// return 0 and writes are accepted without effect.
func WithFeature(enabled func() bool) Option {
	return func(t *Tunable) {
		t.enabled = enabled
	}
}

// WithWriteGate makes writes a silent no-op while gate reports false.
// Reads are unaffected.
func WithWriteGate(gate func() bool) Option {
	return func(t *Tunable) {
		t.apply = gate
	}
}

// WithClamp clamps written values into [lo, hi]. A nil bound is open.
func WithClamp(lo, hi *uint64) Option {
	return func(t *Tunable) {
		t.kind = KindBounded
		t.normalize = append(t.normalize, func(v uint64) uint64 {
			if lo != nil && v < *lo {
				return *lo
			}
			if hi != nil && v > *hi {
				return *hi
			}
			return v
		})
	}
}

// WithMask keeps only the bits in mask.
func WithMask(mask uint64) Option {
	return func(t *Tunable) {
		t.kind = KindBounded
		t.normalize = append(t.normalize, func(v uint64) uint64 { return v & mask })
	}
}

// WithFloor raises written values to at least floor().
func WithFloor(floor func() uint64) Option {
	return func(t *Tunable) {
		t.kind = KindBounded
		t.normalize = append(t.normalize, func(v uint64) uint64 { return max(v, floor()) })
	}
}

// WithBool maps any non-zero value to 1.
func WithBool() Option {
	return func(t *Tunable) {
		t.kind = KindBool
		t.normalize = append(t.normalize, func(v uint64) uint64 {
			if v != 0 {
				return 1
			}
			return 0
		})
	}
}

// WithRestart applies writes through a power cycle whenever when reports
// true. A nil when means always.
func WithRestart(cycler gpu.PowerCycler, when func() bool) Option {
	return func(t *Tunable) {
		t.cycler = cycler
		t.restart = when
		if t.restart == nil {
			t.restart = func() bool { return true }
		}
	}
}

// WithRestartTimeout bounds a power cycle. The default is
// defaults.PowerCycleTimeout.
func WithRestartTimeout(d time.Duration) Option {
	return func(t *Tunable) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// Sticky makes a non-zero value permanent: once set, writes are ignored.
func Sticky() Option {
	return func(t *Tunable) {
		t.sticky = true
	}
}

// Name returns the tunable name.
func (t *Tunable) Name() string { return t.name }

// Help returns the tunable description.
func (t *Tunable) Help() string { return t.help }

// Kind returns the semantic value type.
func (t *Tunable) Kind() Kind { return t.kind }

// ReadOnly reports whether writes are rejected.
func (t *Tunable) ReadOnly() bool {
	return t.store == nil && t.set == nil
}

// State returns the restart state of the last write.
func (t *Tunable) State() State {
	return State(t.state.Load())
}

func (t *Tunable) featureEnabled() bool {
	return t.enabled == nil || t.enabled()
}

// Read returns the live value, or 0 when the owning feature is disabled.
func (t *Tunable) Read() uint64 {
	if !t.featureEnabled() {
		return 0
	}
	return t.read()
}

// Normalize applies the tunable's clamp, mask, floor and bool rules.
func (t *Tunable) Normalize(v uint64) uint64 {
	for _, fn := range t.normalize {
		v = fn(v)
	}
	return v
}

// Write validates v and applies it. Out of range values are clamped, not
// rejected. A write that needs a power cycle blocks until the cycle
// completes; if the cycle fails the value is left unchanged.
func (t *Tunable) Write(ctx context.Context, v uint64) error {
	if t.ReadOnly() {
		writesTotal.WithLabelValues(t.name, resultRejected).Inc()
		return errors.NewWithContext(errors.ErrCodeMethodNotAllowed, "tunable is read-only",
			map[string]any{"name": t.name})
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.featureEnabled() || (t.apply != nil && !t.apply()) {
		t.record(resultDisabled, v)
		return nil
	}

	v = t.Normalize(v)

	if t.set != nil {
		if err := t.set(ctx, v); err != nil {
			t.record(resultFailed, v)
			return errors.WrapWithContext(errors.ErrCodeInternal, "tunable write failed", err,
				map[string]any{"name": t.name})
		}
		t.record(resultStored, v)
		return nil
	}

	cur := t.read()
	if t.sticky && cur != 0 {
		t.record(resultIgnored, v)
		return nil
	}
	if v == cur {
		t.record(resultNoop, v)
		return nil
	}

	if t.cycler == nil || !t.restart() {
		t.store(v)
		t.record(resultStored, v)
		return nil
	}

	t.state.Store(int32(StateRestartPending))
	cycleCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	err := t.cycler.ApplyWithRestart(cycleCtx, v, t.store)
	restartDuration.WithLabelValues(t.name).Observe(time.Since(start).Seconds())
	if err != nil {
		t.state.Store(int32(StateIdle))
		t.record(resultFailed, v)
		slog.Warn("tunable restart failed", "name", t.name, "value", v, "error", err)
		code := errors.ErrCodeUnavailable
		if stderrors.Is(err, context.DeadlineExceeded) {
			code = errors.ErrCodeTimeout
		}
		return errors.WrapWithContext(code, "device restart failed", err,
			map[string]any{"name": t.name, "value": v, "timeout": t.timeout.String()})
	}
	t.state.Store(int32(StateApplied))
	t.record(resultRestarted, v)
	return nil
}

func (t *Tunable) record(result string, v uint64) {
	writesTotal.WithLabelValues(t.name, result).Inc()
	slog.Debug("tunable write", "name", t.name, "value", v, "result", result)
}
