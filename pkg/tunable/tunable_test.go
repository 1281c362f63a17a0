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
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/NVIDIA/gpudbg/pkg/defaults"
	"github.com/NVIDIA/gpudbg/pkg/errors"
	"github.com/NVIDIA/gpudbg/pkg/gpu"
)

// fakeCycler counts power cycles and can be told to fail.
type fakeCycler struct {
	mu    sync.Mutex
	calls int
	err   error
	seen  []uint64
}

func (f *fakeCycler) ApplyWithRestart(_ context.Context, v uint64, mutate func(uint64)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.seen = append(f.seen, v)
	mutate(v)
	return nil
}

func (f *fakeCycler) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func allFeatures() *gpu.Device {
	return gpu.NewDevice(gpu.Options{Name: "test", Features: gpu.Features, IFPCHystFloor: 10})
}

func TestLMLimitClamp(t *testing.T) {
	dev := allFeatures()
	pc := &fakeCycler{}
	lm := LMLimit(dev, pc)

	tests := []struct {
		name  string
		in    uint64
		want  uint64
		calls int
	}{
		{"above max", 50000, 10000, 1},
		{"below min", 1, 3000, 2},
		{"in range", 4500, 4500, 3},
		{"equal after clamp", 4500, 4500, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, lm.Write(context.Background(), tt.in))
			assert.Equal(t, tt.want, lm.Read())
			assert.Equal(t, tt.calls, pc.Calls())
		})
	}
	assert.Equal(t, StateApplied, lm.State())
}

func TestLMLimitNoopWhenLMDisabled(t *testing.T) {
	dev := allFeatures()
	dev.LMEnabled.Store(false)
	pc := &fakeCycler{}
	lm := LMLimit(dev, pc)

	require.NoError(t, lm.Write(context.Background(), 9000))
	assert.EqualValues(t, 6000, lm.Read())
	assert.Zero(t, pc.Calls())
}

func TestFeatureDisabledReadsZeroAndIgnoresWrites(t *testing.T) {
	dev := gpu.NewDevice(gpu.Options{Name: "bare"})
	dev.LMLimit.Store(7000)
	pc := &fakeCycler{}

	for _, tun := range []*Tunable{LMLimit(dev, pc), ISDB(dev, pc), Warmboot(dev, pc), CoopReset(dev), LMThresholdCount(dev), BCLThrottleTimeUS(dev), BCLSID(dev, 0)} {
		t.Run(tun.Name(), func(t *testing.T) {
			assert.Zero(t, tun.Read())
			if !tun.ReadOnly() {
				assert.NoError(t, tun.Write(context.Background(), 1))
			}
		})
	}
	assert.EqualValues(t, 7000, dev.LMLimit.Load())
	assert.False(t, dev.CooperativeReset.Load())
	assert.Zero(t, pc.Calls())
}

func TestISDBSticky(t *testing.T) {
	dev := allFeatures()
	pc := &fakeCycler{}
	isdb := ISDB(dev, pc)

	require.NoError(t, isdb.Write(context.Background(), 0))
	assert.Zero(t, pc.Calls(), "writing the current value must not restart")

	require.NoError(t, isdb.Write(context.Background(), 5))
	assert.EqualValues(t, 1, isdb.Read())
	assert.Equal(t, 1, pc.Calls())

	require.NoError(t, isdb.Write(context.Background(), 0))
	assert.EqualValues(t, 1, isdb.Read(), "sticky value must survive a revert")
	assert.Equal(t, 1, pc.Calls())
}

func TestNoRestartOnEqualValue(t *testing.T) {
	dev := allFeatures()
	pc := &fakeCycler{}

	tuns := []*Tunable{
		LMLimit(dev, pc),
		IFPCHyst(dev, pc),
		Warmboot(dev, pc),
		GPUClientPF(dev, pc),
		PreemptLevel(dev, pc),
		PreemptUsesGMEM(dev, pc),
		PreemptSkipSaveRestore(dev, pc),
	}
	for _, tun := range tuns {
		require.NoError(t, tun.Write(context.Background(), tun.Read()), tun.Name())
	}
	assert.Zero(t, pc.Calls())
	assert.True(t, dev.PatchRegList.Load())
}

func TestIFPCHystMaskAndFloor(t *testing.T) {
	dev := allFeatures()
	pc := &fakeCycler{}
	hyst := IFPCHyst(dev, pc)

	require.NoError(t, hyst.Write(context.Background(), 0x1FFFF))
	assert.EqualValues(t, 65535, hyst.Read())

	require.NoError(t, hyst.Write(context.Background(), 0x10003))
	assert.EqualValues(t, 10, hyst.Read(), "masked value below the floor is raised")
	assert.Equal(t, []uint64{0xFFFF, 10}, pc.seen)
}

func TestIFPCHystWithoutIFPC(t *testing.T) {
	dev := gpu.NewDevice(gpu.Options{Name: "gmu-only", Features: []gpu.Feature{gpu.FeatureGMU}, IFPCHystFloor: 10})
	pc := &fakeCycler{}
	hyst := IFPCHyst(dev, pc)

	before := hyst.Read()
	require.NoError(t, hyst.Write(context.Background(), 500))
	assert.Equal(t, before, hyst.Read())
	assert.Zero(t, pc.Calls())
}

func TestRestartFailureLeavesValue(t *testing.T) {
	dev := allFeatures()
	boom := stderrors.New("gmu did not respond")
	pc := &fakeCycler{err: boom}
	wb := Warmboot(dev, pc)

	err := wb.Write(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnavailable))
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, wb.Read())
	assert.Equal(t, StateIdle, wb.State())
}

func TestRestartWithController(t *testing.T) {
	dev := allFeatures()
	pc := gpu.NewController(dev, time.Millisecond)
	wb := Warmboot(dev, pc)

	require.NoError(t, wb.Write(context.Background(), 1))
	assert.EqualValues(t, 1, wb.Read())
	assert.EqualValues(t, 1, pc.Cycles())

	pc.InjectFault(stderrors.New("injected"), 1)
	err := wb.Write(context.Background(), 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnavailable))
	assert.EqualValues(t, 1, wb.Read())
}

// deadlineCycler records the deadline of the context it is called with.
type deadlineCycler struct {
	deadline time.Time
	ok       bool
}

func (d *deadlineCycler) ApplyWithRestart(ctx context.Context, v uint64, mutate func(uint64)) error {
	d.deadline, d.ok = ctx.Deadline()
	mutate(v)
	return nil
}

func TestRestartIsBounded(t *testing.T) {
	dev := allFeatures()
	pc := &deadlineCycler{}
	wb := Warmboot(dev, pc)

	start := time.Now()
	require.NoError(t, wb.Write(context.Background(), 1))
	require.True(t, pc.ok, "power cycle must run under a deadline")
	assert.WithinDuration(t, start.Add(defaults.PowerCycleTimeout), pc.deadline, time.Second)
}

func TestRestartTimeoutWhileExecuting(t *testing.T) {
	dev := allFeatures()
	pc := gpu.NewController(dev, 0)
	var v uint64
	tun := New("held",
		func() uint64 { return v },
		WithStore(func(n uint64) { v = n }),
		WithRestart(pc, nil),
		WithRestartTimeout(20*time.Millisecond),
	)

	// in-flight execution never drains
	require.NoError(t, dev.BeginExec(context.Background()))
	defer dev.EndExec()

	err := tun.Write(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, tun.Read())
	assert.Equal(t, StateIdle, tun.State())
	assert.Zero(t, pc.Cycles())
	assert.EqualValues(t, 1, pc.Failures())
}

func TestGPUClientPFClearsPatchRegList(t *testing.T) {
	dev := allFeatures()
	pc := &fakeCycler{}
	pf := GPUClientPF(dev, pc)

	require.NoError(t, pf.Write(context.Background(), 0x1_0000_0007))
	assert.EqualValues(t, 7, pf.Read())
	assert.False(t, dev.PatchRegList.Load())
	assert.Equal(t, 1, pc.Calls())
}

func TestPreemptionRestartOnlyWithHWSched(t *testing.T) {
	pc := &fakeCycler{}

	plain := gpu.NewDevice(gpu.Options{Name: "plain"})
	lvl := PreemptLevel(plain, pc)
	require.NoError(t, lvl.Write(context.Background(), 9))
	assert.EqualValues(t, PreemptLevelMax, lvl.Read())
	assert.Zero(t, pc.Calls())

	hw := gpu.NewDevice(gpu.Options{Name: "hw", Features: []gpu.Feature{gpu.FeatureHWSched}})
	gmem := PreemptUsesGMEM(hw, pc)
	require.NoError(t, gmem.Write(context.Background(), 3))
	assert.EqualValues(t, 1, gmem.Read())
	assert.Equal(t, 1, pc.Calls())
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	dev := allFeatures()
	ac := ActiveCount(dev)
	assert.True(t, ac.ReadOnly())

	err := ac.Write(context.Background(), 1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMethodNotAllowed))
}

func TestBCLSIDThroughGMU(t *testing.T) {
	dev := allFeatures()
	sid := BCLSID(dev, 2)

	require.NoError(t, sid.Write(context.Background(), 42))
	assert.EqualValues(t, 42, sid.Read())
	assert.EqualValues(t, 42, dev.GMU().BCLSIDGet(2))

	bad := BCLSID(dev, 7)
	err := bad.Write(context.Background(), 1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInternal))
	assert.ErrorIs(t, err, gpu.ErrInvalidSID)
}

func TestDumpAllIBsPassThrough(t *testing.T) {
	dev := allFeatures()
	d := DumpAllIBs(dev)
	require.NoError(t, d.Write(context.Background(), 1))
	assert.True(t, dev.DumpAllIBs.Load())
	require.NoError(t, d.Write(context.Background(), 0))
	assert.False(t, dev.DumpAllIBs.Load())
}

func TestWithClampOpenBounds(t *testing.T) {
	var v uint64
	tun := New("x", func() uint64 { return v },
		WithClamp(ptr.To[uint64](5), nil),
		WithStore(func(n uint64) { v = n }),
	)
	require.NoError(t, tun.Write(context.Background(), 1))
	assert.EqualValues(t, 5, tun.Read())
	require.NoError(t, tun.Write(context.Background(), 1<<40))
	assert.EqualValues(t, uint64(1<<40), tun.Read())
	assert.Equal(t, KindBounded, tun.Kind())
}

func TestConcurrentRestartWritesSerialize(t *testing.T) {
	dev := allFeatures()
	pc := gpu.NewController(dev, time.Millisecond)
	lm := LMLimit(dev, pc)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, lm.Write(context.Background(), uint64(4000+i)))
		}(i)
	}
	wg.Wait()

	got := lm.Read()
	assert.GreaterOrEqual(t, got, uint64(4000))
	assert.LessOrEqual(t, got, uint64(4007))
	assert.EqualValues(t, 8, pc.Cycles())
}

func TestRegistry(t *testing.T) {
	dev := allFeatures()
	pc := &fakeCycler{}
	r := NewRegistry()
	r.MustRegister(ActiveCount(dev), LMLimit(dev, pc), DumpAllIBs(dev))

	assert.Error(t, r.Register(DumpAllIBs(dev)))
	assert.Equal(t, []string{NameActiveCount, NameLMLimit, NameDumpAllIBs}, r.Names())

	require.NoError(t, r.Write(context.Background(), NameLMLimit, 50000))
	v, err := r.Read(NameLMLimit)
	require.NoError(t, err)
	assert.EqualValues(t, 10000, v)

	_, err = r.Read("nope")
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
	assert.True(t, errors.IsCode(r.Write(context.Background(), "nope", 1), errors.ErrCodeNotFound))

	assert.Equal(t, map[string]uint64{
		NameActiveCount: 0,
		NameLMLimit:     10000,
		NameDumpAllIBs:  0,
	}, r.Values())
}

func TestRegistryCollector(t *testing.T) {
	dev := allFeatures()
	r := NewRegistry()
	r.MustRegister(LMLimit(dev, &fakeCycler{}), DumpAllIBs(dev))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(r))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "gpudbg_tunable_value", families[0].GetName())
	require.Len(t, families[0].GetMetric(), 2)

	values := map[string]float64{}
	for _, m := range families[0].GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "name" {
				values[l.GetValue()] = m.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{NameLMLimit: 6000, NameDumpAllIBs: 0}, values)
}
