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
	"fmt"
	"math"

	"k8s.io/utils/ptr"

	"github.com/NVIDIA/gpudbg/pkg/gpu"
)

// Tunable names. Names with a slash live in a sub directory of the node tree.
const (
	NameActiveCount        = "active_cnt"
	NameISDB               = "isdb"
	NameLMLimit            = "lm_limit"
	NameLMThresholdCount   = "lm_threshold_count"
	NameIFPCHyst           = "ifpc_hyst"
	NameWarmboot           = "warmboot"
	NameCoopReset          = "snapshot/coop_reset"
	NameCtxtRecordSize     = "snapshot/ctxt_record_size"
	NameGPUClientPF        = "snapshot/gpu_client_pf"
	NameDumpAllIBs         = "snapshot/dump_all_ibs"
	NameBCLThrottleTimeUS  = "bcl/bcl_throttle_time_us"
	NamePreemptLevel       = "preemption/preempt_level"
	NamePreemptUsesGMEM    = "preemption/usesgmem"
	NamePreemptSkipSaveRst = "preemption/skipsaverestore"
)

// Limits management current range in milliamps.
const (
	LMLimitMin = 3000
	LMLimitMax = 10000
)

// IFPCHystMask is the width of the IFPC hysteresis timer.
const IFPCHystMask = 0xFFFF

// PreemptLevelMax is the highest preemption level.
const PreemptLevelMax = 2

// BCLSIDName returns the node name of BCL side id sid.
func BCLSIDName(sid int) string {
	return fmt.Sprintf("bcl/sid%d", sid)
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func feature(dev *gpu.Device, f gpu.Feature) func() bool {
	return func() bool { return dev.HasFeature(f) }
}

// ActiveCount exposes the device in-flight count.
func ActiveCount(dev *gpu.Device) *Tunable {
	return New(NameActiveCount,
		func() uint64 { return uint64(max(dev.ActiveCount(), 0)) },
		WithHelp("in-flight device activity references"),
	)
}

// ISDB enables the in-silicon debugger. Once enabled it stays enabled.
func ISDB(dev *gpu.Device, pc gpu.PowerCycler) *Tunable {
	return New(NameISDB,
		func() uint64 { return b2u(dev.ISDBEnabled.Load()) },
		WithHelp("in-silicon debugger, sticky once enabled"),
		WithFeature(feature(dev, gpu.FeatureISDB)),
		WithBool(),
		Sticky(),
		WithStore(func(v uint64) { dev.ISDBEnabled.Store(v != 0) }),
		WithRestart(pc, nil),
	)
}

// LMLimit is the limits management current limit. It only changes while
// limits management is enabled.
func LMLimit(dev *gpu.Device, pc gpu.PowerCycler) *Tunable {
	return New(NameLMLimit,
		func() uint64 { return uint64(dev.LMLimit.Load()) },
		WithHelp("limits management current limit in mA"),
		WithFeature(feature(dev, gpu.FeatureLM)),
		WithWriteGate(dev.LMEnabled.Load),
		WithClamp(ptr.To[uint64](LMLimitMin), ptr.To[uint64](LMLimitMax)),
		WithStore(func(v uint64) { dev.LMLimit.Store(uint32(v)) }),
		WithRestart(pc, nil),
	)
}

// LMThresholdCount exposes the number of limits management threshold crossings.
func LMThresholdCount(dev *gpu.Device) *Tunable {
	return New(NameLMThresholdCount,
		func() uint64 { return uint64(dev.LMThresholdCross.Load()) },
		WithHelp("limits management threshold crossings"),
		WithFeature(feature(dev, gpu.FeatureLM)),
	)
}

// IFPCHyst is the inter-frame power collapse hysteresis timer. Writes are
// masked to the timer width and floored at the device minimum.
func IFPCHyst(dev *gpu.Device, pc gpu.PowerCycler) *Tunable {
	return New(NameIFPCHyst,
		func() uint64 { return uint64(dev.IFPCHyst.Load()) },
		WithHelp("IFPC hysteresis timer"),
		WithWriteGate(feature(dev, gpu.FeatureIFPC)),
		WithMask(IFPCHystMask),
		WithFloor(func() uint64 { return uint64(dev.IFPCHystFloor) }),
		WithStore(func(v uint64) { dev.IFPCHyst.Store(uint32(v)) }),
		WithRestart(pc, nil),
	)
}

// Warmboot toggles GMU warm boot.
func Warmboot(dev *gpu.Device, pc gpu.PowerCycler) *Tunable {
	return New(NameWarmboot,
		func() uint64 { return b2u(dev.WarmbootEnabled.Load()) },
		WithHelp("GMU warm boot"),
		WithFeature(feature(dev, gpu.FeatureGMUWarmboot)),
		WithBool(),
		WithStore(func(v uint64) { dev.WarmbootEnabled.Store(v != 0) }),
		WithRestart(pc, nil),
	)
}

// CoopReset toggles cooperative reset.
func CoopReset(dev *gpu.Device) *Tunable {
	return New(NameCoopReset,
		func() uint64 { return b2u(dev.CooperativeReset.Load()) },
		WithHelp("cooperative reset"),
		WithFeature(feature(dev, gpu.FeatureCoopReset)),
		WithBool(),
		WithStore(func(v uint64) { dev.CooperativeReset.Store(v != 0) }),
	)
}

// CtxtRecordSize is the context record size captured in snapshots.
func CtxtRecordSize(dev *gpu.Device) *Tunable {
	return New(NameCtxtRecordSize,
		dev.SnapshotCtxtRecordSize.Load,
		WithHelp("snapshot context record size"),
		WithStore(dev.SnapshotCtxtRecordSize.Store),
	)
}

// GPUClientPF selects the UCHE client whose page faults are captured.
// Applying it drops the patched register list.
func GPUClientPF(dev *gpu.Device, pc gpu.PowerCycler) *Tunable {
	return New(NameGPUClientPF,
		func() uint64 { return uint64(dev.UCHEClientPF.Load()) },
		WithHelp("UCHE client page fault filter"),
		WithMask(math.MaxUint32),
		WithStore(func(v uint64) {
			dev.UCHEClientPF.Store(uint32(v))
			dev.PatchRegList.Store(false)
		}),
		WithRestart(pc, nil),
	)
}

// DumpAllIBs makes snapshots dump every indirect buffer.
func DumpAllIBs(dev *gpu.Device) *Tunable {
	return New(NameDumpAllIBs,
		func() uint64 { return b2u(dev.DumpAllIBs.Load()) },
		WithHelp("dump all command buffers on snapshot"),
		WithBool(),
		WithStore(func(v uint64) { dev.DumpAllIBs.Store(v != 0) }),
	)
}

// BCLSID is one battery current limiting side id, owned by the GMU.
// Without a GMU it reads 0 and ignores writes.
func BCLSID(dev *gpu.Device, sid int) *Tunable {
	return New(BCLSIDName(sid),
		func() uint64 { return dev.GMU().BCLSIDGet(sid) },
		WithHelp(fmt.Sprintf("BCL side id %d", sid)),
		WithFeature(func() bool { return dev.GMU() != nil }),
		WithSetter(func(ctx context.Context, v uint64) error {
			return dev.GMU().BCLSIDSet(ctx, sid, v)
		}),
	)
}

// BCLThrottleTimeUS exposes the accumulated BCL throttle time.
func BCLThrottleTimeUS(dev *gpu.Device) *Tunable {
	return New(NameBCLThrottleTimeUS,
		func() uint64 { return uint64(dev.BCLThrottleTimeUS.Load()) },
		WithHelp("BCL throttle time in microseconds"),
		WithFeature(feature(dev, gpu.FeatureBCL)),
	)
}

// PreemptLevel is the preemption level, capped at PreemptLevelMax. With
// hardware scheduling the change is applied through a power cycle.
func PreemptLevel(dev *gpu.Device, pc gpu.PowerCycler) *Tunable {
	return New(NamePreemptLevel,
		func() uint64 { return uint64(dev.Preempt.Level.Load()) },
		WithHelp("preemption level"),
		WithClamp(nil, ptr.To[uint64](PreemptLevelMax)),
		WithStore(func(v uint64) { dev.Preempt.Level.Store(uint32(v)) }),
		WithRestart(pc, feature(dev, gpu.FeatureHWSched)),
	)
}

// PreemptUsesGMEM toggles GMEM save and restore on preemption.
func PreemptUsesGMEM(dev *gpu.Device, pc gpu.PowerCycler) *Tunable {
	return New(NamePreemptUsesGMEM,
		func() uint64 { return b2u(dev.Preempt.UsesGMEM.Load()) },
		WithHelp("preemption uses GMEM"),
		WithBool(),
		WithStore(func(v uint64) { dev.Preempt.UsesGMEM.Store(v != 0) }),
		WithRestart(pc, feature(dev, gpu.FeatureHWSched)),
	)
}

// PreemptSkipSaveRestore toggles skipping context save and restore.
func PreemptSkipSaveRestore(dev *gpu.Device, pc gpu.PowerCycler) *Tunable {
	return New(NamePreemptSkipSaveRst,
		func() uint64 { return b2u(dev.Preempt.SkipSaveRestore.Load()) },
		WithHelp("preemption skips save and restore"),
		WithBool(),
		WithStore(func(v uint64) { dev.Preempt.SkipSaveRestore.Store(v != 0) }),
		WithRestart(pc, feature(dev, gpu.FeatureHWSched)),
	)
}
