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

// Package gpu models the device state that the introspection surface reads
// and tunes: contexts with their draw queues and event groups, draw objects,
// the device capability set, the per-device tunable words and the power
// cycle mechanism.
//
// # Ownership
//
// Contexts and draw objects live in refcount arenas owned by the Device.
// The draw queue holds one reference per queued object; CreateContext returns
// with the creator's reference, which DetachContext drops. Readers use
// TryAcquire and must tolerate failure.
//
// # Execution and power cycles
//
// Work runs between BeginExec and EndExec. A Controller power cycle waits for
// all execution to drain, applies its mutation exactly once and resumes:
//
//	dev := gpu.NewDevice(gpu.Options{Name: "gpu0", Features: gpu.Features})
//	pc := gpu.NewController(dev, 10*time.Millisecond)
//	err := pc.ApplyWithRestart(ctx, 1, func(v uint64) { dev.WarmbootEnabled.Store(v != 0) })
//
// # Workload
//
// Pipeline is a synthetic submitter used by the daemon so the reports have
// live content. It is seeded, so tests can reproduce a run. With MaxTransient
// set it also attaches and detaches short-lived contexts, so context nodes
// appear and disappear while readers are active.
package gpu
