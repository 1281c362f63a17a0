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


// Package config loads device profiles.
//
// A profile describes the simulated device gpudbg serves: its name and
// features, the tunable values written once the node tree is up, the
// contexts created at start, the synthetic workload and the power
// controller. Profiles are YAML, JSON or CBOR, read from a file or URL:
//
//	device:
//	  name: adreno-740
//	  features: [lm, gmu, ifpc, hwsched]
//	  ifpcHystFloor: 10
//	power:
//	  delay: 20ms
//	pipeline:
//	  enabled: true
//	  interval: 50ms
//	  seed: 7
//	  churn: 2
//	contexts:
//	  - type: GL
//	    process: surfaceflinger
//	    pid: 612
//	tunables:
//	  lm_limit: "6000"
//	  preemption/preempt_level: "1"
package config
