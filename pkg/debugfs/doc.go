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

// Package debugfs exposes a device as a tree of named nodes.
//
// Attribute nodes read and write one tunable as a decimal value. Report
// nodes, one per live context under ctx/, render the context report.
// Init decides from the device features which attributes exist:
//
//	active_cnt
//	ctx/<id>
//	isdb                        (isdb)
//	lm_limit, lm_threshold_count (lm)
//	ifpc_hyst                   (gmu)
//	warmboot                    (gmu_warmboot)
//	snapshot/coop_reset, snapshot/ctxt_record_size,
//	snapshot/gpu_client_pf, snapshot/dump_all_ibs
//	bcl/sid0..sid2, bcl/bcl_throttle_time_us
//	preemption/preempt_level, preemption/usesgmem, preemption/skipsaverestore
//
// A report node holds a reference on its context from creation until the
// context is detached. Reports opened through the node take their own
// reference, so a detached context is freed only once the node is gone and
// every open report is closed.
package debugfs
