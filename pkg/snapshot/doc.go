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

// Package snapshot renders live context state as text.
//
// A report is produced in two steps. Open takes a reference on the context
// and fails fast if the context is already gone; WriteTo then renders the
// header, the two flag groups, the timestamps, the draw queue and the
// pending events:
//
//	id: 3 type: GL priority: 1 process: surfaceflinger (812) tid: 901
//	flags: PREAMBLE|PER_CONTEXT_TS priv: submitted
//	timestamps: queued: 42 consumed: 40 retired: 40 global:57
//	drawqueue:
//	 cmdobj	 41  priv: None flags: EOF
//	 syncobj
//		sync: ctx: 2 ts: 17
//	 flags: SYNC
//	events:
//		42: pipeline_complete created: 41
//
// The draw queue lock is held for the whole queue walk, the event lock for
// the event walk, and never both at once. Draw objects retired between the
// walk and rendering are skipped.
//
// Usage:
//
//	r, err := snapshot.OpenID(dev, id)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	_, err = r.WriteTo(os.Stdout)
package snapshot
