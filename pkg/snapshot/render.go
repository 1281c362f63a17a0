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
	"fmt"
	"io"

	"github.com/NVIDIA/gpudbg/pkg/flags"
	"github.com/NVIDIA/gpudbg/pkg/gpu"
	"github.com/NVIDIA/gpudbg/pkg/refcount"
)

// Writer is the sink reports are rendered into.
type Writer interface {
	io.Writer
	io.StringWriter
}

// RenderDrawObj writes one draw object. If the object has already been freed
// nothing is written and false is returned.
func RenderDrawObj(w Writer, objs *refcount.Arena[gpu.DrawObj], h refcount.Handle) bool {
	obj, ok := objs.TryAcquire(h)
	if !ok {
		drawObjsVanished.Inc()
		return false
	}
	defer objs.Release(h)

	switch obj.Kind {
	case gpu.DrawObjKindSync:
		renderSyncObj(w, obj.Sync)
	case gpu.DrawObjKindCmd, gpu.DrawObjKindMarker:
		renderCmdObj(w, obj)
	}

	_, _ = w.WriteString(" flags: ")
	flags.Write(w, obj.Flags, DrawObjFlags)
	_, _ = w.WriteString("\n")
	return true
}

func renderSyncObj(w Writer, s *gpu.SyncObj) {
	_, _ = w.WriteString(" syncobj\n")
	if s == nil {
		return
	}
	for i := range s.Events {
		if !s.EventPending(i) {
			continue
		}
		renderSyncEvent(w, &s.Events[i])
	}
}

func renderSyncEvent(w Writer, e *gpu.SyncEvent) {
	switch e.Type {
	case gpu.SyncEventTimestamp:
		fmt.Fprintf(w, "\tsync: ctx: %d ts: %d\n", e.Context, e.Timestamp)
	case gpu.SyncEventFence:
		if e.Fences == nil {
			return
		}
		for _, f := range e.Fences.Fences {
			fmt.Fprintf(w, "\tsync: %s\n", f.Name)
		}
	case gpu.SyncEventTimeline:
		for _, p := range e.Timelines {
			if p.Timeline == 0 {
				break
			}
			fmt.Fprintf(w, "\ttimeline: %d seqno: %d\n", p.Timeline, p.Seqno)
		}
	default:
		fmt.Fprintf(w, "\tsync: type: %d\n", e.Type)
	}
}

func renderCmdObj(w Writer, obj *gpu.DrawObj) {
	fmt.Fprintf(w, " %s\t %d  priv: ", obj.Kind, obj.Timestamp)
	var priv uint64
	if obj.Cmd != nil {
		priv = obj.Cmd.Priv()
	}
	flags.Write(w, priv, CmdObjPriv)
}
