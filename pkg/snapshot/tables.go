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
	"github.com/NVIDIA/gpudbg/pkg/flags"
	"github.com/NVIDIA/gpudbg/pkg/gpu"
)

// DrawObjFlags names the draw object flag bits.
var DrawObjFlags = flags.Table{
	{Mask: gpu.DrawObjMarker, Label: "MARKER"},
	{Mask: gpu.DrawObjCtxSwitch, Label: "CTX_SWITCH"},
	{Mask: gpu.DrawObjSync, Label: "SYNC"},
	{Mask: gpu.DrawObjEndOfFrame, Label: "EOF"},
	{Mask: gpu.DrawObjPwrConstraint, Label: "PWR_CONSTRAINT"},
	{Mask: gpu.DrawObjSubmitIBList, Label: "IB_LIST"},
}

// CmdObjPriv names the command object private bits.
var CmdObjPriv = flags.Table{
	{Mask: flags.Bit(gpu.CmdObjSkip), Label: "skip"},
	{Mask: flags.Bit(gpu.CmdObjForcePreamble), Label: "force_preamble"},
	{Mask: flags.Bit(gpu.CmdObjWFI), Label: "wait_for_idle"},
}

// ContextFlags names the context user flag bits. The priority and type
// fields are masked off before formatting.
var ContextFlags = flags.Table{
	{Mask: gpu.ContextNoGMEMAlloc, Label: "NO_GMEM_ALLOC"},
	{Mask: gpu.ContextPreamble, Label: "PREAMBLE"},
	{Mask: gpu.ContextTrashState, Label: "TRASH_STATE"},
	{Mask: gpu.ContextCtxSwitch, Label: "CTX_SWITCH"},
	{Mask: gpu.ContextPerContextTS, Label: "PER_CONTEXT_TS"},
	{Mask: gpu.ContextUserGeneratedTS, Label: "USER_TS"},
	{Mask: gpu.ContextNoFaultTolerance, Label: "NO_FT"},
	{Mask: gpu.ContextInvalidateOnFault, Label: "INVALIDATE_ON_FAULT"},
	{Mask: gpu.ContextPwrConstraint, Label: "PWR"},
	{Mask: gpu.ContextSaveGMEM, Label: "SAVE_GMEM"},
	{Mask: gpu.ContextIFHNop, Label: "IFH_NOP"},
	{Mask: gpu.ContextSecure, Label: "SECURE"},
	{Mask: gpu.ContextNoSnapshot, Label: "NO_SNAPSHOT"},
	{Mask: gpu.ContextSparse, Label: "SPARSE"},
}

// ContextPriv names the context private status bits.
var ContextPriv = flags.Table{
	{Mask: flags.Bit(gpu.ContextPrivSubmitted), Label: "submitted"},
	{Mask: flags.Bit(gpu.ContextPrivDetached), Label: "detached"},
	{Mask: flags.Bit(gpu.ContextPrivInvalid), Label: "invalid"},
	{Mask: flags.Bit(gpu.ContextPrivPagefault), Label: "pagefault"},
	{Mask: flags.Bit(gpu.ContextPrivFault), Label: "fault"},
	{Mask: flags.Bit(gpu.ContextPrivGPUHang), Label: "gpu_hang"},
	{Mask: flags.Bit(gpu.ContextPrivGPUHangFT), Label: "gpu_hang_ft"},
	{Mask: flags.Bit(gpu.ContextPrivSkipEOF), Label: "skip_end_of_frame"},
	{Mask: flags.Bit(gpu.ContextPrivForcePreamble), Label: "force_preamble"},
}
