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

package gpu

// Context user flags, as passed at context creation.
const (
	ContextSaveGMEM          uint64 = 0x00000001
	ContextNoGMEMAlloc       uint64 = 0x00000002
	ContextSubmitIBList      uint64 = 0x00000004
	ContextCtxSwitch         uint64 = 0x00000008
	ContextPreamble          uint64 = 0x00000010
	ContextTrashState        uint64 = 0x00000020
	ContextPerContextTS      uint64 = 0x00000040
	ContextUserGeneratedTS   uint64 = 0x00000080
	ContextEndOfFrame        uint64 = 0x00000100
	ContextNoFaultTolerance  uint64 = 0x00000200
	ContextSync              uint64 = 0x00000400
	ContextPwrConstraint     uint64 = 0x00000800
	ContextPriorityMask      uint64 = 0x0000F000
	ContextPriorityShift            = 12
	ContextIFHNop            uint64 = 0x00010000
	ContextSecure            uint64 = 0x00020000
	ContextNoSnapshot        uint64 = 0x00040000
	ContextSparse            uint64 = 0x00080000
	ContextTypeMask          uint64 = 0x01F00000
	ContextTypeShift                = 20
	ContextInvalidateOnFault uint64 = 0x10000000
	ContextLPAC              uint64 = 0x20000000
	ContextFaultInfo         uint64 = 0x40000000
)

// Context private status bits (bit numbers).
const (
	ContextPrivSubmitted = iota
	ContextPrivDetached
	ContextPrivInvalid
	ContextPrivPagefault
)

// Device specific private bits start at 16.
const (
	ContextPrivFault = 16 + iota
	ContextPrivGPUHang
	ContextPrivGPUHangFT
	ContextPrivSkipEOF
	ContextPrivForcePreamble
)

// Draw object flags.
const (
	DrawObjMarker         uint64 = 0x00000001
	DrawObjSubmitIBList   uint64 = 0x00000004
	DrawObjCtxSwitch      uint64 = 0x00000008
	DrawObjProfiling      uint64 = 0x00000010
	DrawObjProfilingKtime uint64 = 0x00000020
	DrawObjEndOfFrame     uint64 = 0x00000100
	DrawObjSync           uint64 = 0x00000400
	DrawObjPwrConstraint  uint64 = 0x00000800
	DrawObjSparse         uint64 = 0x00001000
)

// Command object private bits (bit numbers).
const (
	CmdObjSkip = iota
	CmdObjForcePreamble
	CmdObjWFI
	CmdObjProfile
)

// ContextType is the client API a context was created for.
type ContextType uint32

const (
	ContextTypeAny     ContextType = 0
	ContextTypeGL      ContextType = 1
	ContextTypeCL      ContextType = 2
	ContextTypeC2D     ContextType = 3
	ContextTypeRS      ContextType = 4
	ContextTypeVK      ContextType = 5
	ContextTypeUnknown ContextType = 0x1E
)

var contextTypeNames = map[ContextType]string{
	ContextTypeAny: "ANY",
	ContextTypeGL:  "GL",
	ContextTypeCL:  "CL",
	ContextTypeC2D: "C2D",
	ContextTypeRS:  "RS",
	ContextTypeVK:  "VK",
}

// String returns the label used in context reports.
func (t ContextType) String() string {
	if s, ok := contextTypeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseContextType is the inverse of String. Unknown names map to ContextTypeUnknown.
func ParseContextType(s string) ContextType {
	for t, name := range contextTypeNames {
		if name == s {
			return t
		}
	}
	return ContextTypeUnknown
}
