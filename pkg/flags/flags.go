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

package flags

import (
	"io"
	"strconv"
	"strings"
)

// None is rendered when a value has no set bits.
const None = "None"

// Entry maps a bit mask to its symbolic label.
type Entry struct {
	Mask  uint64
	Label string
}

// Table is an ordered list of entries. Earlier entries win when masks overlap.
type Table []Entry

// Bit returns the mask for bit n.
func Bit(n uint) uint64 {
	return 1 << n
}

// Format renders value as a "|"-joined list of labels from table. Each matched
// mask is cleared before the next entry is tested, so a bit is attributed to at
// most one label. Bits left over are appended as a single hex term.
func Format(value uint64, table Table) string {
	var sb strings.Builder
	Write(&sb, value, table)
	return sb.String()
}

// Write is Format streaming into w.
func Write(w io.StringWriter, value uint64, table Table) {
	first := true
	sep := func() {
		if !first {
			_, _ = w.WriteString("|")
		}
		first = false
	}

	for _, e := range table {
		if e.Mask == 0 || value&e.Mask != e.Mask {
			continue
		}
		sep()
		_, _ = w.WriteString(e.Label)
		value &^= e.Mask
	}

	if value != 0 {
		sep()
		_, _ = w.WriteString("0x" + strconv.FormatUint(value, 16))
	}

	if first {
		_, _ = w.WriteString(None)
	}
}
