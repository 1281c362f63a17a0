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
	"math/bits"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testTable = Table{
	{Bit(0), "skip"},
	{Bit(1), "force_preamble"},
	{Bit(2), "wait_for_idle"},
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		table Table
		want  string
	}{
		{"zero with table", 0, testTable, "None"},
		{"zero with empty table", 0, nil, "None"},
		{"empty table residual", 0x30, nil, "0x30"},
		{"single match", Bit(1), testTable, "force_preamble"},
		{"table order", Bit(2) | Bit(0), testTable, "skip|wait_for_idle"},
		{"residual last", Bit(0) | Bit(8), testTable, "skip|0x100"},
		{"only residual", Bit(9) | Bit(4), testTable, "0x210"},
		{"all bits", Bit(0) | Bit(1) | Bit(2), testTable, "skip|force_preamble|wait_for_idle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.value, tt.table))
		})
	}
}

func TestFormatMultiBitMaskNeedsAllBits(t *testing.T) {
	table := Table{{0x3, "both"}, {0x1, "low"}}

	assert.Equal(t, "both", Format(0x3, table))
	assert.Equal(t, "low", Format(0x1, table))
	assert.Equal(t, "0x2", Format(0x2, table))
}

func TestFormatNoDoubleCounting(t *testing.T) {
	// Overlapping masks: the second entry shares bit 1 with the first.
	table := Table{{0x3, "a"}, {0x2, "b"}, {0x4, "c"}}

	assert.Equal(t, "a|c", Format(0x7, table))
}

func TestFormatEveryBitOnce(t *testing.T) {
	table := Table{
		{0x1, "a"},
		{0x6, "bc"},
		{0x10, "e"},
		{0x30, "ef"},
		{1 << 40, "hi"},
	}
	values := []uint64{0, 1, 0x7, 0x3f, 0xff, 1<<40 | 0x5, ^uint64(0), 0xdeadbeef}

	for _, v := range values {
		t.Run(strconv.FormatUint(v, 16), func(t *testing.T) {
			out := Format(v, table)
			if v == 0 {
				assert.Equal(t, None, out)
				return
			}

			var seen uint64
			for _, term := range strings.Split(out, "|") {
				var mask uint64
				if strings.HasPrefix(term, "0x") {
					m, err := strconv.ParseUint(term[2:], 16, 64)
					assert.NoError(t, err)
					mask = m
				} else {
					for _, e := range table {
						if e.Label == term {
							mask = e.Mask
						}
					}
				}
				assert.Zero(t, seen&mask, "bit attributed twice in %q", out)
				seen |= mask
			}
			assert.Equal(t, v, seen, "bits missing from %q", out)
			assert.Equal(t, bits.OnesCount64(v), bits.OnesCount64(seen))
		})
	}
}

func TestWrite(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("priv: ")
	Write(&sb, Bit(2), testTable)
	assert.Equal(t, "priv: wait_for_idle", sb.String())
}
