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

package refcount

import "sync/atomic"

// Count is an atomic reference count. Once it reaches zero it can never be
// raised again; TryGet fails from then on.
type Count struct {
	n atomic.Int64
}

// Init sets the count to one, the reference owned by the creator.
func (c *Count) Init() {
	c.n.Store(1)
}

// TryGet increments the count unless it already reached zero.
func (c *Count) TryGet() bool {
	for {
		n := c.n.Load()
		if n <= 0 {
			return false
		}
		if c.n.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Put drops one reference and reports whether it was the last one.
func (c *Count) Put() bool {
	n := c.n.Add(-1)
	if n < 0 {
		panic("refcount: Put on released count")
	}
	return n == 0
}

// Load returns the current count.
func (c *Count) Load() int64 {
	return c.n.Load()
}
