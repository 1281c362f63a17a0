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

import (
	"fmt"
	"sort"
)

// Feature is a device capability.
type Feature string

const (
	// FeatureLM is GPU limits management (current limiting).
	FeatureLM Feature = "lm"
	// FeatureCoopReset is cooperative reset with the GMU.
	FeatureCoopReset Feature = "coop_reset"
	// FeatureBCL is battery current limiting.
	FeatureBCL Feature = "bcl"
	// FeatureGMUWarmboot is GMU warm boot.
	FeatureGMUWarmboot Feature = "gmu_warmboot"
	// FeatureISDB is the in-silicon debugger (a5xx parts).
	FeatureISDB Feature = "isdb"
	// FeatureGMU means the device has a graphics management unit.
	FeatureGMU Feature = "gmu"
	// FeatureIFPC is inter-frame power collapse.
	FeatureIFPC Feature = "ifpc"
	// FeatureHWSched is hardware scheduling.
	FeatureHWSched Feature = "hwsched"
)

// Features lists every known feature in a stable order.
var Features = []Feature{
	FeatureLM,
	FeatureCoopReset,
	FeatureBCL,
	FeatureGMUWarmboot,
	FeatureISDB,
	FeatureGMU,
	FeatureIFPC,
	FeatureHWSched,
}

// ParseFeature validates a feature name.
func ParseFeature(s string) (Feature, error) {
	for _, f := range Features {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown feature %q", s)
}

// FeatureSet is an immutable set of features.
type FeatureSet map[Feature]struct{}

// NewFeatureSet builds a set from a list.
func NewFeatureSet(fs ...Feature) FeatureSet {
	s := make(FeatureSet, len(fs))
	for _, f := range fs {
		s[f] = struct{}{}
	}
	return s
}

// Has reports whether f is in the set.
func (s FeatureSet) Has(f Feature) bool {
	_, ok := s[f]
	return ok
}

// List returns the set members sorted by name.
func (s FeatureSet) List() []Feature {
	out := make([]Feature, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
