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

package tunable

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NVIDIA/gpudbg/pkg/errors"
)

// Registry maps names to tunables. Registration order is preserved.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Tunable
	names  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Tunable)}
}

// Register adds t. Names must be unique.
func (r *Registry) Register(t *Tunable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[t.name]; ok {
		return fmt.Errorf("tunable %q already registered", t.name)
	}
	r.byName[t.name] = t
	r.names = append(r.names, t.name)
	return nil
}

// MustRegister is Register that panics on a duplicate.
func (r *Registry) MustRegister(ts ...*Tunable) {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get returns the tunable named name.
func (r *Registry) Get(name string) (*Tunable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

func (r *Registry) lookup(name string) (*Tunable, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound, "unknown tunable",
			map[string]any{"name": name})
	}
	return t, nil
}

// Read returns the value of the named tunable.
func (r *Registry) Read(name string) (uint64, error) {
	t, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	return t.Read(), nil
}

// Write writes v to the named tunable.
func (r *Registry) Write(ctx context.Context, name string, v uint64) error {
	t, err := r.lookup(name)
	if err != nil {
		return err
	}
	return t.Write(ctx, v)
}

// Values returns a point-in-time read of every tunable. The reads are
// independent and may be mutually stale.
func (r *Registry) Values() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]uint64, len(r.byName))
	for name, t := range r.byName {
		out[name] = t.Read()
	}
	return out
}

var valueDesc = prometheus.NewDesc(
	"gpudbg_tunable_value",
	"Current value of a device tunable",
	[]string{"name", "kind"}, nil,
)

// Describe implements prometheus.Collector.
func (r *Registry) Describe(ch chan<- *prometheus.Desc) {
	ch <- valueDesc
}

// Collect implements prometheus.Collector.
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.names {
		t := r.byName[name]
		ch <- prometheus.MustNewConstMetric(valueDesc, prometheus.GaugeValue,
			float64(t.Read()), name, string(t.kind))
	}
}
