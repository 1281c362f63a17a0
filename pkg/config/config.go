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

package config

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"time"

	"github.com/NVIDIA/gpudbg/pkg/debugfs"
	"github.com/NVIDIA/gpudbg/pkg/defaults"
	"github.com/NVIDIA/gpudbg/pkg/errors"
	"github.com/NVIDIA/gpudbg/pkg/gpu"
	"github.com/NVIDIA/gpudbg/pkg/serializer"
)

// DefaultDeviceName is the device name of the default profile.
const DefaultDeviceName = "adreno-sim"

// Duration is a time.Duration that reads and writes as "50ms" style text.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Profile is a device profile.
type Profile struct {
	Device   Device            `json:"device" yaml:"device"`
	Power    Power             `json:"power" yaml:"power"`
	Pipeline Pipeline          `json:"pipeline" yaml:"pipeline"`
	Contexts []Context         `json:"contexts,omitempty" yaml:"contexts,omitempty"`
	Tunables map[string]string `json:"tunables,omitempty" yaml:"tunables,omitempty"`
}

// Device describes the simulated hardware.
type Device struct {
	Name          string   `json:"name" yaml:"name"`
	Features      []string `json:"features,omitempty" yaml:"features,omitempty"`
	IFPCHystFloor uint32   `json:"ifpcHystFloor,omitempty" yaml:"ifpcHystFloor,omitempty"`
}

// Power configures the power controller.
type Power struct {
	Delay Duration `json:"delay" yaml:"delay"`
	// Faults makes the first n power cycles fail.
	Faults int `json:"faults,omitempty" yaml:"faults,omitempty"`
}

// Pipeline configures the synthetic submission workload.
type Pipeline struct {
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Interval Duration `json:"interval" yaml:"interval"`
	Seed     uint64   `json:"seed" yaml:"seed"`
	// Churn bounds the short-lived contexts the workload attaches and
	// detaches while it runs.
	Churn int `json:"churn,omitempty" yaml:"churn,omitempty"`
}

// Context is a context created when the device starts.
type Context struct {
	Type     string `json:"type" yaml:"type"`
	Priority int    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Flags    uint64 `json:"flags,omitempty" yaml:"flags,omitempty"`
	Process  string `json:"process" yaml:"process"`
	PID      int    `json:"pid" yaml:"pid"`
	TID      int    `json:"tid,omitempty" yaml:"tid,omitempty"`
}

// ErrInjectedFault is the cause of power cycle failures requested by Power.Faults.
var ErrInjectedFault = stderrors.New("injected fault")

// Default returns the profile used when none is given: every feature, one
// GL context, and the workload running.
func Default() *Profile {
	features := make([]string, 0, len(gpu.Features))
	for _, f := range gpu.Features {
		features = append(features, string(f))
	}
	return &Profile{
		Device: Device{
			Name:          DefaultDeviceName,
			Features:      features,
			IFPCHystFloor: 10,
		},
		Power: Power{Delay: Duration(defaults.PowerCycleDelay)},
		Pipeline: Pipeline{
			Enabled:  true,
			Interval: Duration(defaults.PipelineInterval),
			Seed:     1,
			Churn:    2,
		},
		Contexts: []Context{
			{Type: gpu.ContextTypeGL.String(), Process: "surfaceflinger", PID: 612, TID: 640},
		},
	}
}

// Load reads a profile from a file path or http(s) URL. Missing durations
// and the device name take their defaults.
func Load(path string) (*Profile, error) {
	p, err := serializer.FromFile[Profile](path)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest, "failed to load profile", err,
			map[string]any{"path": path})
	}
	p.setDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("profile loaded", "path", path, "device", p.Device.Name, "features", p.Device.Features)
	return p, nil
}

func (p *Profile) setDefaults() {
	if p.Device.Name == "" {
		p.Device.Name = DefaultDeviceName
	}
	if p.Pipeline.Interval == 0 {
		p.Pipeline.Interval = Duration(defaults.PipelineInterval)
	}
	for i := range p.Contexts {
		if p.Contexts[i].Type == "" {
			p.Contexts[i].Type = gpu.ContextTypeAny.String()
		}
	}
}

// Validate checks feature names, context types and ranges.
func (p *Profile) Validate() error {
	for _, f := range p.Device.Features {
		if _, err := gpu.ParseFeature(f); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidRequest, "invalid device feature", err)
		}
	}
	if p.Power.Delay < 0 || p.Power.Faults < 0 {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "power settings must not be negative",
			map[string]any{"delay": time.Duration(p.Power.Delay).String(), "faults": p.Power.Faults})
	}
	if p.Pipeline.Churn < 0 {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "pipeline churn must not be negative",
			map[string]any{"churn": p.Pipeline.Churn})
	}
	if p.Pipeline.Enabled && p.Pipeline.Interval <= 0 {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "pipeline interval must be positive",
			map[string]any{"interval": time.Duration(p.Pipeline.Interval).String()})
	}
	for i, c := range p.Contexts {
		if gpu.ParseContextType(c.Type) == gpu.ContextTypeUnknown {
			return errors.NewWithContext(errors.ErrCodeInvalidRequest, "unknown context type",
				map[string]any{"index": i, "type": c.Type})
		}
		if c.Priority < 0 || c.Priority > 15 {
			return errors.NewWithContext(errors.ErrCodeInvalidRequest, "context priority out of range",
				map[string]any{"index": i, "priority": c.Priority})
		}
	}
	return nil
}

// DeviceOptions converts the device section.
func (p *Profile) DeviceOptions() gpu.Options {
	opts := gpu.Options{
		Name:          p.Device.Name,
		IFPCHystFloor: p.Device.IFPCHystFloor,
	}
	for _, f := range p.Device.Features {
		// Validate has checked the names
		feat, _ := gpu.ParseFeature(f)
		opts.Features = append(opts.Features, feat)
	}
	return opts
}

// NewController returns the power controller of dev with the profile's
// delay and injected faults.
func (p *Profile) NewController(dev *gpu.Device) *gpu.Controller {
	pc := gpu.NewController(dev, time.Duration(p.Power.Delay))
	if p.Power.Faults > 0 {
		pc.InjectFault(ErrInjectedFault, p.Power.Faults)
	}
	return pc
}

// NewPipeline returns the synthetic workload, or nil when it is disabled.
func (p *Profile) NewPipeline(dev *gpu.Device) *gpu.Pipeline {
	if !p.Pipeline.Enabled {
		return nil
	}
	pl := gpu.NewPipeline(dev, time.Duration(p.Pipeline.Interval), p.Pipeline.Seed)
	pl.MaxTransient = p.Pipeline.Churn
	return pl
}

// CreateContexts creates the profile's contexts on dev.
func (p *Profile) CreateContexts(dev *gpu.Device) []*gpu.Context {
	out := make([]*gpu.Context, 0, len(p.Contexts))
	for _, c := range p.Contexts {
		out = append(out, dev.CreateContext(gpu.ContextSpec{
			Type:     gpu.ParseContextType(c.Type),
			Priority: c.Priority,
			Flags:    c.Flags,
			Proc:     gpu.Process{Comm: c.Process, PID: c.PID},
			TID:      c.TID,
		}))
	}
	return out
}

// ApplyTunables writes the profile's tunable values through fs, in name
// order. Values are parsed like node writes. The first failure stops.
func (p *Profile) ApplyTunables(ctx context.Context, fs *debugfs.FS) error {
	names := make([]string, 0, len(p.Tunables))
	for name := range p.Tunables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := fs.Write(ctx, name, p.Tunables[name]); err != nil {
			return errors.WrapWithContext(errors.CodeOf(err), "failed to apply profile tunable", err,
				map[string]any{"name": name, "value": p.Tunables[name]})
		}
	}
	return nil
}
