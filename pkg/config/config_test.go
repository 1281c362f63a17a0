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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/gpudbg/pkg/debugfs"
	"github.com/NVIDIA/gpudbg/pkg/errors"
	"github.com/NVIDIA/gpudbg/pkg/gpu"
	"github.com/NVIDIA/gpudbg/pkg/serializer"
	"github.com/NVIDIA/gpudbg/pkg/tunable"
)

const testProfile = `
device:
  name: adreno-740
  features: [lm, gmu, ifpc, hwsched]
  ifpcHystFloor: 10
power:
  delay: 1ms
  faults: 1
pipeline:
  enabled: true
  interval: 10ms
  seed: 7
contexts:
  - type: CL
    priority: 2
    process: compute
    pid: 99
  - process: untyped
    pid: 100
tunables:
  lm_limit: "50000"
  ifpc_hyst: "0x1FFFF"
`

func writeProfile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	p, err := Load(writeProfile(t, "p.yaml", testProfile))
	require.NoError(t, err)

	assert.Equal(t, "adreno-740", p.Device.Name)
	assert.Equal(t, Duration(time.Millisecond), p.Power.Delay)
	assert.Equal(t, Duration(10*time.Millisecond), p.Pipeline.Interval)
	assert.Equal(t, "ANY", p.Contexts[1].Type)

	opts := p.DeviceOptions()
	assert.Equal(t, []gpu.Feature{gpu.FeatureLM, gpu.FeatureGMU, gpu.FeatureIFPC, gpu.FeatureHWSched}, opts.Features)
	assert.EqualValues(t, 10, opts.IFPCHystFloor)
}

func TestLoadJSONDefaults(t *testing.T) {
	p, err := Load(writeProfile(t, "p.json", `{"device":{"features":["bcl"]}}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultDeviceName, p.Device.Name)
	assert.False(t, p.Pipeline.Enabled)
	assert.Nil(t, p.NewPipeline(gpu.NewDevice(p.DeviceOptions())))
}

func TestLoadCBORKeepsDurations(t *testing.T) {
	want := Default()
	want.Power.Delay = Duration(75 * time.Millisecond)
	want.Pipeline.Interval = Duration(5 * time.Millisecond)

	data, err := serializer.Marshal(serializer.FormatCBOR, want)
	require.NoError(t, err)
	assert.Contains(t, string(data), "75ms")

	got, err := Load(writeProfile(t, "p.cbor", string(data)))
	require.NoError(t, err)
	assert.Equal(t, want.Power.Delay, got.Power.Delay)
	assert.Equal(t, want.Pipeline, got.Pipeline)
	assert.Equal(t, want.Contexts, got.Contexts)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad feature", "device:\n  features: [warp]\n"},
		{"bad context type", "contexts:\n  - type: DX\n"},
		{"bad priority", "contexts:\n  - type: GL\n    priority: 16\n"},
		{"negative faults", "power:\n  faults: -1\n"},
		{"negative churn", "pipeline:\n  churn: -1\n"},
		{"bad duration", "power:\n  delay: soon\n"},
		{"not yaml", "device: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeProfile(t, "p.yaml", tt.content))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRequest))
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())
	assert.Len(t, p.DeviceOptions().Features, len(gpu.Features))
	pl := p.NewPipeline(gpu.NewDevice(p.DeviceOptions()))
	require.NotNil(t, pl)
	assert.Equal(t, p.Pipeline.Churn, pl.MaxTransient)
	assert.Positive(t, pl.MaxTransient)
}

func TestBuild(t *testing.T) {
	p, err := Load(writeProfile(t, "p.yaml", testProfile))
	require.NoError(t, err)

	dev := gpu.NewDevice(p.DeviceOptions())
	pc := p.NewController(dev)
	fs := debugfs.Init(dev, pc)
	defer fs.Close()

	ctxs := p.CreateContexts(dev)
	require.Len(t, ctxs, 2)
	assert.Equal(t, []uint32{ctxs[0].ID, ctxs[1].ID}, dev.ContextIDs())

	out, err := fs.Read(debugfs.ContextPath(ctxs[0].ID))
	require.NoError(t, err)
	assert.Contains(t, out, "type: CL priority: 2 process: compute (99)")

	// ifpc_hyst sorts first and hits the injected fault; lm_limit is never reached
	err = p.ApplyTunables(context.Background(), fs)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnavailable))
	assert.ErrorIs(t, err, ErrInjectedFault)

	require.NoError(t, p.ApplyTunables(context.Background(), fs))
	v, err := fs.ReadAttr(tunable.NameLMLimit)
	require.NoError(t, err)
	assert.EqualValues(t, 10000, v)
	v, err = fs.ReadAttr(tunable.NameIFPCHyst)
	require.NoError(t, err)
	assert.EqualValues(t, 0xFFFF, v)
}

func TestApplyTunablesUnknown(t *testing.T) {
	p := Default()
	p.Tunables = map[string]string{"nope": "1"}
	dev := gpu.NewDevice(p.DeviceOptions())
	fs := debugfs.Init(dev, p.NewController(dev))
	defer fs.Close()

	err := p.ApplyTunables(context.Background(), fs)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, Duration(90*time.Second), d)
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(b))
	assert.Error(t, d.UnmarshalText([]byte("later")))
}
