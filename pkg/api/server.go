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

package api

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/gpudbg/pkg/config"
	"github.com/NVIDIA/gpudbg/pkg/debugfs"
	"github.com/NVIDIA/gpudbg/pkg/errors"
	"github.com/NVIDIA/gpudbg/pkg/gpu"
	"github.com/NVIDIA/gpudbg/pkg/server"
)

const (
	name           = "gpudbgd"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/NVIDIA/gpudbg/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Daemon is a simulated device with its node tree served over HTTP.
type Daemon struct {
	Device     *gpu.Device
	FS         *debugfs.FS
	Controller *gpu.Controller
	Pipeline   *gpu.Pipeline
	Server     *server.Server

	registerer prometheus.Registerer
}

// Build creates the device described by profile, its contexts and node
// tree, applies the profile tunables and prepares the server. Extra server
// options are applied after the daemon's own.
func Build(ctx context.Context, profile *config.Profile, opts ...server.Option) (*Daemon, error) {
	if profile == nil {
		profile = config.Default()
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	dev := gpu.NewDevice(profile.DeviceOptions())
	d := &Daemon{
		Device:     dev,
		Controller: profile.NewController(dev),
		Pipeline:   profile.NewPipeline(dev),
		registerer: prometheus.DefaultRegisterer,
	}
	d.FS = debugfs.Init(dev, d.Controller)
	profile.CreateContexts(dev)

	if err := profile.ApplyTunables(ctx, d.FS); err != nil {
		d.FS.Close()
		return nil, err
	}

	if err := d.registerer.Register(d.FS.Registry()); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !stderrors.As(err, &are) {
			d.FS.Close()
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to register tunable collector", err)
		}
		slog.Warn("tunable collector already registered")
		d.registerer = nil
	}

	d.Server = server.New(append([]server.Option{
		server.WithName(name),
		server.WithVersion(version),
		server.WithHandler(d.FS.Handlers()),
	}, opts...)...)

	slog.Info("daemon built",
		"device", dev.Name,
		"features", dev.Features(),
		"contexts", len(dev.ContextIDs()),
		"pipeline", d.Pipeline != nil,
	)
	return d, nil
}

// Run serves until ctx is done or a component fails. The workload, when
// enabled, runs alongside the server. Readiness and shutdown are reported
// to systemd when running under it.
func (d *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.Server.Start(ctx)
	})

	if d.Pipeline != nil {
		g.Go(func() error {
			return d.Pipeline.Run(ctx)
		})
	}

	g.Go(func() error {
		select {
		case <-d.Server.Started():
		case <-ctx.Done():
			return nil
		}
		notify(daemon.SdNotifyReady)
		<-ctx.Done()
		notify(daemon.SdNotifyStopping)
		return nil
	})

	return g.Wait()
}

func notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		slog.Warn("systemd notify failed", "state", state, "error", err)
		return
	}
	if sent {
		slog.Debug("systemd notified", "state", state)
	}
}

// Close removes the context nodes and unregisters the tunable collector.
func (d *Daemon) Close() {
	if d.registerer != nil {
		d.registerer.Unregister(d.FS.Registry())
	}
	d.FS.Close()
}

// Serve builds a daemon from profile and runs it until SIGINT or SIGTERM.
func Serve(ctx context.Context, profile *config.Profile, opts ...server.Option) error {
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := Build(ctx, profile, opts...)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Run(ctx); err != nil {
		slog.Error("daemon exited with error", "error", err)
		return err
	}
	slog.Info("daemon stopped gracefully")
	return nil
}

// Name returns the daemon name used in logs and the root handler.
func Name() string {
	return name
}

// Version returns the build version.
func Version() string {
	return version
}
