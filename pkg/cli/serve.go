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

package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/gpudbg/pkg/api"
	"github.com/NVIDIA/gpudbg/pkg/config"
	"github.com/NVIDIA/gpudbg/pkg/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a simulated device and serve its nodes over HTTP",
		Description: `Builds a simulated device from a profile and serves its debugfs tree.
Without --profile every feature is enabled and one GL context is created.

The profile is YAML, JSON or CBOR, read from a file path or an HTTP/HTTPS URL:

  device:
    name: adreno-sim
    features: [lm, gmu, ifpc, hwsched]
  power:
    delay: 20ms
  tunables:
    lm_limit: "5000"

# Examples

  gpudbg serve --profile profile.yaml --port 9090`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Usage:   "Path/URL of the device profile",
				Sources: cli.EnvVars("GPUDBG_PROFILE"),
			},
			&cli.StringFlag{
				Name:    "address",
				Usage:   "Listen address",
				Sources: cli.EnvVars("GPUDBG_ADDRESS"),
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "Listen port",
				Sources: cli.EnvVars("GPUDBG_PORT", "PORT"),
				Value:   8080,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			profile, err := loadProfile(cmd.String("profile"))
			if err != nil {
				return err
			}
			return api.Serve(ctx, profile, server.WithAddress(cmd.String("address"), cmd.Int("port")))
		},
	}
}

func loadProfile(path string) (*config.Profile, error) {
	if path == "" {
		return config.Default(), nil
	}
	p, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile from %q: %w", path, err)
	}
	return p, nil
}
