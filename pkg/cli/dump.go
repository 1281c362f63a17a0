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
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/gpudbg/pkg/client"
	"github.com/NVIDIA/gpudbg/pkg/debugfs"
	"github.com/NVIDIA/gpudbg/pkg/errors"
	"github.com/NVIDIA/gpudbg/pkg/serializer"
)

// Dump is a point-in-time capture of a daemon's tunables and, optionally,
// its context reports.
type Dump struct {
	Server    string            `json:"server" yaml:"server" cbor:"server"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp" cbor:"timestamp"`
	Tunables  map[string]uint64 `json:"tunables" yaml:"tunables" cbor:"tunables"`
	Contexts  map[string]string `json:"contexts,omitempty" yaml:"contexts,omitempty" cbor:"contexts,omitempty"`
}

func dumpCmd() *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "Capture every tunable, and optionally every context report",
		Description: `Captures the current value of every tunable. With --reports the report of
every live context is included. The capture is not atomic: values are read
one at a time and may be mutually stale.

# Examples

  gpudbg dump --reports --format json --output dump.json`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "reports",
				Aliases: []string{"r"},
				Usage:   "Include context reports",
			},
			outputFlag(),
			formatFlag(serializer.FormatYAML),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w, err := writerFor(cmd)
			if err != nil {
				return err
			}
			defer w.Close()

			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			d, err := capture(ctx, c, cmd.Bool("reports"))
			if err != nil {
				return err
			}
			return w.Serialize(ctx, d)
		},
	}
}

func capture(ctx context.Context, c *client.Client, reports bool) (*Dump, error) {
	tunables, err := c.Tunables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tunables: %w", err)
	}
	d := &Dump{
		Server:    c.String(),
		Timestamp: time.Now().UTC(),
		Tunables:  tunables,
	}
	if !reports {
		return d, nil
	}

	entries, err := c.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	d.Contexts = make(map[string]string)
	for _, e := range entries {
		if e.Kind != debugfs.KindReport {
			continue
		}
		out, err := c.Read(ctx, e.Path)
		if err != nil {
			// detached since the listing
			if errors.IsCode(err, errors.ErrCodeNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", e.Path, err)
		}
		d.Contexts[strings.TrimPrefix(e.Path, debugfs.ContextDir+"/")] = out
	}
	return d, nil
}
