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
	"path"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/xlab/treeprint"

	"github.com/NVIDIA/gpudbg/pkg/debugfs"
	"github.com/NVIDIA/gpudbg/pkg/serializer"
)

func lsCmd() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Aliases:   []string{"list"},
		Usage:     "List nodes",
		ArgsUsage: "[prefix]",
		Description: `Lists the nodes of the daemon's tree with their kind and access mode.
An optional prefix limits the listing, e.g. "gpudbg ls bcl".`,
		Flags: []cli.Flag{
			outputFlag(),
			formatFlag(serializer.FormatTable),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			entries, err := c.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list nodes: %w", err)
			}
			entries = filterPrefix(entries, cmd.Args().First())

			if f != serializer.FormatTable {
				w, err := writerFor(cmd)
				if err != nil {
					return err
				}
				defer w.Close()
				return w.Serialize(ctx, entries)
			}

			table := serializer.NewTable(stdout(cmd), "PATH", "KIND", "MODE", "HELP")
			for _, e := range entries {
				table.Append([]string{e.Path, string(e.Kind), string(e.Mode), e.Help})
			}
			table.Render()
			return nil
		},
	}
}

func filterPrefix(entries []debugfs.Entry, prefix string) []debugfs.Entry {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return entries
	}
	out := entries[:0:0]
	for _, e := range entries {
		if e.Path == prefix || strings.HasPrefix(e.Path, prefix+"/") {
			out = append(out, e)
		}
	}
	return out
}

func treeCmd() *cli.Command {
	return &cli.Command{
		Name:  "tree",
		Usage: "Show nodes as a tree",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			entries, err := c.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list nodes: %w", err)
			}
			fmt.Fprint(stdout(cmd), buildTree(c.String(), entries).String())
			return nil
		},
	}
}

// buildTree nests entries by directory. Leaves carry their access mode as
// meta, directories sort before files.
func buildTree(root string, entries []debugfs.Entry) treeprint.Tree {
	sorted := make([]debugfs.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := strings.Contains(sorted[i].Path, "/"), strings.Contains(sorted[j].Path, "/")
		if di != dj {
			return di
		}
		return sorted[i].Path < sorted[j].Path
	})

	tree := treeprint.NewWithRoot(root)
	branches := make(map[string]treeprint.Tree)
	for _, e := range sorted {
		dir, file := path.Split(e.Path)
		parent := tree
		if dir = strings.TrimSuffix(dir, "/"); dir != "" {
			if b, ok := branches[dir]; ok {
				parent = b
			} else {
				parent = tree.AddBranch(dir)
				branches[dir] = parent
			}
		}
		parent.AddMetaNode(e.Mode, file)
	}
	return tree
}

func getCmd() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Aliases:   []string{"cat"},
		Usage:     "Print one or more nodes",
		ArgsUsage: "<path>...",
		Description: `Prints the contents of nodes: the value of an attribute or the report
of a context, e.g. "gpudbg get lm_limit ctx/1".`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("at least one node path is required")
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			w := stdout(cmd)
			multi := cmd.Args().Len() > 1
			for _, p := range cmd.Args().Slice() {
				out, err := c.Read(ctx, p)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", p, err)
				}
				if multi {
					fmt.Fprintf(w, "==> %s <==\n", p)
				}
				fmt.Fprint(w, out)
			}
			return nil
		},
	}
}

func setCmd() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Write an attribute node",
		ArgsUsage: "<path> <value>",
		Description: `Writes a value to an attribute node. Values are decimal or 0x prefixed
hex; boolean nodes also take y/n, on/off and true/false.

Some nodes apply the value through a GPU power cycle. The command returns
once the cycle has finished, and fails if it did.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("expected <path> <value>, got %d arguments", cmd.Args().Len())
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			p, v := cmd.Args().Get(0), cmd.Args().Get(1)
			if err := c.Write(ctx, p, v); err != nil {
				return fmt.Errorf("failed to write %s: %w", p, err)
			}
			return nil
		},
	}
}
