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

package debugfs

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/NVIDIA/gpudbg/pkg/errors"
	"github.com/NVIDIA/gpudbg/pkg/gpu"
	"github.com/NVIDIA/gpudbg/pkg/refcount"
	"github.com/NVIDIA/gpudbg/pkg/snapshot"
	"github.com/NVIDIA/gpudbg/pkg/tunable"
)

// ContextDir is the directory holding one report node per live context.
const ContextDir = "ctx"

// Kind is the type of a node.
type Kind string

const (
	KindAttribute Kind = "attribute"
	KindReport    Kind = "report"
)

// Mode is the access mode of a node.
type Mode string

const (
	ModeRO Mode = "ro"
	ModeRW Mode = "rw"
)

// Entry describes one node in a listing.
type Entry struct {
	Path string `json:"path" yaml:"path"`
	Kind Kind   `json:"kind" yaml:"kind"`
	Mode Mode   `json:"mode" yaml:"mode"`
	Help string `json:"help,omitempty" yaml:"help,omitempty"`
}

type node struct {
	kind Kind
	tun  *tunable.Tunable

	// report nodes pin their context for as long as the node exists
	ctxID  uint32
	handle refcount.Handle
}

func (n *node) mode() Mode {
	if n.kind == KindAttribute && !n.tun.ReadOnly() {
		return ModeRW
	}
	return ModeRO
}

// FS is the node tree of one device.
type FS struct {
	dev *gpu.Device
	reg *tunable.Registry

	mu     sync.RWMutex
	nodes  map[string]*node
	closed bool
}

// Init builds the node tree for dev. Which tunables appear depends on the
// device features. Context report nodes are added and removed as contexts
// are created and detached.
func Init(dev *gpu.Device, pc gpu.PowerCycler) *FS {
	fs := &FS{
		dev:   dev,
		reg:   tunable.NewRegistry(),
		nodes: make(map[string]*node),
	}

	fs.add(tunable.ActiveCount(dev))
	fs.add(tunable.CoopReset(dev))

	if dev.HasFeature(gpu.FeatureLM) {
		fs.add(tunable.LMLimit(dev, pc))
		fs.add(tunable.LMThresholdCount(dev))
	}
	if dev.HasFeature(gpu.FeatureISDB) {
		fs.add(tunable.ISDB(dev, pc))
	}
	if dev.HasFeature(gpu.FeatureGMU) {
		fs.add(tunable.IFPCHyst(dev, pc))
	}
	if dev.HasFeature(gpu.FeatureGMUWarmboot) {
		fs.add(tunable.Warmboot(dev, pc))
	}

	fs.add(tunable.CtxtRecordSize(dev))
	fs.add(tunable.GPUClientPF(dev, pc))
	fs.add(tunable.DumpAllIBs(dev))

	for sid := 0; sid < gpu.BCLSIDCount; sid++ {
		fs.add(tunable.BCLSID(dev, sid))
	}
	fs.add(tunable.BCLThrottleTimeUS(dev))

	fs.add(tunable.PreemptLevel(dev, pc))
	fs.add(tunable.PreemptUsesGMEM(dev, pc))
	fs.add(tunable.PreemptSkipSaveRestore(dev, pc))

	dev.Subscribe(fs)

	slog.Info("debugfs initialized",
		"device", dev.Name,
		"tunables", len(fs.reg.Names()),
		"features", dev.Features(),
	)
	return fs
}

func (fs *FS) add(t *tunable.Tunable) {
	fs.reg.MustRegister(t)
	fs.nodes[t.Name()] = &node{kind: KindAttribute, tun: t}
}

// Registry returns the tunables exposed by the tree.
func (fs *FS) Registry() *tunable.Registry {
	return fs.reg
}

// Device returns the device the tree belongs to.
func (fs *FS) Device() *gpu.Device {
	return fs.dev
}

// ContextPath returns the report node path of context id.
func ContextPath(id uint32) string {
	return path.Join(ContextDir, strconv.FormatUint(uint64(id), 10))
}

// ContextCreated implements gpu.ContextObserver. The node takes its own
// reference on the context.
func (fs *FS) ContextCreated(c *gpu.Context) {
	if _, ok := fs.dev.Contexts.TryAcquire(c.Handle()); !ok {
		return
	}

	p := ContextPath(c.ID)
	fs.mu.Lock()
	if fs.closed || fs.nodes[p] != nil {
		fs.mu.Unlock()
		fs.dev.Contexts.Release(c.Handle())
		return
	}
	fs.nodes[p] = &node{kind: KindReport, ctxID: c.ID, handle: c.Handle()}
	fs.mu.Unlock()

	// a detach that ran before the insert never saw the node
	if c.Detached() {
		fs.ContextDetached(c)
		return
	}
	slog.Debug("context node added", "path", p)
}

// ContextDetached implements gpu.ContextObserver. Reports that are still
// open keep the context alive until they are closed.
func (fs *FS) ContextDetached(c *gpu.Context) {
	p := ContextPath(c.ID)
	fs.mu.Lock()
	n, ok := fs.nodes[p]
	if ok && n.handle == c.Handle() {
		delete(fs.nodes, p)
	}
	fs.mu.Unlock()

	if ok && n.handle == c.Handle() {
		fs.dev.Contexts.Release(n.handle)
		slog.Debug("context node removed", "path", p)
	}
}

// Close removes every context node and drops their references.
func (fs *FS) Close() {
	fs.mu.Lock()
	var handles []refcount.Handle
	for p, n := range fs.nodes {
		if n.kind == KindReport {
			handles = append(handles, n.handle)
			delete(fs.nodes, p)
		}
	}
	fs.closed = true
	fs.mu.Unlock()

	for _, h := range handles {
		fs.dev.Contexts.Release(h)
	}
}

// List returns every node sorted by path.
func (fs *FS) List() []Entry {
	fs.mu.RLock()
	out := make([]Entry, 0, len(fs.nodes))
	for p, n := range fs.nodes {
		e := Entry{Path: p, Kind: n.kind, Mode: n.mode()}
		if n.tun != nil {
			e.Help = n.tun.Help()
		}
		out = append(out, e)
	}
	fs.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func cleanPath(p string) string {
	return strings.Trim(path.Clean("/"+p), "/")
}

func (fs *FS) lookup(p string) (string, *node, error) {
	p = cleanPath(p)
	fs.mu.RLock()
	n, ok := fs.nodes[p]
	fs.mu.RUnlock()
	if !ok {
		return p, nil, errors.NewWithContext(errors.ErrCodeNotFound, "no such node",
			map[string]any{"path": p})
	}
	return p, n, nil
}

// Stat returns the listing entry of one node.
func (fs *FS) Stat(p string) (Entry, error) {
	p, n, err := fs.lookup(p)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Path: p, Kind: n.kind, Mode: n.mode()}
	if n.tun != nil {
		e.Help = n.tun.Help()
	}
	return e, nil
}

// OpenReport opens the report of a context node. The caller must Close it.
func (fs *FS) OpenReport(p string) (*snapshot.Report, error) {
	p, n, err := fs.lookup(p)
	if err != nil {
		return nil, err
	}
	if n.kind != KindReport {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "not a report node",
			map[string]any{"path": p})
	}
	return snapshot.Open(fs.dev, n.handle)
}

// ReadAttr reads an attribute node.
func (fs *FS) ReadAttr(p string) (uint64, error) {
	p, n, err := fs.lookup(p)
	if err != nil {
		return 0, err
	}
	if n.kind != KindAttribute {
		return 0, errors.NewWithContext(errors.ErrCodeInvalidRequest, "not an attribute node",
			map[string]any{"path": p})
	}
	return n.tun.Read(), nil
}

// Read returns the contents of a node: a decimal value and newline for an
// attribute, the rendered report for a context node.
func (fs *FS) Read(p string) (string, error) {
	p, n, err := fs.lookup(p)
	if err != nil {
		return "", err
	}
	switch n.kind {
	case KindAttribute:
		return strconv.FormatUint(n.tun.Read(), 10) + "\n", nil
	case KindReport:
		r, err := snapshot.Open(fs.dev, n.handle)
		if err != nil {
			return "", err
		}
		defer r.Close()
		return r.String(), nil
	default:
		return "", errors.New(errors.ErrCodeInternal, fmt.Sprintf("unknown node kind %q", n.kind))
	}
}

// Write parses data and writes it to an attribute node. Values are decimal,
// or 0x prefixed hex; bool attributes also accept y/n, on/off and true/false.
func (fs *FS) Write(ctx context.Context, p, data string) error {
	p, n, err := fs.lookup(p)
	if err != nil {
		return err
	}
	if n.kind != KindAttribute || n.tun.ReadOnly() {
		return errors.NewWithContext(errors.ErrCodeMethodNotAllowed, "node is read-only",
			map[string]any{"path": p})
	}

	v, err := ParseValue(data, n.tun.Kind() == tunable.KindBool)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeInvalidRequest, "invalid value", err,
			map[string]any{"path": p, "value": data})
	}

	if err := n.tun.Write(ctx, v); err != nil {
		return err
	}
	slog.Info("node written", "path", p, "value", v)
	return nil
}

// ParseValue parses a node value. With boolean set, the usual boolean
// spellings are accepted in addition to numbers.
func ParseValue(s string, boolean bool) (uint64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		return v, nil
	} else if !boolean {
		return 0, err
	}

	switch strings.ToLower(s) {
	case "y", "yes", "on", "true":
		return 1, nil
	case "n", "no", "off", "false":
		return 0, nil
	}
	return 0, fmt.Errorf("invalid boolean %q", s)
}
