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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPowerCycle is the base error of injected power cycle faults.
var ErrPowerCycle = errors.New("power cycle failed")

// PowerCycler suspends the device, runs mutate exactly once with value while
// no work executes, and resumes the device. If it fails before calling mutate,
// the device state is unchanged.
type PowerCycler interface {
	ApplyWithRestart(ctx context.Context, value uint64, mutate func(uint64)) error
}

// Controller is the device power cycle mechanism.
type Controller struct {
	dev   *Device
	delay time.Duration

	mu     sync.Mutex
	faults []error

	cycles   atomic.Uint64
	failures atomic.Uint64
}

// NewController returns a power controller for dev. delay is how long the
// device stays down before it is brought back up.
func NewController(dev *Device, delay time.Duration) *Controller {
	return &Controller{dev: dev, delay: delay}
}

// InjectFault makes the next n power cycles fail with err before suspending.
func (c *Controller) InjectFault(err error, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < n; i++ {
		c.faults = append(c.faults, err)
	}
}

func (c *Controller) nextFault() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.faults) == 0 {
		return nil
	}
	err := c.faults[0]
	c.faults = c.faults[1:]
	return err
}

// Cycles returns the number of completed power cycles.
func (c *Controller) Cycles() uint64 {
	return c.cycles.Load()
}

// Failures returns the number of failed power cycles.
func (c *Controller) Failures() uint64 {
	return c.failures.Load()
}

// ApplyWithRestart implements PowerCycler.
func (c *Controller) ApplyWithRestart(ctx context.Context, value uint64, mutate func(uint64)) error {
	if err := c.nextFault(); err != nil {
		c.failures.Add(1)
		return fmt.Errorf("%w: %w", ErrPowerCycle, err)
	}

	start := time.Now()
	if err := c.dev.suspend(ctx); err != nil {
		c.failures.Add(1)
		return fmt.Errorf("suspend device %s: %w", c.dev.Name, err)
	}
	defer c.dev.resume()

	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			c.failures.Add(1)
			return fmt.Errorf("power cycle device %s: %w", c.dev.Name, ctx.Err())
		}
	}

	mutate(value)
	c.cycles.Add(1)

	slog.Debug("power cycle complete",
		"device", c.dev.Name,
		"value", value,
		"duration", time.Since(start).String(),
	)
	return nil
}
