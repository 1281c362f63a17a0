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


package server

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/gpudbg/pkg/defaults"
)

// DefaultPort is the port gpudbgd listens on.
const DefaultPort = 8080

const (
	defaultRateLimit      = 100
	defaultRateLimitBurst = 200

	// node writes carry one value
	defaultMaxBodyBytes = 4 << 10
)

// Config is the listener configuration of a gpudbgd server.
type Config struct {
	// Name and Version are reported by the root handler.
	Name    string
	Version string

	// Handlers are the node routes keyed by ServeMux pattern,
	// e.g. "/v1/nodes/{path...}".
	Handlers map[string]http.HandlerFunc

	Address string
	Port    int

	// RateLimit is shared by all clients. A single tunable write may
	// power cycle the device.
	RateLimit      rate.Limit
	RateLimitBurst int

	MaxBodyBytes int64

	// WriteTimeout must outlast a power cycling node write.
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// NewConfig returns the default configuration, with the port taken from
// GPUDBG_PORT or PORT and the shutdown bound from GPUDBG_SHUTDOWN_TIMEOUT.
func NewConfig() *Config {
	cfg := &Config{
		Name:            "gpudbgd",
		Version:         "undefined",
		Port:            DefaultPort,
		RateLimit:       defaultRateLimit,
		RateLimitBurst:  defaultRateLimitBurst,
		MaxBodyBytes:    defaultMaxBodyBytes,
		WriteTimeout:    defaults.ServerWriteTimeout,
		ShutdownTimeout: defaults.ServerShutdownTimeout,
	}

	for _, key := range []string{"GPUDBG_PORT", "PORT"} {
		if port, err := strconv.Atoi(os.Getenv(key)); err == nil && port >= 0 {
			cfg.Port = port
			break
		}
	}

	if d, err := time.ParseDuration(os.Getenv("GPUDBG_SHUTDOWN_TIMEOUT")); err == nil && d > 0 {
		cfg.ShutdownTimeout = d
	}

	return cfg
}
