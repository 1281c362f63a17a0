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
	"testing"
	"time"

	"github.com/NVIDIA/gpudbg/pkg/defaults"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()

		if cfg.Name != "gpudbgd" || cfg.Address != "" || cfg.Port != DefaultPort {
			t.Errorf("unexpected listener %s %q:%d", cfg.Name, cfg.Address, cfg.Port)
		}
		if cfg.RateLimit != 100 || cfg.RateLimitBurst != 200 {
			t.Errorf("unexpected rate limit %v/%d", cfg.RateLimit, cfg.RateLimitBurst)
		}
		if cfg.MaxBodyBytes != 4096 {
			t.Errorf("expected max body 4096, got %d", cfg.MaxBodyBytes)
		}
		if cfg.WriteTimeout <= defaults.NodeWriteTimeout {
			t.Errorf("write timeout %v must outlast a node write (%v)", cfg.WriteTimeout, defaults.NodeWriteTimeout)
		}
		if cfg.ShutdownTimeout != defaults.ServerShutdownTimeout {
			t.Errorf("unexpected shutdown timeout %v", cfg.ShutdownTimeout)
		}
	})

	tests := []struct {
		name     string
		env      map[string]string
		port     int
		shutdown time.Duration
	}{
		{"daemon port", map[string]string{"GPUDBG_PORT": "9090"}, 9090, 30 * time.Second},
		{"generic port", map[string]string{"PORT": "9091"}, 9091, 30 * time.Second},
		{"daemon port wins", map[string]string{"GPUDBG_PORT": "9090", "PORT": "9091"}, 9090, 30 * time.Second},
		{"invalid port ignored", map[string]string{"GPUDBG_PORT": "invalid"}, DefaultPort, 30 * time.Second},
		{"shutdown timeout", map[string]string{"GPUDBG_SHUTDOWN_TIMEOUT": "5s"}, DefaultPort, 5 * time.Second},
		{"bare seconds ignored", map[string]string{"GPUDBG_SHUTDOWN_TIMEOUT": "5"}, DefaultPort, 30 * time.Second},
		{"non-positive shutdown ignored", map[string]string{"GPUDBG_SHUTDOWN_TIMEOUT": "0s"}, DefaultPort, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GPUDBG_PORT", "")
			t.Setenv("PORT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := NewConfig()
			if cfg.Port != tt.port {
				t.Errorf("expected port %d, got %d", tt.port, cfg.Port)
			}
			if cfg.ShutdownTimeout != tt.shutdown {
				t.Errorf("expected shutdown %v, got %v", tt.shutdown, cfg.ShutdownTimeout)
			}
		})
	}
}
