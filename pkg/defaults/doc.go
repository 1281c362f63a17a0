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

// Package defaults provides centralized timeout constants for gpudbg.
//
// # Timeout Categories
//
//   - Device timeouts: power cycles and the synthetic workload
//   - Handler timeouts: node reads and writes over HTTP
//   - Server timeouts: HTTP server configuration
//   - HTTP client timeouts: the CLI talking to the daemon
//
// # Usage
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.NodeWriteTimeout)
//	defer cancel()
//
// # Timeout Guidelines
//
// A restart-applied write blocks for a whole power cycle, so the chain
// PowerCycleTimeout < NodeWriteTimeout < ServerWriteTimeout must hold, and
// the client must wait longer than NodeWriteTimeout for response headers.
package defaults
