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


// Package api assembles the gpudbg daemon.
//
// Build turns a config.Profile into a simulated device, its power
// controller, its debugfs node tree and an HTTP server exposing the tree
// through pkg/server. Run serves until the context is done, stepping the
// synthetic workload alongside when the profile enables it.
//
// # Usage
//
//	profile, err := config.Load("profile.yaml")
//	if err != nil {
//	    return err
//	}
//	return api.Serve(ctx, profile)
//
// # Endpoints
//
// Application endpoints (with rate limiting):
//   - GET /v1/nodes               - List nodes (?format=json|yaml|table|cbor)
//   - GET /v1/nodes/{path}        - Read a node as text
//   - PUT /v1/nodes/{path}        - Write an attribute node, value in the body
//   - GET /v1/tunables            - Current value of every tunable
//
// System endpoints (no rate limiting):
//   - GET /health  - Health check (liveness probe)
//   - GET /ready   - Readiness check
//   - GET /metrics - Prometheus metrics, including gpudbg_tunable_value
//
// Example:
//
//	curl -s localhost:8080/v1/nodes/ctx/1
//	curl -s -X PUT --data 5000 localhost:8080/v1/nodes/lm_limit
//
// # Systemd
//
// When NOTIFY_SOCKET is set the daemon reports READY=1 once the listener is
// bound and STOPPING=1 when shutdown begins.
package api
