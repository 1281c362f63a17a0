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


// Package server is the HTTP server behind gpudbgd.
//
// It owns the listener, the middleware chain and the system endpoints;
// application routes are supplied by the caller as ServeMux patterns:
//
//	s := server.New(
//		server.WithName("gpudbgd"),
//		server.WithVersion(version),
//		server.WithHandler(map[string]http.HandlerFunc{
//			"/v1/nodes/{path...}": h.HandleNode,
//		}),
//	)
//	err := s.Run(ctx)
//
// Application routes pass through, outermost first: Prometheus RED metrics,
// API version negotiation, request ids, panic recovery, token bucket rate
// limiting (golang.org/x/time/rate), a request body cap, and debug logging.
//
// System endpoints skip the chain:
//
//   - GET /health  - liveness
//   - GET /ready   - readiness, 503 until the listener is bound
//   - GET /metrics - Prometheus metrics
//
// A root handler listing the routes is installed unless the caller supplies
// one for "/".
//
// # Configuration
//
// NewConfig reads two environment variables:
//
//   - GPUDBG_PORT, or PORT: listen port (default 8080)
//   - GPUDBG_SHUTDOWN_TIMEOUT: graceful shutdown bound as a Go duration (default 30s)
//
// # Errors
//
// Handlers report failures with WriteError or WriteErrorFromErr. The latter
// maps a StructuredError code to its HTTP status and copies the error
// context into the response details.
package server
