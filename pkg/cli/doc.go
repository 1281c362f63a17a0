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


// Package cli implements the gpudbg command line.
//
// # Commands
//
// serve - Run a simulated device and serve its nodes:
//
//	gpudbg serve --profile profile.yaml --port 8080
//
// ls - List nodes with kind, mode and help:
//
//	gpudbg ls [prefix] [--format table|json|yaml|cbor] [--output file]
//
// tree - Show the node tree:
//
//	gpudbg tree
//
// get (cat) - Print nodes:
//
//	gpudbg get lm_limit ctx/1
//
// set - Write an attribute node:
//
//	gpudbg set preemption/preempt_level 2
//
// dump - Capture every tunable, optionally with context reports:
//
//	gpudbg dump --reports --format json --output dump.json
//
// # Global Flags
//
//	--server, -s   Daemon address (default: localhost:8080)
//	--log-level    Log level: debug, info, warn, error (default: warn)
//	--help, -h     Show command help
//	--version, -v  Show version information
//
// # Environment Variables
//
//	GPUDBG_SERVER     Daemon address
//	GPUDBG_LOG_LEVEL  Log level
//	GPUDBG_PROFILE    Profile used by serve
//	GPUDBG_PORT       Port used by serve
//
// # Exit Codes
//
//	0  Success
//	1  General error (invalid arguments, execution failure)
//	2  Interrupted
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/NVIDIA/gpudbg/pkg/cli.version=1.0.0'"
package cli
