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

// Package tunable implements named device scalars with validated writes.
//
// A write goes through these steps, in order:
//
//  1. read-only tunables reject the write (METHOD_NOT_ALLOWED)
//  2. a disabled feature accepts the write without effect
//  3. the value is normalized: clamped, masked, floored or reduced to 0/1
//  4. a sticky tunable that is already set ignores the write
//  5. a value equal to the current one is a no-op
//  6. a tunable that needs a restart hands the value and its store function
//     to the power cycler; otherwise the value is stored directly
//
// A failed power cycle leaves the value unchanged and surfaces as a
// SERVICE_UNAVAILABLE error. Nothing is retried.
//
// Reads of a tunable whose feature is disabled return 0.
//
// The constructors in device.go bind each device tunable to its storage in
// gpu.Device. Registry collects them by name and doubles as a Prometheus
// collector exporting the current values.
package tunable
