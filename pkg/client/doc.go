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


// Package client is the HTTP client of a gpudbg daemon, used by the CLI.
//
// Every request carries a fresh X-Request-Id. Error replies are decoded
// back into errors.StructuredError with the server's code, so callers can
// use errors.IsCode as they would in process:
//
//	c, err := client.New("localhost:8080")
//	if err != nil {
//	    return err
//	}
//	if err := c.Write(ctx, "lm_limit", "5000"); errors.IsCode(err, errors.ErrCodeUnavailable) {
//	    // power cycle failed, value unchanged
//	}
package client
