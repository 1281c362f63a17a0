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

package main

import (
	"context"
	"log"
	"os"

	"github.com/NVIDIA/gpudbg/pkg/api"
	"github.com/NVIDIA/gpudbg/pkg/config"
	"github.com/NVIDIA/gpudbg/pkg/logging"
)

func main() {
	logging.SetDefaultStructuredLogger(api.Name(), api.Version())

	profile := config.Default()
	if path := os.Getenv("GPUDBG_PROFILE"); path != "" {
		p, err := config.Load(path)
		if err != nil {
			log.Fatal(err)
		}
		profile = p
	}

	if err := api.Serve(context.Background(), profile); err != nil {
		log.Fatal(err)
	}
}
