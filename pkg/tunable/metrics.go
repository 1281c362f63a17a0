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

package tunable

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpudbg_tunable_writes_total",
			Help: "Total number of tunable writes by outcome",
		},
		[]string{"name", "result"}, // stored, restarted, noop, disabled, ignored, failed, rejected
	)

	restartDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpudbg_tunable_restart_duration_seconds",
			Help:    "Time a restart-applied tunable write spent in the power cycle",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"name"},
	)
)
