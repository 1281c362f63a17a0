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

package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpudbg_context_reports_total",
			Help: "Total number of context report requests",
		},
		[]string{"status"}, // success, error or gone
	)

	reportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gpudbg_context_report_duration_seconds",
			Help:    "Time taken to render a context report",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)

	reportsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gpudbg_context_reports_open",
			Help: "Number of context reports currently holding a context reference",
		},
	)

	drawObjsVanished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gpudbg_drawobjs_vanished_total",
			Help: "Draw objects retired between queue walk and render",
		},
	)
)
