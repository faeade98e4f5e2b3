/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// Apply operation metrics
	applyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ghostctl_apply_total",
		Help: "Total number of resource apply operations",
	}, []string{"result", "mode", "kind"})

	applyDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ghostctl_apply_duration_seconds",
		Help:    "Duration of resource apply operations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~65s
	}, []string{"mode", "kind"})

	nodesRealized = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ghostctl_nodes_realized",
		Help: "Number of graph nodes realized in the current run",
	}, []string{"kind"})
)

func init() {
	metrics.Registry.MustRegister(
		applyTotal,
		applyDuration,
		nodesRealized,
	)
}

// RecordApply records an apply operation
// result: "success" or "failure"
// mode: "Apply", "Create", or "Adopt"
// kind: the resource kind or GVK being applied
func RecordApply(result, mode, kind string, durationSeconds float64) {
	applyTotal.WithLabelValues(result, mode, kind).Inc()
	applyDuration.WithLabelValues(mode, kind).Observe(durationSeconds)
}

// RecordNodeRealized increments the realized-node gauge for a kind
func RecordNodeRealized(kind string) {
	nodesRealized.WithLabelValues(kind).Inc()
}
