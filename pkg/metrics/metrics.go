// Copyright 2024 Antrea Authors
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

package metrics

import (
	"sync"

	"k8s.io/component-base/metrics"
	"k8s.io/component-base/metrics/legacyregistry"
	"k8s.io/klog/v2"
)

const (
	// Namespace prefixes the names of all steering metrics.
	Namespace = "steering"

	OperationCreate  = "create"
	OperationDestroy = "destroy"

	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	MatcherCount = metrics.NewGaugeVec(
		&metrics.GaugeOpts{
			Name:           "steering_matcher_count",
			Help:           "Number of matchers linked into steering tables, partitioned by direction (rx and tx).",
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"direction"},
	)

	MatcherOpsCount = metrics.NewCounterVec(
		&metrics.CounterOpts{
			Name:           "steering_matcher_ops_total",
			Help:           "Number of matcher operations, partitioned by operation type (create and destroy).",
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"operation"},
	)

	MatcherOpsErrorCount = metrics.NewCounterVec(
		&metrics.CounterOpts{
			Name:           "steering_matcher_ops_error_total",
			Help:           "Number of matcher operation errors, partitioned by operation type (create and destroy).",
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"operation"},
	)

	MatcherOpsLatency = metrics.NewHistogramVec(
		&metrics.HistogramOpts{
			Name:           "steering_matcher_ops_latency_milliseconds",
			Help:           "The latency of matcher operations, partitioned by operation type (create and destroy).",
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"operation"},
	)

	AnchorUpdateCount = metrics.NewCounterVec(
		&metrics.CounterOpts{
			Name:           "steering_anchor_update_total",
			Help:           "Number of hash table anchor updates sent to the device, partitioned by direction and result.",
			StabilityLevel: metrics.ALPHA,
		},
		[]string{"direction", "result"},
	)

	DefinerMatcherCount = metrics.NewCounter(
		&metrics.CounterOpts{
			Name:           "steering_definer_matcher_total",
			Help:           "Number of matcher builder sets realized with definer objects instead of fixed builders.",
			StabilityLevel: metrics.ALPHA,
		},
	)
)

var registerOnce sync.Once

// InitializeSteeringMetrics registers the steering metrics with the legacy
// registry. Calling it more than once has no effect.
func InitializeSteeringMetrics() {
	registerOnce.Do(func() {
		klog.InfoS("Initializing steering metrics")
		for name, c := range map[string]metrics.Registerable{
			"steering_matcher_count":                    MatcherCount,
			"steering_matcher_ops_total":                MatcherOpsCount,
			"steering_matcher_ops_error_total":          MatcherOpsErrorCount,
			"steering_matcher_ops_latency_milliseconds": MatcherOpsLatency,
			"steering_anchor_update_total":              AnchorUpdateCount,
			"steering_definer_matcher_total":            DefinerMatcherCount,
		} {
			if err := legacyregistry.Register(c); err != nil {
				klog.ErrorS(err, "Failed to register metric", "name", name)
			}
		}

		// Initialize the operation series so that they are exported before the
		// first observation.
		for _, op := range []string{OperationCreate, OperationDestroy} {
			MatcherOpsCount.WithLabelValues(op)
			MatcherOpsErrorCount.WithLabelValues(op)
			MatcherOpsLatency.WithLabelValues(op)
		}
	})
}
