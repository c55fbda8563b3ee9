// Licensed to Elasticsearch B.V. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Elasticsearch B.V. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.
package middleware

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tracewell/processor/internal/beater/request"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// RequestMetrics holds the Prometheus collectors updated by MonitoringMiddleware.
type RequestMetrics struct {
	requests  *prometheus.CounterVec
	responses *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewRequestMetrics creates request metrics and registers them with reg.
// Collectors already registered with reg are reused.
func NewRequestMetrics(reg prometheus.Registerer) (*RequestMetrics, error) {
	m := &RequestMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracewell",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of received HTTP requests",
		}, []string{"route"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracewell",
			Subsystem: "http",
			Name:      "responses_total",
			Help:      "Count of HTTP responses by result",
		}, []string{"route", "result", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tracewell",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"route"}),
	}
	if err := register(reg, &m.requests); err != nil {
		return nil, err
	}
	if err := register(reg, &m.responses); err != nil {
		return nil, err
	}
	if err := register(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			*c = existing
			return nil
		}
	}
	return err
}

// MonitoringMiddleware returns a middleware that increases monitoring counters for collecting metrics
// about request processing. The route label identifies the handler in the collected metrics.
func MonitoringMiddleware(route string, m *RequestMetrics) Middleware {
	return func(h request.Handler) (request.Handler, error) {
		return func(c *request.Context) {
			start := time.Now()
			m.requests.WithLabelValues(route).Inc()

			h(c)

			outcome := "valid"
			if c.Result.Failure() {
				outcome = "errors"
			}
			m.responses.WithLabelValues(route, string(c.Result.ID), outcome).Inc()
			m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}, nil
	}
}
