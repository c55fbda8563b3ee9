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
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracewell/processor/internal/beater/request"
)

func TestMonitoringMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewRequestMetrics(reg)
	require.NoError(t, err)

	for _, h := range []request.Handler{handler200, handler200, handler403} {
		c, _ := newContext(http.MethodPost)
		wrapped, err := MonitoringMiddleware("errors", m)(h)
		require.NoError(t, err)
		wrapped(c)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("errors")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.responses.WithLabelValues("errors", string(request.IDResponseValidOK), "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.responses.WithLabelValues("errors", string(request.IDResponseErrorsForbidden), "errors")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestNewRequestMetricsReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m1, err := NewRequestMetrics(reg)
	require.NoError(t, err)
	m2, err := NewRequestMetrics(reg)
	require.NoError(t, err)

	m1.requests.WithLabelValues("root").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m2.requests.WithLabelValues("root")))
}
