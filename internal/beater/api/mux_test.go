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
package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/beater/config"
	"github.com/tracewell/processor/internal/beater/ratelimit"
	"github.com/tracewell/processor/internal/model"
)

type processorFunc func(context.Context, *model.Event) error

func (f processorFunc) ProcessEvent(ctx context.Context, event *model.Event) error {
	return f(ctx, event)
}

func newTestMux(t *testing.T, cfg *config.Config, store *ratelimit.Store) (*http.ServeMux, *[]*model.Event) {
	t.Helper()
	var events []*model.Event
	mux, err := NewMux(cfg, processorFunc(func(_ context.Context, event *model.Event) error {
		events = append(events, event)
		return nil
	}), store, prometheus.NewRegistry(), func() bool { return true }, logp.NewLogger(""))
	require.NoError(t, err)
	return mux, &events
}

func serve(mux http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

const record = `{"data":{"error":{"name":"Error","message":"boom"},"handled":true,"timestamp":"2024-01-02T03:04:05Z","project_id":"p-1"}}`

func TestMuxIntake(t *testing.T) {
	mux, events := newTestMux(t, config.DefaultConfig(), nil)

	for _, path := range []string{ErrorsPath, RejectionsPath} {
		w := serve(mux, httptest.NewRequest(http.MethodPost, path, strings.NewReader(record)))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	assert.Len(t, *events, 2)
}

func TestMuxRoot(t *testing.T) {
	mux, _ := newTestMux(t, config.DefaultConfig(), nil)

	w := serve(mux, httptest.NewRequest(http.MethodGet, RootPath, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready"`)

	w = serve(mux, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMuxCORS(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.AllowOrigins = []string{"https://*.example.com"}
	mux, events := newTestMux(t, cfg, nil)

	r := httptest.NewRequest(http.MethodOptions, ErrorsPath, nil)
	r.Header.Set("Origin", "https://app.example.com")
	w := serve(mux, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodPost, ErrorsPath, strings.NewReader(record))
	r.Header.Set("Origin", "https://evil.com")
	w = serve(mux, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, *events)
}

func TestMuxRateLimit(t *testing.T) {
	store, err := ratelimit.NewStore(10, 1, 1)
	require.NoError(t, err)
	mux, _ := newTestMux(t, config.DefaultConfig(), store)

	w := serve(mux, httptest.NewRequest(http.MethodPost, ErrorsPath, strings.NewReader(record)))
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(mux, httptest.NewRequest(http.MethodPost, ErrorsPath, strings.NewReader(record)))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestMuxMetrics(t *testing.T) {
	mux, _ := newTestMux(t, config.DefaultConfig(), nil)
	serve(mux, httptest.NewRequest(http.MethodPost, ErrorsPath, strings.NewReader(record)))
	serve(mux, httptest.NewRequest(http.MethodPost, ErrorsPath, strings.NewReader(`{}`)))

	w := serve(mux, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tracewell_http_requests_total{route="errors"} 2`)
	assert.Contains(t, string(body), `tracewell_http_responses_total{outcome="errors",result="response.errors.decode",route="errors"} 1`)
	assert.Contains(t, string(body), `tracewell_http_responses_total{outcome="valid",result="response.valid.ok",route="errors"} 1`)
}

func TestMuxMetricsDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Metrics.Enabled = false
	mux, _ := newTestMux(t, cfg, nil)

	w := serve(mux, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
