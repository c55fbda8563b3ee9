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
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/beater/api/intake"
	"github.com/tracewell/processor/internal/beater/api/root"
	"github.com/tracewell/processor/internal/beater/config"
	"github.com/tracewell/processor/internal/beater/middleware"
	"github.com/tracewell/processor/internal/beater/ratelimit"
	"github.com/tracewell/processor/internal/beater/request"
	"github.com/tracewell/processor/internal/logs"
	"github.com/tracewell/processor/internal/version"
)

const (
	// RootPath defines the server's root path
	RootPath = "/"

	// ErrorsPath defines the path to ingest error events
	ErrorsPath = "/api/errors"
	// RejectionsPath defines the path to ingest unhandled rejection events
	RejectionsPath = "/api/rejections"
)

// NewMux creates a new http.ServeMux, with routes registered for handling
// the intake API. Request metrics are registered with registry, which also
// backs the metrics endpoint if it is enabled.
func NewMux(
	cfg *config.Config,
	processor intake.EventProcessor,
	ratelimitStore *ratelimit.Store,
	registry *prometheus.Registry,
	ready func() bool,
	logger *logp.Logger,
) (*http.ServeMux, error) {
	pool := request.NewContextPool()
	logger = logger.Named(logs.Handler)
	router := http.NewServeMux()

	metrics, err := middleware.NewRequestMetrics(registry)
	if err != nil {
		return nil, err
	}
	builder := routeBuilder{
		cfg:            cfg,
		processor:      processor,
		ratelimitStore: ratelimitStore,
		metrics:        metrics,
		logger:         logger,
	}

	type route struct {
		path      string
		handlerFn func() (request.Handler, error)
	}

	routeMap := []route{
		{RootPath, func() (request.Handler, error) { return notFoundHandler, nil }},
		{RootPath + "{$}", builder.rootHandler(ready)},
		{ErrorsPath, builder.intakeHandler("errors")},
		{RejectionsPath, builder.intakeHandler("rejections")},
	}

	for _, route := range routeMap {
		h, err := route.handlerFn()
		if err != nil {
			return nil, err
		}
		logger.Infof("Path %s added to request handler", route.path)
		router.Handle(route.path, pool.HTTPHandler(h))
	}
	if cfg.Server.Metrics.Enabled {
		path := cfg.Server.Metrics.Path
		logger.Infof("Path %s added to request handler", path)
		router.Handle(path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}
	return router, nil
}

type routeBuilder struct {
	cfg            *config.Config
	processor      intake.EventProcessor
	ratelimitStore *ratelimit.Store
	metrics        *middleware.RequestMetrics
	logger         *logp.Logger
}

func (r *routeBuilder) intakeHandler(route string) func() (request.Handler, error) {
	return func() (request.Handler, error) {
		h := intake.Handler(r.processor, intake.HandlerConfig{
			MaxEventSize:   r.cfg.Server.MaxEventSize,
			RateLimitStore: r.ratelimitStore,
		})
		return middleware.Wrap(h, intakeMiddleware(r.cfg, route, r.metrics, r.logger)...)
	}
}

func (r *routeBuilder) rootHandler(ready func() bool) func() (request.Handler, error) {
	return func() (request.Handler, error) {
		h := root.Handler(root.HandlerConfig{
			Version: version.Version,
			Ready:   ready,
		})
		return middleware.Wrap(h, baseMiddleware("root", r.metrics, r.logger)...)
	}
}

func baseMiddleware(route string, metrics *middleware.RequestMetrics, logger *logp.Logger) []middleware.Middleware {
	return []middleware.Middleware{
		middleware.LogMiddleware(logger),
		middleware.RecoverPanicMiddleware(),
		middleware.MonitoringMiddleware(route, metrics),
	}
}

func intakeMiddleware(cfg *config.Config, route string, metrics *middleware.RequestMetrics, logger *logp.Logger) []middleware.Middleware {
	return append(baseMiddleware(route, metrics, logger),
		middleware.CORSMiddleware(cfg.Server.AllowOrigins, cfg.Server.AllowHeaders),
	)
}

func notFoundHandler(c *request.Context) {
	c.Result.SetDefault(request.IDResponseErrorsNotFound)
	c.WriteResult()
}
