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
package beater

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	agentconfig "github.com/elastic/elastic-agent-libs/config"
	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/beater/api"
	"github.com/tracewell/processor/internal/beater/config"
	"github.com/tracewell/processor/internal/beater/ratelimit"
	"github.com/tracewell/processor/internal/elasticsearch"
	"github.com/tracewell/processor/internal/ingest"
	"github.com/tracewell/processor/internal/logs"
	"github.com/tracewell/processor/internal/notify"
	"github.com/tracewell/processor/internal/resolver"
	"github.com/tracewell/processor/internal/sourcemap"
	"github.com/tracewell/processor/internal/storage/postgres"
	"github.com/tracewell/processor/internal/version"
)

// burstMultiplier is the burst allowance of the per-project rate limiter,
// as a multiple of the event limit.
const burstMultiplier = 3

// Runner initialises and runs the HTTP intake, the queue consumer, and the
// event processing pipeline.
type Runner struct {
	logger *logp.Logger
	config *config.Config

	listener net.Listener
}

// RunnerParams holds parameters for NewRunner.
type RunnerParams struct {
	// Config holds the full, raw, configuration.
	Config *agentconfig.C

	// Logger holds a logger to use for logging throughout the processor.
	Logger *logp.Logger
}

// NewRunner returns a new Runner that runs the processor with the given parameters.
func NewRunner(args RunnerParams) (*Runner, error) {
	logger := args.Logger.Named(logs.Beater)
	cfg, err := config.NewConfig(args.Config, logger.Named(logs.Config))
	if err != nil {
		return nil, err
	}

	// We start the listener in the constructor, before Run is invoked,
	// to ensure zero downtime while any existing Runner is stopped.
	var listener net.Listener
	if cfg.Server.Enabled {
		listener, err = listen(cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	return &Runner{
		logger:   logger,
		config:   cfg,
		listener: listener,
	}, nil
}

// Run runs the processor, blocking until ctx is cancelled or a fatal error
// occurs.
func (s *Runner) Run(ctx context.Context) error {
	if s.listener != nil {
		defer s.listener.Close()
	}
	s.logger.Infof("Starting processor %s [%s]. Hit CTRL-C to stop it.", version.Version, version.CommitHash())
	defer s.logger.Infof("Processor stopped")

	pool, err := postgres.Connect(ctx, s.config.Database.DSN, s.config.Database.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	fetcher, closeFetcher, err := newSourcemapFetcher(ctx, s.config.SourceMapping, s.logger)
	if err != nil {
		return err
	}
	defer closeFetcher()

	notifier := notify.New(notify.Config{
		Endpoint: s.config.Webhook.Endpoint,
		Timeout:  s.config.Webhook.Timeout,
	})
	// in-flight notifications are sent before shutting down
	defer notifier.Wait()

	var projectCacheExpiration time.Duration
	if s.config.Ingest.ProjectCache.Enabled {
		projectCacheExpiration = s.config.Ingest.ProjectCache.Expiration
	}
	processor := ingest.NewProcessor(ingest.Config{
		Concurrency:            s.config.Ingest.Concurrency,
		ProjectCacheExpiration: projectCacheExpiration,
	}, postgres.New(pool), &resolver.Resolver{
		Fetcher:      fetcher,
		Markers:      s.config.SourceMapping.Markers,
		FetchTimeout: s.config.SourceMapping.FetchTimeout,
	}, notifier)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	g, ctx := errgroup.WithContext(ctx)
	if s.config.Server.Enabled {
		var ratelimitStore *ratelimit.Store
		if s.config.RateLimit.Enabled {
			ratelimitStore, err = ratelimit.NewStore(s.config.RateLimit.LRUSize, s.config.RateLimit.EventLimit, burstMultiplier)
			if err != nil {
				return err
			}
		}
		ready := func() bool {
			pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return pool.Ping(pingCtx) == nil
		}
		mux, err := api.NewMux(s.config, processor, ratelimitStore, registry, ready, s.logger)
		if err != nil {
			return err
		}
		srv := newHTTPServer(s.logger, s.config, mux, s.listener)
		g.Go(func() error {
			if err := srv.start(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			stopctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
			defer cancel()
			srv.stop(stopctx)
			return nil
		})
	}
	if s.config.Queue.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     s.config.Queue.Address,
			Password: s.config.Queue.Password,
			DB:       s.config.Queue.DB,
		})
		defer client.Close()
		consumer, err := newQueueConsumer(s.config.Queue, client, processor, registry)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return consumer.run(ctx)
		})
	}
	return g.Wait()
}

// newSourcemapFetcher returns a Fetcher querying the configured backends in
// the order directory, elasticsearch, s3, gcs, and a function releasing
// the backends' resources. The returned Fetcher is nil if source mapping is
// disabled or no backend is configured.
func newSourcemapFetcher(ctx context.Context, cfg config.SourceMapping, logger *logp.Logger) (sourcemap.Fetcher, func(), error) {
	var fetchers sourcemap.ChainedFetcher
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.With(logp.Error(err)).Warn("failed to close sourcemap backend")
			}
		}
	}
	if !cfg.Enabled {
		return nil, closeAll, nil
	}

	backends := cfg.Backends
	if b := backends.Directory; b != nil {
		fetchers = append(fetchers, sourcemap.NewDirectoryFetcher(b.Path))
	}
	if b := backends.Elasticsearch; b != nil {
		esClient, err := elasticsearch.NewClient(&b.Config)
		if err != nil {
			return nil, nil, err
		}
		fetchers = append(fetchers, sourcemap.NewElasticsearchFetcher(esClient, b.Index))
	}
	if b := backends.S3; b != nil {
		s3Fetcher, err := sourcemap.NewS3Fetcher(ctx, sourcemap.S3Config{
			Bucket:   b.Bucket,
			Region:   b.Region,
			Endpoint: b.Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		fetchers = append(fetchers, s3Fetcher)
	}
	if b := backends.GCS; b != nil {
		gcsFetcher, err := sourcemap.NewGCSFetcher(ctx, b.Bucket, b.CredentialsFile)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		fetchers = append(fetchers, gcsFetcher)
		closers = append(closers, gcsFetcher.Close)
	}

	switch len(fetchers) {
	case 0:
		return nil, closeAll, nil
	case 1:
		return fetchers[0], closeAll, nil
	}
	return fetchers, closeAll, nil
}
