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

// Package config holds the processor configuration.
package config

import (
	"net"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/elastic/elastic-agent-libs/config"
	"github.com/elastic/elastic-agent-libs/logp"
)

const (
	// DefaultPort of the processor's HTTP intake.
	DefaultPort = "8080"

	defaultMaxEventSize    = 300 * 1024
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 45 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

// Config holds configuration information for the processor.
type Config struct {
	Server        ServerConfig    `config:"server"`
	Queue         QueueConfig     `config:"queue"`
	Database      DatabaseConfig  `config:"database"`
	SourceMapping SourceMapping   `config:"source_mapping"`
	Webhook       WebhookConfig   `config:"webhook"`
	Ingest        IngestConfig    `config:"ingest"`
	RateLimit     RateLimitConfig `config:"rate_limit"`
}

// ServerConfig holds the HTTP intake settings.
type ServerConfig struct {
	Enabled         bool          `config:"enabled"`
	Host            string        `config:"host"`
	MaxConnections  int           `config:"max_connections"`
	MaxHeaderSize   int           `config:"max_header_size"`
	MaxEventSize    int           `config:"max_event_size"`
	ReadTimeout     time.Duration `config:"read_timeout"`
	WriteTimeout    time.Duration `config:"write_timeout"`
	IdleTimeout     time.Duration `config:"idle_timeout"`
	ShutdownTimeout time.Duration `config:"shutdown_timeout"`
	AllowOrigins    []string      `config:"allow_origins"`
	AllowHeaders    []string      `config:"allow_headers"`
	Metrics         MetricsConfig `config:"metrics"`
}

// MetricsConfig holds the settings of the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `config:"enabled"`
	Path    string `config:"path"`
}

// QueueConfig holds the settings for consuming intake records from a
// Redis list.
type QueueConfig struct {
	Enabled     bool          `config:"enabled"`
	Address     string        `config:"address"`
	Password    string        `config:"password"`
	DB          int           `config:"db"`
	Key         string        `config:"key"`
	BatchSize   int           `config:"batch_size"`
	PollTimeout time.Duration `config:"poll_timeout"`
}

// DatabaseConfig holds the PostgreSQL settings.
type DatabaseConfig struct {
	DSN      string `config:"dsn"`
	MaxConns int32  `config:"max_conns"`
}

// WebhookConfig holds the notification webhook settings.
type WebhookConfig struct {
	Endpoint string        `config:"endpoint"`
	Timeout  time.Duration `config:"timeout"`
}

// IngestConfig holds the event processing settings.
type IngestConfig struct {
	Concurrency  int                `config:"concurrency"`
	ProjectCache ProjectCacheConfig `config:"project_cache"`
}

// ProjectCacheConfig holds the project lookup cache settings.
type ProjectCacheConfig struct {
	Enabled    bool          `config:"enabled"`
	Expiration time.Duration `config:"expiration"`
}

// RateLimitConfig holds the per-project intake rate limit settings.
type RateLimitConfig struct {
	Enabled bool `config:"enabled"`
	// EventLimit is the number of events allowed per project and second.
	EventLimit int `config:"event_limit"`
	// LRUSize is the number of projects tracked.
	LRUSize int `config:"lru_size"`
}

// Validate validates the configuration, reporting all invalid settings.
func (c *Config) Validate() error {
	var result *multierror.Error
	if !c.Server.Enabled && !c.Queue.Enabled {
		result = multierror.Append(result, errors.New("at least one of server and queue must be enabled"))
	}
	if c.Server.Enabled {
		if c.Server.Host == "" {
			result = multierror.Append(result, errors.New("server.host must be set"))
		}
		if c.Server.MaxEventSize <= 0 {
			result = multierror.Append(result, errors.New("server.max_event_size must be positive"))
		}
	}
	if c.Queue.Enabled {
		if c.Queue.Address == "" {
			result = multierror.Append(result, errors.New("queue.address must be set"))
		}
		if c.Queue.Key == "" {
			result = multierror.Append(result, errors.New("queue.key must be set"))
		}
		if c.Queue.BatchSize <= 0 {
			result = multierror.Append(result, errors.New("queue.batch_size must be positive"))
		}
		if c.Queue.PollTimeout <= 0 {
			result = multierror.Append(result, errors.New("queue.poll_timeout must be positive"))
		}
	}
	if c.Database.DSN == "" {
		result = multierror.Append(result, errors.New("database.dsn must be set"))
	}
	if c.Ingest.Concurrency < 0 {
		result = multierror.Append(result, errors.New("ingest.concurrency must not be negative"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.EventLimit <= 0 || c.RateLimit.LRUSize <= 0) {
		result = multierror.Append(result, errors.New("rate_limit.event_limit and rate_limit.lru_size must be positive"))
	}
	if err := c.SourceMapping.validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// NewConfig creates a Config struct based on the default config and the
// given input params.
func NewConfig(ucfg *config.C, logger *logp.Logger) (*Config, error) {
	c := DefaultConfig()
	if ucfg != nil {
		if err := ucfg.Unpack(c); err != nil {
			return nil, errors.Wrap(err, "Error processing configuration")
		}
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid configuration")
	}
	if c.Server.Enabled {
		if _, _, err := net.SplitHostPort(c.Server.Host); err != nil {
			c.Server.Host = net.JoinHostPort(c.Server.Host, DefaultPort)
		}
		for _, origin := range c.Server.AllowOrigins {
			if origin == allowAllOrigins {
				logger.Warn("CORS related setting `server.allow_origins` allows all origins. Consider more restrictive setting for production use.")
				break
			}
		}
	}
	switch {
	case !c.SourceMapping.Enabled:
		logger.Info("Source mapping disabled, minified stack traces will be stored as reported")
	case !c.SourceMapping.Backends.Configured():
		logger.Info("Unable to determine sourcemap storage, sourcemaps will not be applied")
	}
	return c, nil
}

const allowAllOrigins = "*"

// DefaultConfig returns a config with default settings for all options.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled:         true,
			Host:            net.JoinHostPort("localhost", DefaultPort),
			MaxHeaderSize:   1 << 20,
			MaxEventSize:    defaultMaxEventSize,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			AllowOrigins:    []string{allowAllOrigins},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Queue: QueueConfig{
			Address:     "localhost:6379",
			Key:         "tracewell:events",
			BatchSize:   50,
			PollTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		SourceMapping: defaultSourceMapping(),
		Webhook: WebhookConfig{
			Timeout: 10 * time.Second,
		},
		Ingest: IngestConfig{
			Concurrency: 8,
			ProjectCache: ProjectCacheConfig{
				Enabled:    true,
				Expiration: 5 * time.Minute,
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:    false,
			EventLimit: 300,
			LRUSize:    1000,
		},
	}
}
