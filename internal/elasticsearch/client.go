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

// Package elasticsearch creates Elasticsearch clients from configuration.
package elasticsearch

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/tracewell/processor/internal/version"
)

const defaultPort = "9200"

var (
	errConfigMissing = errors.New("elasticsearch configuration is missing")

	retryableStatuses = []int{
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}

	userAgent = fmt.Sprintf("Tracewell-Processor/%s go-elasticsearch/%s", version.Version, elasticsearch.Version)
)

// Hosts holds the Elasticsearch hosts to connect to.
type Hosts []string

// Config holds Elasticsearch connection settings.
type Config struct {
	Hosts      Hosts             `config:"hosts"`
	Protocol   string            `config:"protocol"`
	Path       string            `config:"path"`
	Username   string            `config:"username"`
	Password   string            `config:"password"`
	APIKey     string            `config:"api_key"`
	Headers    map[string]string `config:"headers"`
	Timeout    time.Duration     `config:"timeout"`
	MaxRetries int               `config:"max_retries"`
	Backoff    BackoffConfig     `config:"backoff"`
}

// DefaultConfig returns a Config with default settings.
func DefaultConfig() *Config {
	return &Config{
		Hosts:      Hosts{"localhost:9200"},
		Protocol:   "http",
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		Backoff:    DefaultBackoffConfig,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return errors.New("no hosts configured")
	}
	_, err := addresses(c)
	return err
}

// NewClient returns a go-elasticsearch client for config.
func NewClient(config *Config) (*elasticsearch.Client, error) {
	if config == nil {
		return nil, errConfigMissing
	}
	addrs, err := addresses(config)
	if err != nil {
		return nil, err
	}

	header := make(http.Header, len(config.Headers)+1)
	for k, v := range config.Headers {
		header.Set(k, v)
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", userAgent)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = config.Timeout

	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     addrs,
		Username:      config.Username,
		Password:      config.Password,
		APIKey:        config.APIKey,
		Header:        header,
		Transport:     transport,
		MaxRetries:    config.MaxRetries,
		RetryOnStatus: retryableStatuses,
		RetryBackoff:  exponentialBackoff(config.Backoff),
	})
}

func addresses(config *Config) ([]string, error) {
	addrs := make([]string, len(config.Hosts))
	for i, host := range config.Hosts {
		addr, err := makeURL(host, config.Protocol, config.Path)
		if err != nil {
			return nil, fmt.Errorf("invalid elasticsearch host %q: %w", host, err)
		}
		addrs[i] = addr
	}
	return addrs, nil
}

func makeURL(host, defaultScheme, path string) (string, error) {
	if defaultScheme == "" {
		defaultScheme = "http"
	}
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		u, err = url.Parse(defaultScheme + "://" + host)
		if err != nil {
			return "", err
		}
	}
	if u.Port() == "" {
		u.Host += ":" + defaultPort
	}
	if u.Path == "" && path != "" {
		u.Path = path
	}
	return u.String(), nil
}
