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

package config

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/tracewell/processor/internal/elasticsearch"
	"github.com/tracewell/processor/internal/model"
)

const (
	defaultSourcemapTimeout = 5 * time.Second
	defaultSourcemapIndex   = "tracewell-sourcemaps"
)

// SourceMapping holds the source map settings. Backends are queried in the
// order directory, elasticsearch, s3, gcs; only configured backends are
// used.
type SourceMapping struct {
	Enabled bool `config:"enabled"`
	// Markers holds the file name infixes marking a stack trace as
	// minified.
	Markers      []string      `config:"marker"`
	FetchTimeout time.Duration `config:"fetch_timeout" validate:"positive"`
	Backends     Backends      `config:"backends"`
}

// Backends holds the configured source map stores.
type Backends struct {
	Directory     *DirectoryBackend     `config:"directory"`
	Elasticsearch *ElasticsearchBackend `config:"elasticsearch"`
	S3            *S3Backend            `config:"s3"`
	GCS           *GCSBackend           `config:"gcs"`
}

// DirectoryBackend reads source maps from <path>/<project>/<file>.map.
type DirectoryBackend struct {
	Path string `config:"path"`
}

// ElasticsearchBackend reads source maps from an Elasticsearch index.
type ElasticsearchBackend struct {
	elasticsearch.Config `config:",inline"`
	Index                string `config:"index"`
}

// InitDefaults initializes the defaults of an Elasticsearch backend before
// its settings are unpacked.
func (b *ElasticsearchBackend) InitDefaults() {
	b.Config = *elasticsearch.DefaultConfig()
	b.Index = defaultSourcemapIndex
}

// S3Backend reads source maps from an S3 bucket.
type S3Backend struct {
	Bucket   string `config:"bucket"`
	Region   string `config:"region"`
	Endpoint string `config:"endpoint"`
}

// GCSBackend reads source maps from a Google Cloud Storage bucket.
type GCSBackend struct {
	Bucket          string `config:"bucket"`
	CredentialsFile string `config:"credentials_file"`
}

// Configured reports whether any backend is configured.
func (b Backends) Configured() bool {
	return b.Directory != nil || b.Elasticsearch != nil || b.S3 != nil || b.GCS != nil
}

func (s *SourceMapping) validate() error {
	if !s.Enabled {
		return nil
	}
	var result *multierror.Error
	if b := s.Backends.Directory; b != nil && b.Path == "" {
		result = multierror.Append(result, errors.New("source_mapping.backends.directory.path must be set"))
	}
	if b := s.Backends.Elasticsearch; b != nil {
		if b.Index == "" {
			result = multierror.Append(result, errors.New("source_mapping.backends.elasticsearch.index must be set"))
		}
		if err := b.Config.Validate(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "source_mapping.backends.elasticsearch"))
		}
	}
	if b := s.Backends.S3; b != nil && b.Bucket == "" {
		result = multierror.Append(result, errors.New("source_mapping.backends.s3.bucket must be set"))
	}
	if b := s.Backends.GCS; b != nil && b.Bucket == "" {
		result = multierror.Append(result, errors.New("source_mapping.backends.gcs.bucket must be set"))
	}
	return result.ErrorOrNil()
}

func defaultSourceMapping() SourceMapping {
	return SourceMapping{
		Enabled:      true,
		Markers:      []string{model.DefaultMinifiedMarker},
		FetchTimeout: defaultSourcemapTimeout,
	}
}
