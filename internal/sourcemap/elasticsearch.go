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

package sourcemap

import (
	"bytes"
	"compress/zlib"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/logs"
)

type esFetcher struct {
	client esapi.Transport
	index  string
	logger *logp.Logger
}

type esGetSourcemapResponse struct {
	Found  bool `json:"found"`
	Source struct {
		Project struct {
			ID string `json:"id"`
		} `json:"project"`
		File struct {
			Name string `json:"name"`
		} `json:"file"`
		Sourcemap   string `json:"content"`
		ContentHash string `json:"content_sha256"`
	} `json:"_source"`
}

// NewElasticsearchFetcher returns a Fetcher for fetching source maps stored in
// Elasticsearch. Documents are keyed by "<projectID>/<mapFileName>" and hold the
// base64 encoded, zlib compressed source map in the "content" field.
func NewElasticsearchFetcher(c *elasticsearch.Client, index string) Fetcher {
	return newElasticsearchFetcher(c, index)
}

func newElasticsearchFetcher(c esapi.Transport, index string) *esFetcher {
	logger := logp.NewLogger(logs.Sourcemap)
	return &esFetcher{client: c, index: index, logger: logger}
}

// Fetch fetches a source map from Elasticsearch.
func (s *esFetcher) Fetch(ctx context.Context, projectID, mapFileName string) ([]byte, error) {
	resp, err := s.runGetRequest(ctx, projectID, mapFileName)
	if err != nil {
		var networkErr net.Error
		if errors.As(err, &networkErr) {
			return nil, fmt.Errorf("failed to reach elasticsearch: %w: %v ", errFetcherUnvailable, err)
		}
		return nil, fmt.Errorf("failure querying ES: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ES response body: %w", err)
	}

	// handle error response
	if resp.StatusCode >= http.StatusMultipleChoices {
		switch resp.StatusCode {
		case http.StatusNotFound:
			// A missing document is reported as found=false; anything
			// else means the index itself is missing.
			var missing struct {
				Found *bool `json:"found"`
			}
			if err := json.Unmarshal(body, &missing); err == nil && missing.Found != nil && !*missing.Found {
				s.logger.Debugf("source map %s not found in index %s", objectKey(projectID, mapFileName), s.index)
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %s: %s", errFetcherUnvailable, resp.Status(), string(body))
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s: %s", errFetcherUnvailable, resp.Status(), string(body))
		}
		return nil, fmt.Errorf("ES returned unknown status code: %s", resp.Status())
	}

	parsed, err := parse(body)
	if err != nil {
		return nil, err
	}
	if !parsed.Found || parsed.Source.Sourcemap == "" {
		return nil, nil
	}

	decodedBody, err := base64.StdEncoding.DecodeString(parsed.Source.Sourcemap)
	if err != nil {
		return nil, fmt.Errorf("failed to base64 decode string: %w", err)
	}

	r, err := zlib.NewReader(bytes.NewReader(decodedBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer r.Close()

	uncompressedBody, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read sourcemap content: %w", err)
	}

	if hash := parsed.Source.ContentHash; hash != "" {
		sum := sha256.Sum256(uncompressedBody)
		if actual := hex.EncodeToString(sum[:]); actual != hash {
			s.logger.Warnf("source map %s content hash %s does not match stored hash %s",
				objectKey(projectID, mapFileName), actual, hash)
			return nil, fmt.Errorf("sourcemap content hash mismatch for %s", objectKey(projectID, mapFileName))
		}
	}
	return uncompressedBody, nil
}

func (s *esFetcher) runGetRequest(ctx context.Context, projectID, mapFileName string) (*esapi.Response, error) {
	req := esapi.GetRequest{
		Index:      s.index,
		DocumentID: url.PathEscape(objectKey(projectID, mapFileName)),
	}
	return req.Do(ctx, s.client)
}

func parse(body []byte) (*esGetSourcemapResponse, error) {
	var esSourcemapResponse esGetSourcemapResponse
	if err := json.Unmarshal(body, &esSourcemapResponse); err != nil {
		return nil, fmt.Errorf("failed to decode sourcemap: %w", err)
	}
	return &esSourcemapResponse, nil
}
