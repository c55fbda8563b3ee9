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
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/elastic-agent-libs/logp"
)

type transportFunc func(*http.Request) (*http.Response, error)

func (f transportFunc) Perform(req *http.Request) (*http.Response, error) {
	return f(req)
}

func esResponse(status int, body interface{}) *http.Response {
	data, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(data)),
	}
}

func encodeContent(t testing.TB, content string) string {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestElasticsearchFetcher(t *testing.T) {
	const sourcemapContent = `{"version":3,"sources":[],"names":[],"mappings":""}`
	sum := sha256.Sum256([]byte(sourcemapContent))

	for name, tc := range map[string]struct {
		status  int
		body    interface{}
		expData string
		expErr  string
		expLog  string
	}{
		"found": {
			status: http.StatusOK,
			body: map[string]interface{}{
				"found": true,
				"_source": map[string]interface{}{
					"content":        encodeContent(t, sourcemapContent),
					"content_sha256": hex.EncodeToString(sum[:]),
				},
			},
			expData: sourcemapContent,
		},
		"document_missing": {
			status: http.StatusNotFound,
			body:   map[string]interface{}{"found": false},
			expLog: "source map project-1/bundle.min.js.map not found in index sourcemaps",
		},
		"index_missing": {
			status: http.StatusNotFound,
			body:   map[string]interface{}{"error": map[string]interface{}{"type": "index_not_found_exception"}, "status": 404},
			expErr: "fetcher unavailable",
		},
		"unauthorized": {
			status: http.StatusUnauthorized,
			body:   map[string]interface{}{"error": "unauthorized"},
			expErr: "fetcher unavailable",
		},
		"server_error": {
			status: http.StatusInternalServerError,
			body:   map[string]interface{}{},
			expErr: "ES returned unknown status code",
		},
		"hash_mismatch": {
			status: http.StatusOK,
			body: map[string]interface{}{
				"found": true,
				"_source": map[string]interface{}{
					"content":        encodeContent(t, sourcemapContent),
					"content_sha256": "deadbeef",
				},
			},
			expErr: "hash mismatch",
			expLog: "source map project-1/bundle.min.js.map content hash " + hex.EncodeToString(sum[:]) + " does not match stored hash deadbeef",
		},
		"invalid_base64": {
			status: http.StatusOK,
			body: map[string]interface{}{
				"found":   true,
				"_source": map[string]interface{}{"content": "%%%"},
			},
			expErr: "failed to base64 decode string",
		},
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, logp.DevelopmentSetup(logp.ToObserverOutput()))
			var requestPath string
			transport := transportFunc(func(req *http.Request) (*http.Response, error) {
				requestPath = req.URL.EscapedPath()
				return esResponse(tc.status, tc.body), nil
			})
			f := newElasticsearchFetcher(transport, "sourcemaps")
			data, err := f.Fetch(context.Background(), "project-1", "bundle.min.js.map")
			assert.Contains(t, requestPath, "/sourcemaps/_doc/project-1")
			if tc.expLog != "" {
				entries := logp.ObserverLogs().FilterMessage(tc.expLog).TakeAll()
				assert.Len(t, entries, 1)
			}
			if tc.expErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expErr)
				assert.Nil(t, data)
				return
			}
			require.NoError(t, err)
			if tc.expData == "" {
				assert.Nil(t, data)
			} else {
				assert.Equal(t, tc.expData, string(data))
			}
		})
	}
}

type fakeS3 struct {
	objects map[string]string
	err     error
	keys    []string
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.keys = append(f.keys, *params.Bucket+":"+*params.Key)
	if f.err != nil {
		return nil, f.err
	}
	content, ok := f.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(content)))}, nil
}

func TestS3Fetcher(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"42/bundle.min.js.map": `{"version":3}`}}
	f := &s3Fetcher{client: client, bucket: "maps"}

	data, err := f.Fetch(context.Background(), "42", "bundle.min.js.map")
	require.NoError(t, err)
	assert.Equal(t, `{"version":3}`, string(data))

	data, err = f.Fetch(context.Background(), "42", "missing.min.js.map")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, []string{"maps:42/bundle.min.js.map", "maps:42/missing.min.js.map"}, client.keys)

	client.err = io.ErrUnexpectedEOF
	_, err = f.Fetch(context.Background(), "42", "bundle.min.js.map")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestNewS3FetcherRequiresBucket(t *testing.T) {
	_, err := NewS3Fetcher(context.Background(), S3Config{})
	assert.Error(t, err)
}
