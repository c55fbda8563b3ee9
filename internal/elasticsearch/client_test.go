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

package elasticsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

func TestClient(t *testing.T) {
	t.Run("no config", func(t *testing.T) {
		client, err := NewClient(nil)
		assert.Error(t, err)
		assert.Nil(t, client)
	})

	t.Run("valid config", func(t *testing.T) {
		cfg := Config{Hosts: Hosts{"localhost:9200", "localhost:9201"}}
		client, err := NewClient(&cfg)
		require.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestClientCustomHeaders(t *testing.T) {
	requestHeaders := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		select {
		case requestHeaders <- r.Header:
		default:
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := Config{
		Hosts:   Hosts{srv.URL},
		Headers: map[string]string{"custom": "header"},
	}
	client, err := NewClient(&cfg)
	require.NoError(t, err)

	resp, err := esapi.InfoRequest{}.Do(context.Background(), client)
	require.NoError(t, err)
	resp.Body.Close()

	select {
	case h := <-requestHeaders:
		assert.Equal(t, "header", h.Get("custom"))
		assert.Equal(t, userAgent, h.Get("User-Agent"))
	case <-time.After(time.Second):
		t.Fatal("timed out while waiting for request")
	}
}

func TestAddresses(t *testing.T) {
	for name, tc := range map[string]struct {
		cfg      Config
		expected []string
	}{
		"default_port": {
			cfg:      Config{Hosts: Hosts{"localhost"}},
			expected: []string{"http://localhost:9200"},
		},
		"protocol": {
			cfg:      Config{Hosts: Hosts{"es.internal:9243"}, Protocol: "https"},
			expected: []string{"https://es.internal:9243"},
		},
		"full_url": {
			cfg:      Config{Hosts: Hosts{"https://es.example.com:443/prefix"}},
			expected: []string{"https://es.example.com:443/prefix"},
		},
		"path": {
			cfg:      Config{Hosts: Hosts{"localhost:9200"}, Path: "/es"},
			expected: []string{"http://localhost:9200/es"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			addrs, err := addresses(&tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, addrs)
		})
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := exponentialBackoff(BackoffConfig{Init: time.Second, Max: 5 * time.Second})
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, 5*time.Second, backoff(4))
	assert.Equal(t, 5*time.Second, backoff(40))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, (&Config{}).Validate())
}
