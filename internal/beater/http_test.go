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
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/beater/config"
)

func TestListen(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "localhost:0"
	cfg.Server.MaxConnections = 5

	listener, err := listen(cfg, logp.NewLogger(""))
	require.NoError(t, err)
	defer listener.Close()
	assert.Equal(t, "tcp", listener.Addr().Network())
}

func TestListenUnixSocket(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "unix://" + t.TempDir() + "/processor.sock"

	listener, err := listen(cfg, logp.NewLogger(""))
	require.NoError(t, err)
	defer listener.Close()
	assert.Equal(t, "unix", listener.Addr().Network())
}

func TestHTTPServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "localhost:0"
	listener, err := listen(cfg, logp.NewLogger(""))
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "pong")
	})
	srv := newHTTPServer(logp.NewLogger(""), cfg, handler, listener)
	done := make(chan error, 1)
	go func() { done <- srv.start() }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.stop(ctx)
	assert.Equal(t, http.ErrServerClosed, <-done)
}

func TestErrorLogWriter(t *testing.T) {
	require.NoError(t, logp.DevelopmentSetup(logp.ToObserverOutput()))
	errLog := newErrorLog(logp.NewLogger("beater"))
	errLog.Print("http: TLS handshake error from 127.0.0.1:1234: EOF\n")

	entries := logp.ObserverLogs().TakeAll()
	require.Len(t, entries, 1)
	assert.Equal(t, "beater.http", entries[0].LoggerName)
	assert.Equal(t, "http: TLS handshake error from 127.0.0.1:1234: EOF", entries[0].Message)
}
