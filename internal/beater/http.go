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
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/libp2p/go-reuseport"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/beater/config"
)

type httpServer struct {
	*http.Server
	cfg          *config.Config
	logger       *logp.Logger
	httpListener net.Listener
}

func newHTTPServer(logger *logp.Logger, cfg *config.Config, handler http.Handler, listener net.Listener) *httpServer {
	server := &http.Server{
		Addr:           cfg.Server.Host,
		Handler:        handler,
		IdleTimeout:    cfg.Server.IdleTimeout,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderSize,
		ErrorLog:       newErrorLog(logger),
	}
	return &httpServer{server, cfg, logger, listener}
}

func (h *httpServer) start() error {
	h.logger.Infof("Intake endpoints enabled on %s", h.httpListener.Addr())
	return h.Serve(h.httpListener)
}

func (h *httpServer) stop(ctx context.Context) {
	h.logger.Infof("Stop listening on: %s", h.Server.Addr)
	if err := h.Shutdown(ctx); err != nil {
		h.logger.Errorf("error stopping http server: %s", err.Error())
		if err := h.Close(); err != nil {
			h.logger.Errorf("error closing http server: %s", err.Error())
		}
	}
}

// listen starts the listener for cfg.Server.Host.
func listen(cfg *config.Config, logger *logp.Logger) (net.Listener, error) {
	var listener net.Listener
	url, err := url.Parse(cfg.Server.Host)
	if err == nil && url.Scheme == "unix" {
		// SO_REUSEPORT does not support unix sockets
		listener, err = net.Listen("unix", url.Path)
	} else {
		addr := cfg.Server.Host
		if _, _, err := net.SplitHostPort(addr); err != nil {
			// Tack on a port if SplitHostPort fails on what should be a
			// tcp network address. If splitting failed because there were
			// already too many colons, one more won't change that.
			addr = net.JoinHostPort(addr, config.DefaultPort)
		}
		listener, err = reuseport.Listen("tcp", addr)
	}
	if err != nil {
		return nil, err
	}

	addr := listener.Addr()
	if network := addr.Network(); network == "tcp" {
		logger.Infof("Listening on: %s", addr)
	} else {
		logger.Infof("Listening on: %s:%s", network, addr.String())
	}
	if cfg.Server.MaxConnections > 0 {
		logger.Infof("Connection limit set to: %d", cfg.Server.MaxConnections)
		listener = netutil.LimitListener(listener, cfg.Server.MaxConnections)
	}
	return listener, nil
}

// newErrorLog returns a standard library log.Logger that sends
// logs to logger with error level.
func newErrorLog(logger *logp.Logger) *log.Logger {
	logger = logger.Named("http")
	logger = logger.WithOptions(zap.AddCallerSkip(3))
	w := errorLogWriter{logger}
	return log.New(w, "", 0)
}

type errorLogWriter struct {
	logger *logp.Logger
}

func (w errorLogWriter) Write(p []byte) (int, error) {
	message := strings.TrimSpace(string(p))
	w.logger.Error(message)
	return len(p), nil
}
