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
package middleware

import (
	"time"

	"github.com/gofrs/uuid"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/beater/headers"
	"github.com/tracewell/processor/internal/beater/request"
)

// LogMiddleware returns a middleware taking care of logging processing a request in the middleware and the request handler
func LogMiddleware(logger *logp.Logger) Middleware {
	return func(h request.Handler) (request.Handler, error) {
		return func(c *request.Context) {
			reqID, err := uuid.NewV4()
			if err != nil {
				id := request.IDResponseErrorsInternal
				logger.Errorw(request.MapResultIDToStatus[id].Keyword, logp.Error(err))
				c.Result.SetWithError(id, err)
				c.WriteResult()
				return
			}
			c.Logger = loggerWithRequestContext(logger, c, reqID.String())
			h(c)

			if c.MultipleWriteAttempts() {
				c.Logger.Warn("multiple write attempts")
			}
			keyword := c.Result.Keyword
			if keyword == "" {
				keyword = "handled request"
			}
			c.Logger = loggerWithResult(c)
			if c.Result.Failure() {
				c.Logger.Error(keyword)
				return
			}
			c.Logger.Info(keyword)
		}, nil
	}
}

func loggerWithRequestContext(logger *logp.Logger, c *request.Context, reqID string) *logp.Logger {
	logger = logger.With(
		"url.original", c.Request.URL.String(),
		"http.request.method", c.Request.Method,
		"user_agent.original", c.Request.Header.Get(headers.UserAgent),
		"source.address", c.ClientIP,
		"http.request.id", reqID,
	)
	if c.Request.ContentLength != -1 {
		logger = logger.With("http.request.body.bytes", c.Request.ContentLength)
	}
	return logger
}

func loggerWithResult(c *request.Context) *logp.Logger {
	logger := c.Logger.With(
		"http.response.status_code", c.Result.StatusCode,
		"event.duration", time.Since(c.Timestamp),
	)
	if c.Result.Err != nil {
		logger = logger.With("error.message", c.Result.Err.Error())
	}
	if c.Result.Stacktrace != "" {
		logger = logger.With("error.stack_trace", c.Result.Stacktrace)
	}
	return logger
}
