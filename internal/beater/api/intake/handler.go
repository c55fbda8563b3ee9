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
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tracewell/processor/internal/beater/headers"
	"github.com/tracewell/processor/internal/beater/ratelimit"
	"github.com/tracewell/processor/internal/beater/request"
	"github.com/tracewell/processor/internal/ingest"
	"github.com/tracewell/processor/internal/model"
)

var (
	errMethodNotAllowed   = errors.New("only POST requests are supported")
	errInvalidContentType = errors.New("invalid content type")
	errRequestTooLarge    = errors.New("event exceeds the maximum event size")
)

// EventProcessor processes a single decoded intake event, implemented by
// ingest.Processor.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, event *model.Event) error
}

// HandlerConfig holds configuration for Handler.
type HandlerConfig struct {
	// MaxEventSize is the maximum size of a request body in bytes.
	MaxEventSize int

	// RateLimitStore, if non-nil, limits the events accepted per project.
	RateLimitStore *ratelimit.Store
}

// Handler returns a request.Handler for managing intake requests. The
// request body holds a single `{"data": ...}` record; whether it describes
// an error or a rejection is decided by its content.
func Handler(processor EventProcessor, cfg HandlerConfig) request.Handler {
	return func(c *request.Context) {
		if err := validateRequest(c); err != nil {
			writeError(c, err)
			return
		}

		body, err := readBody(c.Request.Body, cfg.MaxEventSize)
		if err != nil {
			writeError(c, err)
			return
		}
		event, err := model.DecodeRecord(body, c.Timestamp)
		if err != nil {
			writeError(c, err)
			return
		}

		if cfg.RateLimitStore != nil && !cfg.RateLimitStore.ForKey(event.ProjectID).Allow() {
			writeError(c, ratelimit.ErrRateLimitExceeded)
			return
		}

		if err := processor.ProcessEvent(c.Request.Context(), event); err != nil {
			writeError(c, err)
			return
		}

		kind := "error"
		if event.IsRejection() {
			kind = "rejection"
		}
		c.Result.SetWithBody(request.IDResponseValidOK, jsonResult{
			Message:   kind + " event processed",
			ProjectID: event.ProjectID,
		})
		c.WriteResult()
	}
}

func validateRequest(c *request.Context) error {
	if c.Request.Method != http.MethodPost {
		return errMethodNotAllowed
	}

	// Content-Type, if specified, must contain "application/json". If unspecified, we assume this.
	contentType := c.Request.Header.Get(headers.ContentType)
	if contentType != "" && !strings.Contains(contentType, "application/json") {
		return fmt.Errorf("%w: '%s'", errInvalidContentType, contentType)
	}
	return nil
}

func readBody(r io.Reader, maxEventSize int) ([]byte, error) {
	if maxEventSize <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, int64(maxEventSize)+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxEventSize {
		return nil, errRequestTooLarge
	}
	return body, nil
}

func writeError(c *request.Context, err error) {
	id := request.IDResponseErrorsInternal
	switch {
	case errors.Is(err, errMethodNotAllowed):
		id = request.IDResponseErrorsMethodNotAllowed
	case errors.Is(err, errInvalidContentType):
		id = request.IDResponseErrorsValidate
	case errors.Is(err, errRequestTooLarge):
		id = request.IDResponseErrorsRequestTooLarge
	case errors.Is(err, model.ErrMalformedPayload):
		id = request.IDResponseErrorsDecode
	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		id = request.IDResponseErrorsRateLimit
	case errors.Is(err, ingest.ErrProjectNotFound):
		id = request.IDResponseErrorsProjectNotFound
	}
	if id == request.IDResponseErrorsInternal {
		// the cause is logged, clients only see the keyword
		status := request.MapResultIDToStatus[id]
		c.Result.Set(id, status.Code, status.Keyword, status.Keyword, err)
	} else {
		c.Result.SetWithError(id, err)
	}
	// this signals to the client that we're closing the connection
	// but also signals to http.Server that it should close it:
	// https://golang.org/src/net/http/server.go#L1254
	c.Header().Add(headers.Connection, "Close")
	c.WriteResult()
}

type jsonResult struct {
	Message   string `json:"message"`
	ProjectID string `json:"project_id"`
}
