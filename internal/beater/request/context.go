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
package request

import (
	"net"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/beater/headers"
	"github.com/tracewell/processor/internal/logs"
)

const (
	mimeTypeAny             = "*/*"
	mimeTypeApplicationJSON = "application/json"
)

var (
	mimeTypesJSON = []string{mimeTypeAny, mimeTypeApplicationJSON}

	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Handler is a function type for handling a request context.
type Handler func(*Context)

// Context abstracts request and response information for http requests
type Context struct {
	Request        *http.Request
	ResponseWriter http.ResponseWriter
	Logger         *logp.Logger
	Result         Result

	// Timestamp holds the time at which the request was received by
	// the server.
	Timestamp time.Time

	// ClientIP holds the IP address of the originating client,
	// as recorded in Forwarded, X-Forwarded-For, etc.
	ClientIP string

	writeAttempts int
}

// Reset allows to reuse a context by removing all request specific information.
func (c *Context) Reset(w http.ResponseWriter, r *http.Request) {
	c.Request = r
	c.ResponseWriter = w
	c.Logger = nil
	c.Result.Reset()
	c.Timestamp = time.Time{}
	c.ClientIP = ""
	c.writeAttempts = 0

	if r != nil {
		c.ClientIP = clientIP(r)
	}
}

// Header returns the http.Header of the context's writer
func (c *Context) Header() http.Header {
	return c.ResponseWriter.Header()
}

// MultipleWriteAttempts returns a boolean set to true if WriteResult was
// called multiple times.
func (c *Context) MultipleWriteAttempts() bool {
	return c.writeAttempts > 1
}

// WriteResult sets response headers, and writes the body to the response writer.
// In case body is nil only the headers will be set.
// In case statusCode indicates an error response, the body is also set as error in the context.
// Only first call will write to the response writer, subsequent calls only
// increase the attempt counter.
func (c *Context) WriteResult() {
	c.writeAttempts++
	if c.writeAttempts > 1 {
		return
	}

	c.Header().Set(headers.XContentTypeOptions, "nosniff")

	body := c.Result.Body
	if body == nil {
		c.ResponseWriter.WriteHeader(c.Result.StatusCode)
		return
	}

	if c.acceptJSON() {
		c.Header().Set(headers.ContentType, "application/json")
	} else {
		c.Header().Set(headers.ContentType, "text/plain; charset=utf-8")
	}
	c.ResponseWriter.WriteHeader(c.Result.StatusCode)

	if c.acceptJSON() {
		if c.Result.Failure() {
			if s, ok := body.(string); ok {
				body = map[string]string{"error": s}
			}
		}
		if err := c.writeJSON(body, true); err != nil {
			c.errOnWrite(err)
		}
		return
	}
	if err := c.writePlain(body); err != nil {
		c.errOnWrite(err)
	}
}

func (c *Context) acceptJSON() bool {
	acceptHeader := c.Request.Header.Get(headers.Accept)
	if acceptHeader == "" {
		return true
	}
	for _, s := range mimeTypesJSON {
		if strings.Contains(acceptHeader, s) {
			return true
		}
	}
	return false
}

func (c *Context) writeJSON(body interface{}, pretty bool) error {
	enc := json.NewEncoder(c.ResponseWriter)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(body)
}

func (c *Context) writePlain(body interface{}) error {
	if b, ok := body.(string); ok {
		_, err := c.ResponseWriter.Write([]byte(b + "\n"))
		return err
	}
	// unexpected behavior to return json but changing this would be breaking
	return c.writeJSON(body, false)
}

func (c *Context) errOnWrite(err error) {
	if c.Logger == nil {
		c.Logger = logp.NewLogger(logs.Handler)
	}
	c.Logger.Errorw("write response", "error", err)
}

// clientIP returns the address of the client originating the request,
// preferring proxy headers over the connection's remote address.
func clientIP(r *http.Request) string {
	if realIP := r.Header.Get(headers.XRealIP); realIP != "" {
		return realIP
	}
	if xff := r.Header.Get(headers.XForwardedFor); xff != "" {
		if sep := strings.IndexRune(xff, ','); sep > 0 {
			xff = xff[:sep]
		}
		return strings.TrimSpace(xff)
	}
	if strings.LastIndexByte(r.RemoteAddr, ':') == -1 {
		return r.RemoteAddr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
