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
package root

import (
	"errors"
	"net/http"
	"time"

	"github.com/elastic/elastic-agent-libs/mapstr"

	"github.com/tracewell/processor/internal/beater/request"
	"github.com/tracewell/processor/internal/version"
)

// HandlerConfig holds configuration for Handler.
type HandlerConfig struct {
	// Ready reports whether or not the processor is ready to store events.
	Ready func() bool

	// Version holds the processor version.
	Version string
}

// Handler returns information about the processor. Only GET and HEAD
// requests are accepted.
func Handler(cfg HandlerConfig) request.Handler {
	return func(c *request.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead:
		default:
			c.Result.SetWithError(
				request.IDResponseErrorsMethodNotAllowed,
				// include a verbose error message to alert users about a common misconfiguration
				errors.New("this is the server information endpoint; did you mean to send data to /api/errors instead?"),
			)
			c.WriteResult()
			return
		}

		serverInfo := mapstr.M{
			"build_sha": version.CommitHash(),
			"version":   cfg.Version,
		}
		if t := version.CommitTime(); !t.IsZero() {
			serverInfo["build_date"] = t.Format(time.RFC3339)
		}
		if cfg.Ready != nil {
			serverInfo["ready"] = cfg.Ready()
		}

		c.Result.SetWithBody(request.IDResponseValidOK, serverInfo)
		c.WriteResult()
	}
}
