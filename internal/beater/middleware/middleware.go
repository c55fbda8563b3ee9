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
	"github.com/tracewell/processor/internal/beater/request"
)

// Middleware provides a wrapper function for request.Handlers.
type Middleware func(request.Handler) (request.Handler, error)

// Wrap takes a request.Handler and a variable number of Middlewares,
// and returns a request.Handler with the Middlewares applied. The first
// middleware is the outermost one.
func Wrap(h request.Handler, m ...Middleware) (request.Handler, error) {
	var err error
	for i := len(m) - 1; i >= 0; i-- {
		h, err = m[i](h)
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}
