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
package headers

// Header keys used by the HTTP intake.
const (
	Accept                     = "Accept"
	AccessControlAllowHeaders  = "Access-Control-Allow-Headers"
	AccessControlAllowMethods  = "Access-Control-Allow-Methods"
	AccessControlAllowOrigin   = "Access-Control-Allow-Origin"
	AccessControlExposeHeaders = "Access-Control-Expose-Headers"
	AccessControlMaxAge        = "Access-Control-Max-Age"
	Connection                 = "Connection"
	ContentEncoding            = "Content-Encoding"
	ContentLength              = "Content-Length"
	ContentType                = "Content-Type"
	Etag                       = "Etag"
	Origin                     = "Origin"
	UserAgent                  = "User-Agent"
	Vary                       = "Vary"
	XContentTypeOptions        = "X-Content-Type-Options"
	XForwardedFor              = "X-Forwarded-For"
	XRealIP                    = "X-Real-Ip"
)
