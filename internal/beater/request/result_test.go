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
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult_Reset(t *testing.T) {
	r := Result{
		ID:         IDResponseErrorsRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Keyword:    "too many requests",
		Body:       "body",
		Err:        errors.New("bar"),
		Stacktrace: "trace",
	}
	r.Reset()
	assert.Equal(t, Result{ID: IDUnset, StatusCode: http.StatusOK}, r)
}

func TestResult_Failure(t *testing.T) {
	assert.False(t, (&Result{StatusCode: http.StatusOK}).Failure())
	assert.True(t, (&Result{StatusCode: http.StatusBadRequest}).Failure())
	assert.True(t, (&Result{StatusCode: http.StatusInternalServerError}).Failure())
}

func TestResult_Set(t *testing.T) {
	for name, tc := range map[string]struct {
		id      ResultID
		body    interface{}
		err     error
		status  int
		keyword string
		resBody interface{}
		resErr  string
	}{
		"ok": {
			id: IDResponseValidOK, status: http.StatusOK, keyword: "request ok",
		},
		"ok_with_body": {
			id: IDResponseValidOK, body: "hello", status: http.StatusOK, keyword: "request ok", resBody: "hello",
		},
		"failure_default": {
			id: IDResponseErrorsDecode, status: http.StatusBadRequest, keyword: "data decoding error",
			resBody: "data decoding error", resErr: "data decoding error",
		},
		"failure_with_error": {
			id: IDResponseErrorsValidate, err: errors.New("missing project_id"), status: http.StatusBadRequest,
			keyword: "data validation error", resBody: "data validation error: missing project_id",
			resErr: "data validation error: missing project_id",
		},
		"unknown_id": {
			id: ResultID("foo"), status: http.StatusInternalServerError, keyword: "internal error",
			resBody: "internal error", resErr: "internal error",
		},
	} {
		t.Run(name, func(t *testing.T) {
			var r Result
			if tc.body != nil {
				r.SetWithBody(tc.id, tc.body)
			} else {
				r.SetWithError(tc.id, tc.err)
			}
			assert.Equal(t, tc.id, r.ID)
			assert.Equal(t, tc.status, r.StatusCode)
			assert.Equal(t, tc.keyword, r.Keyword)
			assert.Equal(t, tc.resBody, r.Body)
			if tc.resErr == "" {
				assert.NoError(t, r.Err)
			} else {
				assert.EqualError(t, r.Err, tc.resErr)
			}
		})
	}
}

func TestResult_SetNil(t *testing.T) {
	var r *Result
	assert.NotPanics(t, func() { r.SetDefault(IDResponseValidOK) })
}
