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

package model

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrMalformedPayload is returned by DecodeRecord when the record body
	// cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")

	nullValue = []byte("null")
)

type record struct {
	Data *recordData `json:"data"`
}

type recordData struct {
	Error *struct {
		Name    jsoniter.RawMessage `json:"name"`
		Message *string `json:"message"`
		Stack   *string `json:"stack"`
	} `json:"error"`
	Value        jsoniter.RawMessage `json:"value"`
	CodeContexts []recordCodeContext `json:"codeContexts"`
	Handled      bool                `json:"handled"`
	Timestamp    string              `json:"timestamp"`
	ProjectID    string              `json:"project_id"`
	Method       *string             `json:"method"`
	Path         *string             `json:"path"`
	IP           *string             `json:"ip"`
	OS           *string             `json:"os"`
	Browser      *string             `json:"browser"`
	Runtime      *string             `json:"runtime"`
}

type recordCodeContext struct {
	File    string              `json:"file"`
	Line    int                 `json:"line"`
	Column  int                 `json:"column"`
	Context jsoniter.RawMessage `json:"context"`
}

// DecodeRecord decodes a `{"data": {...}}` intake record into an Event.
//
// now is used as the event timestamp when the record has none, or when it
// is not an RFC 3339 timestamp.
func DecodeRecord(body []byte, now time.Time) (*Event, error) {
	var r record
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if r.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedPayload)
	}
	d := r.Data
	if d.ProjectID == "" {
		return nil, fmt.Errorf("%w: missing project_id", ErrMalformedPayload)
	}

	event := Event{
		Handled:   d.Handled,
		Timestamp: parseTimestamp(d.Timestamp, now),
		ProjectID: d.ProjectID,
		Method:    d.Method,
		Path:      d.Path,
		IP:        d.IP,
		OS:        d.OS,
		Browser:   d.Browser,
		Runtime:   d.Runtime,
	}
	if d.Error != nil {
		event.Error = &ErrorDetail{
			Message: d.Error.Message,
			Stack:   d.Error.Stack,
		}
		event.Error.Name, event.Error.NameNull = decodeName(d.Error.Name)
	} else {
		event.Value = nullValue
		if len(bytes.TrimSpace(d.Value)) > 0 {
			event.Value = []byte(d.Value)
		}
	}
	if d.CodeContexts != nil {
		event.CodeContexts = make([]CodeContext, len(d.CodeContexts))
		for i, c := range d.CodeContexts {
			event.CodeContexts[i] = CodeContext{
				File:    c.File,
				Line:    c.Line,
				Column:  c.Column,
				Snippet: decodeSnippet(c.Context),
			}
		}
	}
	return &event, nil
}

// decodeName decodes an error name. null reports an explicit JSON null;
// names that are not strings are kept as their raw JSON text.
func decodeName(raw jsoniter.RawMessage) (name *string, null bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}
	if bytes.Equal(raw, nullValue) {
		return nil, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	return &s, false
}

func parseTimestamp(s string, now time.Time) time.Time {
	if s == "" {
		return now
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return now
	}
	return ts
}

// decodeSnippet unwraps a client code context. Clients send the snippet as
// a JSON encoded string inside a JSON string; anything that does not decode
// to a string is kept as its raw text.
func decodeSnippet(raw jsoniter.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var outer string
	if err := json.Unmarshal(raw, &outer); err != nil {
		return string(raw)
	}
	var inner string
	if err := json.Unmarshal([]byte(outer), &inner); err != nil {
		return outer
	}
	return inner
}
