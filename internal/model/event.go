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
	"strings"
	"time"
)

// DefaultMinifiedMarker is the file name infix that marks a stack trace as
// referring to minified code.
const DefaultMinifiedMarker = ".min.js"

// Event holds a single decoded intake record. Exactly one of Error and
// Value is meaningful: records carrying an error description take the error
// path, everything else is treated as an unhandled rejection.
type Event struct {
	// Error holds the reported error, or nil for rejection events.
	Error *ErrorDetail

	// Value holds the raw JSON rejection value. It is only used when
	// Error is nil, and is "null" when the client sent no value.
	Value []byte

	// CodeContexts holds the code snippets captured by the client.
	CodeContexts []CodeContext

	Handled   bool
	Timestamp time.Time

	// ProjectID holds the public project UUID sent by the client.
	ProjectID string

	Method  *string
	Path    *string
	IP      *string
	OS      *string
	Browser *string
	Runtime *string
}

// ErrorDetail holds the name, message and stack of a reported error.
type ErrorDetail struct {
	Name    *string
	Message *string
	Stack   *string

	// NameNull is set when the client sent an explicit null name, as
	// opposed to no name at all.
	NameNull bool
}

// FingerprintName returns the error name used for fingerprinting. An
// explicit null name is written as "null"; a missing name stays nil.
func (d *ErrorDetail) FingerprintName() *string {
	if d.NameNull {
		null := "null"
		return &null
	}
	return d.Name
}

// IsRejection reports whether the event is an unhandled rejection.
func (e *Event) IsRejection() bool {
	return e.Error == nil
}

// ErrorEvent returns the subset of e consumed by stack resolution.
func (e *Event) ErrorEvent() RawErrorEvent {
	raw := RawErrorEvent{
		CodeContexts: e.CodeContexts,
		ProjectID:    e.ProjectID,
	}
	if e.Error != nil {
		raw.ErrorName = e.Error.Name
		raw.ErrorMessage = e.Error.Message
		raw.StackText = e.Error.Stack
	}
	return raw
}

// RawErrorEvent is the immutable input to stack resolution.
type RawErrorEvent struct {
	ErrorName    *string
	ErrorMessage *string
	StackText    *string
	CodeContexts []CodeContext
	ProjectID    string
}

// IsMinified reports whether the stack text references a file name
// containing one of markers. DefaultMinifiedMarker is used when no
// markers are given.
func (e RawErrorEvent) IsMinified(markers ...string) bool {
	if e.StackText == nil {
		return false
	}
	if len(markers) == 0 {
		markers = []string{DefaultMinifiedMarker}
	}
	for _, marker := range markers {
		if marker != "" && strings.Contains(*e.StackText, marker) {
			return true
		}
	}
	return false
}
