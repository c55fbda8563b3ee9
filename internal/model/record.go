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

import "time"

const (
	defaultErrorName    = "UnknownError"
	defaultErrorMessage = "No message provided"
	defaultStackText    = "No stack trace available"
)

// ErrorRecord is a persisted error occurrence.
type ErrorRecord struct {
	UUID       string
	Name       string
	Message    string
	Timestamp  time.Time
	FileName   *string
	LineNumber *int
	ColNumber  *int
	ProjectID  int64
	StackText  string
	Handled    bool
	// Contexts holds the JSON encoded code contexts, or nil when the
	// event carried none.
	Contexts  []byte
	Method    *string
	Path      *string
	IPHash    string
	OS        *string
	Browser   *string
	Runtime   *string
	ErrorHash string
}

// RejectionRecord is a persisted unhandled rejection.
type RejectionRecord struct {
	UUID      string
	Value     []byte
	Timestamp time.Time
	ProjectID int64
	Handled   bool
	Method    *string
	Path      *string
	IPHash    string
	OS        *string
	Browser   *string
	Runtime   *string
}

// NameOrDefault returns the error name, or "UnknownError".
func (d *ErrorDetail) NameOrDefault() string {
	if d == nil || d.Name == nil || *d.Name == "" {
		return defaultErrorName
	}
	return *d.Name
}

// MessageOrDefault returns the error message, or a placeholder.
func (d *ErrorDetail) MessageOrDefault() string {
	if d == nil || d.Message == nil || *d.Message == "" {
		return defaultErrorMessage
	}
	return *d.Message
}

// StackOrDefault returns stack, or a placeholder when it is nil or empty.
func StackOrDefault(stack *string) string {
	if stack == nil || *stack == "" {
		return defaultStackText
	}
	return *stack
}
