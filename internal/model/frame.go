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

// CodeContext holds a snippet of source code around a stack frame.
type CodeContext struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Snippet string `json:"context"`
}

// StackFrame holds a single location referenced by a stack trace. Any
// field may be nil when it could not be extracted; Python frames never
// carry a column.
type StackFrame struct {
	File   *string
	Line   *int
	Column *int
}

// IsZero reports whether no part of the frame could be extracted.
func (f StackFrame) IsZero() bool {
	return f.File == nil && f.Line == nil && f.Column == nil
}

// ResolvedTrace is the normalized result of stack resolution.
//
// When the input stack was not minified, NormalizedStackText and
// NormalizedContexts are the input values themselves, not copies.
type ResolvedTrace struct {
	FileName   *string
	LineNumber *int
	ColNumber  *int

	NormalizedStackText *string
	NormalizedContexts  []CodeContext
}

// Frame returns the resolved identity of t as a StackFrame.
func (t ResolvedTrace) Frame() StackFrame {
	return StackFrame{File: t.FileName, Line: t.LineNumber, Column: t.ColNumber}
}
