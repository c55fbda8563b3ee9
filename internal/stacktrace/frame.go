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

// Package stacktrace extracts frames and code context from client-reported
// stack traces. Everything in this package is pure string processing.
package stacktrace

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/tracewell/processor/internal/model"
)

// Extractor extracts the frame relevant for grouping from a stack trace in
// a single dialect.
type Extractor interface {
	Extract(stack string) model.StackFrame
}

// Platform tags reported by projects.
const (
	PlatformFlask   = "Flask"
	PlatformDjango  = "Django"
	PlatformFastAPI = "FastAPI"
	PlatformPython  = "Python"
	PlatformExpress = "Express.js"
	PlatformKoa     = "Koa"
	PlatformFastify = "Fastify"
)

var (
	pythonFrameRegexp  = regexp.MustCompile(`^\s*File\s+"([^"]+)",\s+line\s+(\d+)(?:,\s+in\s+(.+))?`)
	nodeFrameRegexp    = regexp.MustCompile(`\(?([^\s()]+?):(\d+):(\d+)`)
	genericFrameRegexp = regexp.MustCompile(`(?:at\s+)?(?:[^\s(]+\s+)?\(?([^\s()]+?):(\d+):(\d+)\)?`)
)

// PythonExtractor handles Python tracebacks. The traceback is read bottom
// up and the fourth line from the end is taken as the frame, skipping the
// exception line and the innermost frame's source line.
type PythonExtractor struct{}

// NodeExtractor handles traces from Node.js web frameworks, where frames
// have the shape <path>:<line>:<col>.
type NodeExtractor struct{}

// GenericExtractor handles browser and unknown traces. It tolerates a
// leading "at", an optional function name and optional parentheses.
type GenericExtractor struct{}

// pythonFrameOffset is the index, counted from the end of the traceback,
// of the line holding the relevant frame.
const pythonFrameOffset = 3

// Extract implements Extractor.
func (PythonExtractor) Extract(stack string) model.StackFrame {
	lines := strings.Split(stack, "\n")
	if len(lines) <= pythonFrameOffset {
		return model.StackFrame{}
	}
	match := pythonFrameRegexp.FindStringSubmatch(lines[len(lines)-1-pythonFrameOffset])
	if match == nil {
		return model.StackFrame{}
	}
	line, err := strconv.Atoi(match[2])
	if err != nil {
		return model.StackFrame{}
	}
	file := path.Base(match[1])
	return model.StackFrame{File: &file, Line: &line}
}

// Extract implements Extractor.
func (NodeExtractor) Extract(stack string) model.StackFrame {
	return extractFirstMatch(nodeFrameRegexp, stack)
}

// Extract implements Extractor.
func (GenericExtractor) Extract(stack string) model.StackFrame {
	return extractFirstMatch(genericFrameRegexp, stack)
}

// extractFirstMatch returns the frame from the first line of stack that
// matches re. The first submatch is the path, followed by line and column.
func extractFirstMatch(re *regexp.Regexp, stack string) model.StackFrame {
	for _, text := range strings.Split(stack, "\n") {
		match := re.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		line, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		col, err := strconv.Atoi(match[3])
		if err != nil {
			continue
		}
		file := path.Base(match[1])
		return model.StackFrame{File: &file, Line: &line, Column: &col}
	}
	return model.StackFrame{}
}

// ExtractorFor returns the Extractor for a platform tag. Unknown tags use
// GenericExtractor.
func ExtractorFor(platform string) Extractor {
	switch platform {
	case PlatformFlask, PlatformDjango, PlatformFastAPI, PlatformPython:
		return PythonExtractor{}
	case PlatformExpress, PlatformKoa, PlatformFastify:
		return NodeExtractor{}
	default:
		return GenericExtractor{}
	}
}

// Extract returns the best-effort frame of stack for platform. A nil stack,
// or one that does not match the platform's dialect, yields a zero frame.
func Extract(stack *string, platform string) model.StackFrame {
	if stack == nil {
		return model.StackFrame{}
	}
	return ExtractorFor(platform).Extract(*stack)
}
