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

package sourcemap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tracewell/processor/internal/model"
	"github.com/tracewell/processor/internal/stacktrace"
)

const anonymousFunction = "anonymous"

// stackFrameRegexp matches frames of the form "at <function> (<file>:<line>:<col>)".
var stackFrameRegexp = regexp.MustCompile(`at\s+.+\((.+):(\d+):(\d+)\)`)

// Position is an original source position. Nil fields mean the source map
// has no such information for the generated position.
type Position struct {
	File   *string
	Line   *int
	Column *int
	Name   *string
}

// ResolvePosition maps a generated (minified) position to its original
// position. line is 1-based, column is 0-based.
func (a *Artifact) ResolvePosition(line, column int) Position {
	file, function, l, c, ok := a.source(line, column)
	if !ok {
		return Position{}
	}
	pos := Position{Line: &l, Column: &c}
	if file != "" {
		pos.File = &file
	}
	if function != "" {
		pos.Name = &function
	}
	return pos
}

// RemapStack rewrites every frame of stack that can be mapped to its
// original position as "at <function> (<file>:<line>:<col>)", using
// "anonymous" when the source map holds no function name. All other lines
// are kept verbatim, preserving line order and count.
func (a *Artifact) RemapStack(stack string) string {
	lines := strings.Split(stack, "\n")
	for i, line := range lines {
		loc, file, function, l, c, ok := a.resolveFrame(line)
		if !ok {
			continue
		}
		if function == "" {
			function = anonymousFunction
		}
		lines[i] = line[:loc[0]] + fmt.Sprintf("at %s (%s:%d:%d)", function, file, l, c) + line[loc[1]:]
	}
	return strings.Join(lines, "\n")
}

// ResolveContexts returns a code context for every frame of stack that maps
// to an original source whose content is embedded in the source map. Frames
// without source content are skipped.
func (a *Artifact) ResolveContexts(stack string) []model.CodeContext {
	contexts := []model.CodeContext{}
	for _, line := range strings.Split(stack, "\n") {
		_, file, _, l, c, ok := a.resolveFrame(line)
		if !ok {
			continue
		}
		content := a.sourceContent(file)
		if content == "" {
			getLogger().Warnf("Source content not found for file: %s", file)
			continue
		}
		contexts = append(contexts, model.CodeContext{
			File:   file,
			Line:   l,
			Column: c,
			Snippet: stacktrace.ExtractWindow(
				content, l,
				stacktrace.DefaultContextLines,
				stacktrace.DefaultContextLines,
			),
		})
	}
	return contexts
}

// resolveFrame maps the frame in line, if any. loc holds the byte offsets
// of the matched frame within line.
func (a *Artifact) resolveFrame(line string) (loc []int, file, function string, l, c int, ok bool) {
	m := stackFrameRegexp.FindStringSubmatchIndex(line)
	if m == nil {
		return nil, "", "", 0, 0, false
	}
	genLine, err := strconv.Atoi(line[m[4]:m[5]])
	if err != nil {
		return nil, "", "", 0, 0, false
	}
	genCol, err := strconv.Atoi(line[m[6]:m[7]])
	if err != nil {
		return nil, "", "", 0, 0, false
	}
	file, function, l, c, ok = a.source(genLine, genCol)
	if !ok || file == "" {
		return nil, "", "", 0, 0, false
	}
	return m[:2], file, function, l, c, true
}
