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

package stacktrace

import "strings"

// DefaultContextLines is the number of lines included on each side of the
// target line by ExtractWindow callers.
const DefaultContextLines = 5

// ExtractWindow returns the lines of source surrounding the 1-based
// targetLine: up to before lines ahead of it and after lines following it.
// Out of range values are clamped, so the result may be empty.
func ExtractWindow(source string, targetLine, before, after int) string {
	lines := strings.Split(source, "\n")
	start := clamp(targetLine-before-1, 0, len(lines))
	end := clamp(targetLine+after, 0, len(lines))
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
