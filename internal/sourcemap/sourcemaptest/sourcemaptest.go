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

// Package sourcemaptest builds source maps for tests.
package sourcemaptest

import (
	"encoding/json"
	"sort"
	"strings"
)

const base64Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Mapping maps a generated position to an original one. Lines are 1-based,
// columns are 0-based. Name is optional.
type Mapping struct {
	GenLine   int
	GenColumn int
	Source    string
	Line      int
	Column    int
	Name      string
}

// Build returns a version 3 source map holding mappings. contents maps
// source file names to their embedded content.
func Build(file string, mappings []Mapping, contents map[string]string) []byte {
	sorted := make([]Mapping, len(mappings))
	copy(sorted, mappings)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].GenLine != sorted[j].GenLine {
			return sorted[i].GenLine < sorted[j].GenLine
		}
		return sorted[i].GenColumn < sorted[j].GenColumn
	})

	sources := []string{}
	sourceIndex := map[string]int{}
	names := []string{}
	nameIndex := map[string]int{}
	for _, m := range sorted {
		if _, ok := sourceIndex[m.Source]; !ok {
			sourceIndex[m.Source] = len(sources)
			sources = append(sources, m.Source)
		}
		if _, ok := nameIndex[m.Name]; m.Name != "" && !ok {
			nameIndex[m.Name] = len(names)
			names = append(names, m.Name)
		}
	}

	var sb strings.Builder
	var prevSource, prevLine, prevColumn, prevName int
	genLine := 1
	for i, m := range sorted {
		prevGenColumn := 0
		if i > 0 && sorted[i-1].GenLine == m.GenLine {
			prevGenColumn = sorted[i-1].GenColumn
			sb.WriteByte(',')
		}
		for ; genLine < m.GenLine; genLine++ {
			sb.WriteByte(';')
		}
		sb.WriteString(vlq(m.GenColumn - prevGenColumn))
		sb.WriteString(vlq(sourceIndex[m.Source] - prevSource))
		sb.WriteString(vlq(m.Line - 1 - prevLine))
		sb.WriteString(vlq(m.Column - prevColumn))
		prevSource, prevLine, prevColumn = sourceIndex[m.Source], m.Line-1, m.Column
		if m.Name != "" {
			sb.WriteString(vlq(nameIndex[m.Name] - prevName))
			prevName = nameIndex[m.Name]
		}
	}

	sourcesContent := make([]*string, len(sources))
	for i, source := range sources {
		if content, ok := contents[source]; ok {
			sourcesContent[i] = &content
		}
	}

	out, err := json.Marshal(map[string]interface{}{
		"version":        3,
		"file":           file,
		"sources":        sources,
		"sourcesContent": sourcesContent,
		"names":          names,
		"mappings":       sb.String(),
	})
	if err != nil {
		panic(err)
	}
	return out
}

func vlq(v int) string {
	u := v << 1
	if v < 0 {
		u = (-v << 1) | 1
	}
	var sb strings.Builder
	for {
		digit := u & 31
		u >>= 5
		if u > 0 {
			digit |= 32
		}
		sb.WriteByte(base64Digits[digit])
		if u == 0 {
			return sb.String()
		}
	}
}
