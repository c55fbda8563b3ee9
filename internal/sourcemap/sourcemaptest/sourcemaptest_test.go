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

package sourcemaptest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVLQ(t *testing.T) {
	assert.Equal(t, "A", vlq(0))
	assert.Equal(t, "C", vlq(1))
	assert.Equal(t, "D", vlq(-1))
	assert.Equal(t, "O", vlq(7))
	assert.Equal(t, "yC", vlq(41))
	assert.Equal(t, "0O", vlq(234))
}

func TestBuild(t *testing.T) {
	out := Build("bundle.min.js", []Mapping{
		{GenLine: 1, GenColumn: 234, Source: "src/app.ts", Line: 42, Column: 7, Name: "handleClick"},
	}, map[string]string{"src/app.ts": "x"})
	assert.JSONEq(t, `{
		"version": 3,
		"file": "bundle.min.js",
		"sources": ["src/app.ts"],
		"sourcesContent": ["x"],
		"names": ["handleClick"],
		"mappings": "0OAyCOA"
	}`, string(out))
}
