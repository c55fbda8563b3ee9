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
	"strings"
	"sync"
	"time"

	"github.com/go-sourcemap/sourcemap"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/tracewell/processor/internal/logs"
)

const errMsgParseSourcemap = "Could not parse Sourcemap"

// ErrEmptySourcemap is returned by Decode for empty input.
var ErrEmptySourcemap = errors.New("empty sourcemap")

// Artifact is a decoded source map. An Artifact is owned by the call that
// decoded it and must be released with Close once it is no longer needed;
// after Close every lookup behaves as if the map had no mappings.
type Artifact struct {
	consumer *sourcemap.Consumer

	// firstColumns holds the first mapped column of each generated line,
	// or -1 for lines without mappings.
	firstColumns []int
}

// Decode decodes a source map.
func Decode(data []byte) (*Artifact, error) {
	if len(data) == 0 {
		return nil, ErrEmptySourcemap
	}
	consumer, err := sourcemap.Parse("", data)
	if err != nil {
		return nil, errors.Wrap(err, errMsgParseSourcemap)
	}
	var raw struct {
		Mappings string `json:"mappings"`
	}
	if err := jsoniter.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errMsgParseSourcemap)
	}
	firstColumns, err := mappedLineStarts(raw.Mappings)
	if err != nil {
		return nil, errors.Wrap(err, errMsgParseSourcemap)
	}
	return &Artifact{consumer: consumer, firstColumns: firstColumns}, nil
}

// Close releases the decoded mappings. Close is idempotent.
func (a *Artifact) Close() error {
	if a != nil {
		a.consumer = nil
	}
	return nil
}

func (a *Artifact) source(line, col int) (file, function string, l, c int, ok bool) {
	if a == nil || a.consumer == nil {
		return "", "", 0, 0, false
	}
	// The consumer falls back to the closest preceding mapping, even one
	// on an earlier generated line. A position before the first mapping of
	// its own line has no mapping.
	if line < 1 || line > len(a.firstColumns) {
		return "", "", 0, 0, false
	}
	if first := a.firstColumns[line-1]; first < 0 || col < first {
		return "", "", 0, 0, false
	}
	return a.consumer.Source(line, col)
}

// mappedLineStarts returns the first column of every generated line of
// mappings that maps to a source, or -1 for lines with no such segment.
func mappedLineStarts(mappings string) ([]int, error) {
	lines := strings.Split(mappings, ";")
	starts := make([]int, len(lines))
	for i, line := range lines {
		starts[i] = -1
		col := 0
		for _, segment := range strings.Split(line, ",") {
			if segment == "" {
				continue
			}
			fields, err := decodeVLQ(segment)
			if err != nil {
				return nil, err
			}
			col += fields[0]
			// Single-field segments have no source.
			if len(fields) >= 4 && starts[i] < 0 {
				starts[i] = col
			}
		}
	}
	return starts, nil
}

const vlqBase64Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

func decodeVLQ(segment string) ([]int, error) {
	var fields []int
	var value, shift int
	for i := 0; i < len(segment); i++ {
		digit := strings.IndexByte(vlqBase64Digits, segment[i])
		if digit < 0 {
			return nil, errors.Errorf("invalid mapping segment %q", segment)
		}
		value += (digit & 31) << shift
		if digit&32 != 0 {
			shift += 5
			continue
		}
		if value&1 != 0 {
			fields = append(fields, -(value >> 1))
		} else {
			fields = append(fields, value>>1)
		}
		value, shift = 0, 0
	}
	if shift != 0 {
		return nil, errors.Errorf("invalid mapping segment %q", segment)
	}
	return fields, nil
}

func (a *Artifact) sourceContent(file string) string {
	if a == nil || a.consumer == nil {
		return ""
	}
	return a.consumer.SourceContent(file)
}

func getLogger() *logp.Logger {
	loggerOnce.Do(func() {
		// Missing source content is reported once per frame; rate limit
		// to avoid flooding the logs with a single broken bundle.
		logger = logp.NewLogger(logs.Sourcemap, logs.WithRateLimit(time.Minute))
	})
	return logger
}

var (
	loggerOnce sync.Once
	logger     *logp.Logger
)
