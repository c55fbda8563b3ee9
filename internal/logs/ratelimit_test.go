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

package logs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elastic/elastic-agent-libs/logp"
)

func TestWithRateLimit(t *testing.T) {
	require.NoError(t, logp.DevelopmentSetup(logp.ToObserverOutput()))

	logger := logp.NewLogger("ratelimit-test", WithRateLimit(time.Minute))
	for i := 0; i < 5; i++ {
		logger.Warn("source map not found")
	}
	logger.Warn("a different message")

	entries := logp.ObserverLogs().TakeAll()
	require.Len(t, entries, 2)
	assert.Equal(t, "source map not found", entries[0].Message)
	assert.Equal(t, "a different message", entries[1].Message)
}
