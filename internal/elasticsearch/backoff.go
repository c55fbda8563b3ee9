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

package elasticsearch

import "time"

type backoffFunc func(int) time.Duration

// BackoffConfig holds the bounds of the exponential retry backoff.
type BackoffConfig struct {
	Init time.Duration `config:"init"`
	Max  time.Duration `config:"max"`
}

// DefaultBackoffConfig is the default backoff configuration used for
// es clients.
var DefaultBackoffConfig = BackoffConfig{
	Init: time.Second,
	Max:  time.Minute,
}

func exponentialBackoff(b BackoffConfig) backoffFunc {
	return func(attempts int) time.Duration {
		// Attempts starts at 1, after there's already been a failure.
		if attempts > 32 {
			return b.Max
		}
		next := b.Init * (1 << (attempts - 1))
		if next > b.Max || next <= 0 {
			next = b.Max
		}
		return next
	}
}
