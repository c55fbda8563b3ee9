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

package beatcmd

import (
	"strings"

	"github.com/elastic/elastic-agent-libs/logp"
)

// loggingFlags holds the logging-related command line flags.
type loggingFlags struct {
	verbose        bool
	stderr         bool
	debugSelectors []string
	environment    logpEnvironmentVar
}

var (
	logFlags   loggingFlags
	logOptions []logp.Option
)

// buildLoggingConfig returns the logp configuration for the processor,
// starting from the environment defaults, then applying the logging.*
// settings, then applying the command line flags.
func buildLoggingConfig(cfg *Config, flags loggingFlags, opts ...logp.Option) (logp.Config, error) {
	logpConfig := logp.DefaultConfig(flags.environment.env)
	logpConfig.Beat = "tracewell-processor"
	if cfg.Logging != nil {
		if err := cfg.Logging.Unpack(&logpConfig); err != nil {
			return logpConfig, err
		}
	}

	if logpConfig.Level > logp.InfoLevel && flags.verbose {
		logpConfig.Level = logp.InfoLevel
	}
	if len(flags.debugSelectors) > 0 {
		for _, selectors := range flags.debugSelectors {
			logpConfig.Selectors = append(logpConfig.Selectors, strings.Split(selectors, ",")...)
		}
		logpConfig.Level = logp.DebugLevel
	}
	if flags.stderr {
		logpConfig.ToStderr = true
		logpConfig.ToFiles = false
	}
	for _, opt := range opts {
		opt(&logpConfig)
	}
	return logpConfig, nil
}

func configureLogging(cfg *Config) error {
	logpConfig, err := buildLoggingConfig(cfg, logFlags, logOptions...)
	if err != nil {
		return err
	}
	return logp.Configure(logpConfig)
}
