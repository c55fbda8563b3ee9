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
	"fmt"
	"strings"

	"github.com/elastic/elastic-agent-libs/config"
	ucfg "github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/yaml"
)

var (
	configFile      = defaultConfigFile
	configOverrides []string
)

// Config holds the process-level configuration. Everything else in the
// raw configuration is passed on to the Runner.
type Config struct {
	Logging  *config.C `config:"logging"`
	Database struct {
		DSN string `config:"dsn"`
	} `config:"database"`
}

type loadConfigOptions struct {
	disableConfigResolution bool
	mergeConfig             []*config.C
}

// LoadConfigOption is an option for controlling LoadConfig behaviour.
type LoadConfigOption func(*loadConfigOptions)

// LoadConfig loads the processor configuration from the file given with -c,
// applying any -E overrides.
func LoadConfig(opts ...LoadConfigOption) (*Config, *config.C, error) {
	var loadConfigOptions loadConfigOptions
	for _, opt := range opts {
		opt(&loadConfigOptions)
	}

	configOpts := []ucfg.Option{ucfg.PathSep(".")}
	if loadConfigOptions.disableConfigResolution {
		configOpts = append(configOpts, ucfg.ResolveNOOP)
	} else {
		configOpts = append(configOpts, ucfg.ResolveEnv, ucfg.VarExp)
	}
	config.OverwriteConfigOpts(configOpts)

	cfg, err := loadFile(configFile, configOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config file: %w", err)
	}
	for _, mc := range loadConfigOptions.mergeConfig {
		if err := cfg.Merge(mc); err != nil {
			return nil, nil, fmt.Errorf("error merging config: %w", err)
		}
	}
	for _, override := range configOverrides {
		oc, err := parseOverride(override)
		if err != nil {
			return nil, nil, err
		}
		if err := cfg.Merge(oc); err != nil {
			return nil, nil, fmt.Errorf("error merging -E %s: %w", override, err)
		}
	}

	var config Config
	if err := cfg.Unpack(&config); err != nil {
		return nil, nil, fmt.Errorf("error unpacking config data: %w", err)
	}
	return &config, cfg, nil
}

func loadFile(path string, opts []ucfg.Option) (*config.C, error) {
	c, err := yaml.NewConfigWithFile(path, opts...)
	if err != nil {
		return nil, err
	}
	return (*config.C)(c), nil
}

// parseOverride parses a key=value setting. The value is parsed as YAML,
// so numbers, booleans and lists keep their types.
func parseOverride(s string) (*config.C, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return nil, fmt.Errorf("invalid -E setting %q, expected key=value", s)
	}
	cfg, err := config.NewConfigWithYAML([]byte(key+": "+value), "command line flag")
	if err != nil {
		return nil, fmt.Errorf("invalid -E setting %q: %w", s, err)
	}
	return cfg, nil
}

// WithDisableConfigResolution returns a LoadConfigOption
// that disables resolution of variables.
func WithDisableConfigResolution() LoadConfigOption {
	return func(opts *loadConfigOptions) {
		opts.disableConfigResolution = true
	}
}

// WithMergeConfig returns a LoadConfigOption that merges
// the given config.C objects into the raw configuration.
func WithMergeConfig(cfg ...*config.C) LoadConfigOption {
	return func(opts *loadConfigOptions) {
		opts.mergeConfig = cfg
	}
}
