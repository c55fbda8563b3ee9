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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elastic/elastic-agent-libs/config"
	"github.com/elastic/elastic-agent-libs/logp"
)

// NewRunnerFunc is a function type that constructs a new Runner with the given
// parameters.
type NewRunnerFunc func(RunnerParams) (Runner, error)

// RunnerParams holds parameters that will be passed to NewRunnerFunc.
type RunnerParams struct {
	// Config holds the full, raw, configuration.
	Config *config.C

	// Logger holds a logger to use for logging throughout the processor.
	Logger *logp.Logger
}

// Runner is an interface returned by NewRunnerFunc.
type Runner interface {
	// Run runs until its context is cancelled.
	Run(context.Context) error
}

func genRunCmd(params ProcessorParams) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the processor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, rawConfig, err := LoadConfig()
			if err != nil {
				return err
			}
			if err := configureLogging(cfg); err != nil {
				return fmt.Errorf("error initializing logging: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, params.NewRunner, rawConfig)
		},
	}
}

func run(ctx context.Context, newRunner NewRunnerFunc, rawConfig *config.C) (err error) {
	defer logp.Sync()
	logger := logp.NewLogger("")
	defer func() {
		if r := recover(); r != nil {
			logger.Fatalw("exiting due to panic",
				"panic", r,
				zap.Stack("stack"),
			)
		}
	}()

	runner, err := newRunner(RunnerParams{
		Config: rawConfig,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	if err := runner.Run(ctx); err != nil {
		logger.Errorw("processor exited with error", logp.Error(err))
		return err
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
