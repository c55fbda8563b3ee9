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

	"github.com/spf13/cobra"

	"github.com/elastic/elastic-agent-libs/logp"
)

const defaultConfigFile = "processor.yml"

// ProcessorParams holds parameters for NewRootCommand.
type ProcessorParams struct {
	// NewRunner is used by the run command to create the Runner that
	// processes events until the process is signalled to stop.
	NewRunner NewRunnerFunc
}

// NewRootCommand returns the root command for the processor.
//
// NewRootCommand takes a ProcessorParams, which will be passed to
// commands that must create an instance of the processor.
func NewRootCommand(params ProcessorParams) *cobra.Command {
	// root command is an alias for "run"
	runCommand := genRunCmd(params)
	rootCommand := &cobra.Command{
		Use:  "tracewell-processor",
		RunE: runCommand.RunE,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCommand.Flags().AddFlagSet(runCommand.Flags())

	// Configuration flags are relevant to all commands.
	rootCommand.PersistentFlags().StringVarP(&configFile, "c", "c", defaultConfigFile, "Configuration file")
	rootCommand.PersistentFlags().StringArrayVarP(&configOverrides, "E", "E", nil, "Configuration overwrite, as key=value")

	// Add logging-related flags to all commands.
	rootCommand.PersistentFlags().BoolVarP(&logFlags.verbose, "v", "v", false, "Log at INFO level")
	rootCommand.PersistentFlags().BoolVarP(&logFlags.stderr, "e", "e", false, "Log to stderr and disable file output")
	rootCommand.PersistentFlags().StringArrayVarP(&logFlags.debugSelectors, "d", "d", nil, "Enable certain debug selectors")
	rootCommand.PersistentFlags().Var(&logFlags.environment, "environment", "Set the environment in which the process is running")

	// Register subcommands.
	rootCommand.AddCommand(runCommand)
	rootCommand.AddCommand(genMigrateCmd())
	rootCommand.AddCommand(versionCommand)

	return rootCommand
}

type logpEnvironmentVar struct {
	env logp.Environment
}

func (v *logpEnvironmentVar) Set(in string) error {
	env := logp.ParseEnvironment(in)
	if env == logp.InvalidEnvironment {
		return fmt.Errorf("invalid logging environment: %q", in)
	}
	v.env = env
	return nil
}

func (v *logpEnvironmentVar) Type() string {
	return "string"
}

func (v *logpEnvironmentVar) String() string {
	return v.env.String()
}
