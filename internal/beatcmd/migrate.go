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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tracewell/processor/internal/storage/postgres"
)

// migrator is the subset of postgres.Migrator used by the migrate commands.
type migrator interface {
	Up(context.Context) error
	Status(context.Context) error
	Down(ctx context.Context, targetVersion int64) error
}

var newMigrator = func(dsn string) (migrator, error) {
	return postgres.NewMigrator(dsn)
}

func genMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, m migrator, _ []string) error {
				return m.Up(ctx)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(ctx context.Context, m migrator, _ []string) error {
				return m.Status(ctx)
			}),
		},
		&cobra.Command{
			Use:   "down [version]",
			Short: "Roll back the latest migration, or all migrations above version",
			Args:  cobra.MaximumNArgs(1),
			RunE: withMigrator(func(ctx context.Context, m migrator, args []string) error {
				var version int64
				if len(args) == 1 {
					v, err := strconv.ParseInt(args[0], 10, 64)
					if err != nil || v <= 0 {
						return fmt.Errorf("invalid migration version %q", args[0])
					}
					version = v
				}
				return m.Down(ctx, version)
			}),
		},
	)
	return migrateCmd
}

func withMigrator(f func(context.Context, migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, _, err := LoadConfig()
		if err != nil {
			return err
		}
		if err := configureLogging(cfg); err != nil {
			return fmt.Errorf("error initializing logging: %w", err)
		}
		m, err := newMigrator(cfg.Database.DSN)
		if err != nil {
			return err
		}
		return f(cmdContext(cmd), m, args)
	}
}
