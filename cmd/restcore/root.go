/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tomoncle/restcore/audit"
	"github.com/tomoncle/restcore/config"
	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/system"
	"github.com/uptrace/bun"
)

type rootOptions struct {
	configPath string
	envFiles   []string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "restcore",
		Short:         "REST resources over SQL with filterable listings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.configPath, o.envFiles...)
			if err != nil {
				return err
			}
			cfg.ApplyLogging()
			o.cfg = cfg
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return database.CloseDB()
		},
	}
	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().StringSliceVar(&o.envFiles, "env-file", nil, "dotenv files loaded before the config (default ./.env)")

	cmd.AddCommand(
		newMigrateCmd(o),
		newSetupSystemCmd(o),
		newAddServiceKeyCmd(o),
		newUpdateServiceKeyCmd(o),
		newUpdateOptionCmd(o),
		newServeCmd(o),
	)
	return cmd
}

// openDB registers the built-in tables and connects. Migrations run when
// migrate is set or the config asks for them on startup.
func (o *rootOptions) openDB(migrate bool, reg prometheus.Registerer) (*bun.DB, error) {
	system.Register()
	audit.Register()
	runMigrations := migrate || o.cfg.Database.DataMigrateConfig.EnableMigrateOnStartup
	var regs []prometheus.Registerer
	if reg != nil {
		regs = append(regs, reg)
	}
	db, err := database.InitDatabaseWithOptions(&o.cfg.Database, runMigrations, regs...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func newMigrateCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables and run pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := o.openDB(true, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSetupSystemCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup-system",
		Short: "Create the system tables and insert the default options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := o.openDB(true, nil)
			if err != nil {
				return err
			}
			if err := system.NewOptionStore(db).Seed(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "system options ready")
			return nil
		},
	}
}

func newAddServiceKeyCmd(o *rootOptions) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "add-service-key <suffix>",
		Short: "Issue a service key for suffix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := o.openDB(false, nil)
			if err != nil {
				return err
			}
			sk, err := system.NewKeyStore(db).Add(cmd.Context(), args[0], key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "service key %s added for %s\n", sk.ID, sk.Suffix)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "key to store, a random UUID when empty")
	return cmd
}

func newUpdateServiceKeyCmd(o *rootOptions) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "update-service-key <suffix>",
		Short: "Move an existing service key to suffix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := o.openDB(false, nil)
			if err != nil {
				return err
			}
			sk, err := system.NewKeyStore(db).UpdateSuffix(cmd.Context(), key, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "service key %s moved to %s\n", sk.ID, sk.Suffix)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "key to update")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newUpdateOptionCmd(o *rootOptions) *cobra.Command {
	var option, value string
	cmd := &cobra.Command{
		Use:   "update-option-system",
		Short: "Change the value of a system option",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := o.openDB(false, nil)
			if err != nil {
				return err
			}
			if err := system.NewOptionStore(db).Set(cmd.Context(), option, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "option %s set to %q\n", option, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&option, "option", "", "option name")
	cmd.Flags().StringVar(&value, "value", "", "new value")
	_ = cmd.MarkFlagRequired("option")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}
