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
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/tomoncle/restcore"
	"github.com/tomoncle/restcore/audit"
	"github.com/tomoncle/restcore/config"
	"github.com/tomoncle/restcore/controller"
	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/query"
	"github.com/tomoncle/restcore/system"
	"github.com/tomoncle/restcore/utils"
	"github.com/uptrace/bun"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the system resources over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var reg *prometheus.Registry
			if o.cfg.Server.Metrics {
				reg = prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			}
			var dbReg prometheus.Registerer
			if reg != nil {
				dbReg = reg
			}
			db, err := o.openDB(false, dbReg)
			if err != nil {
				return err
			}
			app, err := buildApp(o.cfg, db, reg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			errCh := make(chan error, 1)
			go func() { errCh <- app.Listen(o.cfg.Server.Address) }()

			logger := database.NewNamedLogger("SERVER")
			logger.Info("Server started", "address", o.cfg.Server.Address)
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			logger.Info("Server shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		},
	}
}

// buildApp mounts the system options, service keys and audit logs.
func buildApp(cfg *config.Config, db *bun.DB, reg *prometheus.Registry) (*fiber.App, error) {
	specs := map[string]query.ResourceSpec{}
	if cfg.Resources != "" {
		var err error
		if specs, err = query.LoadResourceSpecs(cfg.Resources); err != nil {
			return nil, err
		}
	}

	options := system.NewOptionStore(db)
	auditLogger := audit.NewDBLogger(db, options)
	app, err := controller.NewApp(controller.AppConfig{
		Options:  options,
		Registry: reg,
		Health:   health,
		Logger:   utils.NewLogger("HTTP"),
		Tracing:  cfg.Server.Tracing,
	})
	if err != nil {
		return nil, err
	}

	api := app.Group("/api")
	controller.NewController(restcore.NewService[system.Option](db,
		serviceOptions[system.Option]("system", specs, auditLogger)...,
	)).Register(api, "/system")
	controller.NewController(restcore.NewService[system.ServiceKey](db,
		append(serviceOptions[system.ServiceKey]("services_keys", specs, auditLogger), restcore.WithGeneratedID[system.ServiceKey]())...,
	)).Register(api, "/services-keys")
	controller.NewController(restcore.NewService[audit.Log](db,
		serviceOptions[audit.Log]("logs", specs, audit.NopLogger{})...,
	)).Register(api, "/logs")
	return app, nil
}

func serviceOptions[T any](name string, specs map[string]query.ResourceSpec, logger audit.Logger) []restcore.ServiceOption[T] {
	opts := []restcore.ServiceOption[T]{
		restcore.WithName[T](name),
		restcore.WithAuditLogger[T](logger),
	}
	if spec, ok := specs[name]; ok {
		opts = append(opts, restcore.WithResourceSpec[T](spec))
	}
	return opts
}

func health(ctx context.Context) error {
	if status := database.GetHealthStatus(ctx); !status.Healthy {
		return errors.New(status.LastError)
	}
	return nil
}
