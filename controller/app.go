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

package controller

import (
	"context"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	MetricsPath = "/metrics"
	HealthPath  = "/health"
)

// AppConfig wires the shared middlewares of NewApp. Nil fields disable
// the matching feature.
type AppConfig struct {
	// Options switches the maintenance mode.
	Options OptionChecker
	// Registry receives the HTTP metrics and is served on MetricsPath.
	Registry *prometheus.Registry
	// Health is called by HealthPath.
	Health  func(ctx context.Context) error
	Logger  *logrus.Logger
	Tracing bool
}

// NewApp returns a fiber app with the error handler and the middlewares
// installed, ready for Controller.Register.
func NewApp(cfg AppConfig) (*fiber.App, error) {
	if cfg.Logger == nil {
		cfg.Logger = utils.NewLogger("HTTP")
	}
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler(database.NewNamedLogger("HTTP")),
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(RequestID())
	if cfg.Tracing {
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		app.Use(otelfiber.Middleware())
	}
	if cfg.Registry != nil {
		m, err := NewMetrics(cfg.Registry, MetricsPath)
		if err != nil {
			return nil, err
		}
		app.Use(m.Handler())
		app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}
	app.Use(RequestLogger(cfg.Logger))

	if cfg.Health != nil {
		app.Get(HealthPath, func(c *fiber.Ctx) error {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := cfg.Health(ctx); err != nil {
				return fiber.NewError(fiber.StatusServiceUnavailable, "dependency unavailable")
			}
			return c.JSON(fiber.Map{"status": "healthy"})
		})
	}
	if cfg.Options != nil {
		app.Use(Maintenance(cfg.Options, MetricsPath, HealthPath))
	}
	return app, nil
}
