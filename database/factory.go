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

package database

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tomoncle/restcore/utils"
	"github.com/uptrace/bun"
)

// supportedTypes lists the accepted ConnectionConfig.Type values.
var supportedTypes = map[string]struct{}{
	"mysql":      {},
	"postgres":   {},
	"postgresql": {},
	"pgx":        {},
	"sqlite":     {},
	"sqlite3":    {},
}

func supportedTypeNames() []string {
	names := make([]string, 0, len(supportedTypes))
	for name := range supportedTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// envBinding copies the variable env into a config field when it is set.
type envBinding struct {
	env   string
	apply func(cfg *ConnectionConfig, value string)
}

func intField(set func(*ConnectionConfig, int)) func(*ConnectionConfig, string) {
	return func(cfg *ConnectionConfig, value string) {
		if n, err := strconv.Atoi(value); err == nil {
			set(cfg, n)
		}
	}
}

var envBindings = []envBinding{
	{"DB_TYPE", func(c *ConnectionConfig, v string) { c.Type = v }},
	{"DB_HOST", func(c *ConnectionConfig, v string) { c.Host = v }},
	{"DB_PORT", intField(func(c *ConnectionConfig, n int) { c.Port = n })},
	{"DB_USERNAME", func(c *ConnectionConfig, v string) { c.Username = v }},
	{"DB_PASSWORD", func(c *ConnectionConfig, v string) { c.Password = v }},
	{"DB_NAME", func(c *ConnectionConfig, v string) { c.DBName = v }},
	{"DB_SSLMODE", func(c *ConnectionConfig, v string) { c.SSLMode = v }},
	{"DB_DSN", func(c *ConnectionConfig, v string) { c.DSN = v }},
	{"DB_MAX_IDLE_CONNS", intField(func(c *ConnectionConfig, n int) { c.MaxIdleConns = n })},
	{"DB_MAX_OPEN_CONNS", intField(func(c *ConnectionConfig, n int) { c.MaxOpenConns = n })},
	// seconds
	{"DB_CONN_MAX_LIFETIME", intField(func(c *ConnectionConfig, n int) { c.ConnMaxLifetime = time.Duration(n) * time.Second })},
}

// BaseDatabaseFactory owns the manager of the configured database.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
	reg     prometheus.Registerer
}

func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{logger: GetLogger()}
}

// CreateFromConfig applies the DB_* environment overrides to cfg and
// builds its manager.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	f.overrideFromEnv(cfg)

	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if _, ok := supportedTypes[cfg.Type]; !ok {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, supportedTypeNames())
	}

	manager := NewDatabaseManager(cfg)
	manager.SetLogger(f.logger)
	if f.reg != nil {
		manager.SetRegisterer(f.reg)
	}
	f.manager = manager
	return manager, nil
}

func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	for _, b := range envBindings {
		if value := os.Getenv(b.env); value != "" {
			b.apply(cfg, value)
		}
	}
	cfg.EnableQueryLog = utils.EnvDefaultBool("DB_ENABLE_QUERY_LOG", cfg.EnableQueryLog)
	cfg.EnableTracing = utils.EnvDefaultBool("DB_ENABLE_TRACING", cfg.EnableTracing)
	cfg.EnableMetrics = utils.EnvDefaultBool("DB_ENABLE_METRICS", cfg.EnableMetrics)
	cfg.SlowQueryTime = utils.EnvDefaultDuration("DB_SLOW_QUERY_TIME", cfg.SlowQueryTime)
}

// InitializeDatabase connects and, when asked, runs the migrations.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, runMigrations bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if runMigrations {
		if err := f.manager.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	f.logger.Info("Database initialized", "migrations", runMigrations)
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns nil until a manager exists.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// SetRegisterer sets the registerer handed to managers created afterwards.
func (f *BaseDatabaseFactory) SetRegisterer(reg prometheus.Registerer) {
	f.reg = reg
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{LastError: "Database manager not initialized", LastCheckTime: time.Now()}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
