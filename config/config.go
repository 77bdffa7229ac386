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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/utils"
)

// EnvPrefix prefixes every environment override, e.g.
// RESTCORE_DATABASE_CONNECTION_HOST for database.connection.host.
const EnvPrefix = "RESTCORE"

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Metrics bool   `mapstructure:"metrics"`
	Tracing bool   `mapstructure:"tracing"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// Config is the application configuration.
type Config struct {
	Database database.Config `mapstructure:"database"`
	Server   ServerConfig    `mapstructure:"server"`
	Log      LogConfig       `mapstructure:"log"`
	// Resources is the path of the resource list specs, see
	// query.LoadResourceSpecs.
	Resources string `mapstructure:"resources"`
}

func Default() *Config {
	return &Config{
		Database: database.Config{ConnectionConfig: *database.DefaultConnectionConfig()},
		Server:   ServerConfig{Address: ":8080", Metrics: true},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	c := cfg.Database.ConnectionConfig
	v.SetDefault("database.connection.type", c.Type)
	v.SetDefault("database.connection.host", c.Host)
	v.SetDefault("database.connection.port", c.Port)
	v.SetDefault("database.connection.username", c.Username)
	v.SetDefault("database.connection.password", c.Password)
	v.SetDefault("database.connection.dbname", c.DBName)
	v.SetDefault("database.connection.sslmode", c.SSLMode)
	v.SetDefault("database.connection.dsn", c.DSN)
	v.SetDefault("database.connection.max_idle_conns", c.MaxIdleConns)
	v.SetDefault("database.connection.max_open_conns", c.MaxOpenConns)
	v.SetDefault("database.connection.conn_max_lifetime", c.ConnMaxLifetime)
	v.SetDefault("database.connection.conn_max_idle_time", c.ConnMaxIdleTime)
	v.SetDefault("database.connection.connect_timeout", c.ConnectTimeout)
	v.SetDefault("database.connection.read_timeout", c.ReadTimeout)
	v.SetDefault("database.connection.write_timeout", c.WriteTimeout)
	v.SetDefault("database.connection.enable_query_log", c.EnableQueryLog)
	v.SetDefault("database.connection.slow_query_time", c.SlowQueryTime)
	v.SetDefault("database.connection.enable_tracing", c.EnableTracing)
	v.SetDefault("database.connection.enable_metrics", c.EnableMetrics)

	v.SetDefault("database.migrate.enable_migrate_on_startup", cfg.Database.DataMigrateConfig.EnableMigrateOnStartup)

	v.SetDefault("server.address", cfg.Server.Address)
	v.SetDefault("server.metrics", cfg.Server.Metrics)
	v.SetDefault("server.tracing", cfg.Server.Tracing)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("resources", cfg.Resources)
}

// Load reads the configuration: defaults, then the optional file at path
// (any format viper knows), then RESTCORE_* variables. The dotenv files are
// loaded first without overriding the environment; when none is given,
// ./.env is used if it exists.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env files: %w", err)
		}
	}

	cfg := Default()
	v := viper.New()
	setDefaults(v, cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// ApplyLogging installs the log level and format on every logger.
func (c *Config) ApplyLogging() {
	utils.ConfigureLogLevel(c.Log.Level)
	utils.ConfigureConsoleLogFormat(c.Log.Format)
}
