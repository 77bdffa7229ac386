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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.ConnectionConfig.Type)
	assert.Equal(t, "restcore", cfg.Database.ConnectionConfig.DBName)
	assert.Equal(t, time.Hour, cfg.Database.ConnectionConfig.ConnMaxLifetime)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.True(t, cfg.Server.Metrics)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "restcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  connection:
    type: postgres
    host: db.local
    port: 5432
    slow_query_time: 500ms
  migrate:
    enable_migrate_on_startup: true
server:
  address: ":9000"
resources: resources.yaml
`), 0o600))
	t.Setenv("RESTCORE_DATABASE_CONNECTION_HOST", "env.local")
	t.Setenv("RESTCORE_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	c := cfg.Database.ConnectionConfig
	assert.Equal(t, "postgres", c.Type)
	assert.Equal(t, "env.local", c.Host)
	assert.Equal(t, 5432, c.Port)
	assert.Equal(t, 500*time.Millisecond, c.SlowQueryTime)
	assert.True(t, cfg.Database.DataMigrateConfig.EnableMigrateOnStartup)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "resources.yaml", cfg.Resources)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RESTCORE_SERVER_ADDRESS=:7000\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("RESTCORE_SERVER_ADDRESS") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Address)
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
