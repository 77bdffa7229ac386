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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/restcore"
	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/system"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type note struct {
	bun.BaseModel `bun:"table:notes,alias:n"`

	ID    int64  `bun:"id,pk,autoincrement" json:"id"`
	Title string `bun:"title,notnull" json:"title" validate:"required"`
	Tag   string `bun:"tag" json:"tag"`
}

type fixture struct {
	app     *fiber.App
	db      *bun.DB
	options *system.OptionStore
	reg     *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sqlDB, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	system.Register()
	database.RegisteredModel(database.NewModelAdapter((*note)(nil), 100))
	require.NoError(t, database.NewMigrationManager(db, database.NopLogger{}).RunMigrations(context.Background()))

	options := system.NewOptionStore(db)
	reg := prometheus.NewRegistry()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app, err := NewApp(AppConfig{
		Options:  options,
		Registry: reg,
		Health:   db.PingContext,
		Logger:   logger,
	})
	require.NoError(t, err)

	svc := restcore.NewService[note](db, restcore.WithLogger[note](database.NopLogger{}))
	NewController(svc).Register(app, "/notes")
	return &fixture{app: app, db: db, options: options, reg: reg}
}

func (f *fixture) do(t *testing.T, method, target, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestControllerCrud(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/notes", `{"title":"first","tag":"a"}`)
	require.Equal(t, http.StatusCreated, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["id"])

	status, body = f.do(t, http.MethodGet, "/notes/1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "first", body["data"].(map[string]any)["title"])

	status, _ = f.do(t, http.MethodPut, "/notes/1", `{"title":"renamed","tag":"b"}`)
	require.Equal(t, http.StatusOK, status)
	_, body = f.do(t, http.MethodGet, "/notes/1", "")
	assert.Equal(t, "renamed", body["data"].(map[string]any)["title"])

	status, _ = f.do(t, http.MethodDelete, "/notes/1", "")
	require.Equal(t, http.StatusOK, status)

	status, body = f.do(t, http.MethodGet, "/notes/1", "")
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}

func TestControllerIndex(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		status, _ := f.do(t, http.MethodPost, "/notes", fmt.Sprintf(`{"title":"t%d","tag":"%s"}`, i, []string{"x", "y"}[i%2]))
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := f.do(t, http.MethodGet, "/notes?tag=y&tag=x&per_page=2&sort_by=title:asc", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["per_page"])
	assert.Equal(t, float64(1), body["page"])
	items := body["data"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "t0", items[0].(map[string]any)["title"])

	status, body = f.do(t, http.MethodGet, "/notes?title:search=t1", "")
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", body["error"].(map[string]any)["code"])
}

func TestControllerErrors(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/notes", `{"tag":"a"}`)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])
	assert.Contains(t, body["errors"], "title")

	status, _ = f.do(t, http.MethodPost, "/notes", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = f.do(t, http.MethodGet, "/notes/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"].(map[string]any)["message"], "invalid")

	status, _ = f.do(t, http.MethodPut, "/notes/77", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("password=secret") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(raw), "secret")
	assert.Contains(t, string(raw), "INTERNAL_ERROR")
}

func TestMaintenance(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.options.Set(context.Background(), system.OptionMaintenance, "1"))

	status, body := f.do(t, http.MethodGet, "/notes", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "SERVICE_UNAVAILABLE", body["error"].(map[string]any)["code"])

	status, _ = f.do(t, http.MethodGet, HealthPath, "")
	assert.Equal(t, http.StatusOK, status)

	require.NoError(t, f.options.Set(context.Background(), system.OptionMaintenance, "0"))
	status, _ = f.do(t, http.MethodGet, "/notes", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestRequestID(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.Header.Get(RequestIDHeader))

	resp, err = f.app.Test(httptest.NewRequest(http.MethodGet, "/notes", nil), -1)
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/notes", "")
	f.do(t, http.MethodGet, "/notes/9", "")

	okCount, err := testutil.GatherAndCount(f.reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, okCount)

	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, MetricsPath, nil), -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `http_requests_total{method="GET",path="/notes/:id",status="404"} 1`)
	assert.Contains(t, string(raw), `http_requests_total{method="GET",path="/notes",status="200"} 1`)
}
