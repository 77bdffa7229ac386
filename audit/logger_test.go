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

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/system"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func migratedDB(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	system.Register()
	Register()
	require.NoError(t, database.NewMigrationManager(db, database.NopLogger{}).RunMigrations(context.Background()))
	return db
}

func TestAction(t *testing.T) {
	assert.Equal(t, "store", ActionStore.String())
	assert.Equal(t, 3, ActionDelete.Number())
	assert.False(t, Action(9).IsValid())
	assert.Equal(t, -1, Action(9).Number())

	a, ok := ParseAction("update")
	assert.True(t, ok)
	assert.Equal(t, ActionUpdate, a)
	_, ok = ParseAction("purge")
	assert.False(t, ok)

	a, ok = ActionOf(1)
	assert.True(t, ok)
	assert.Equal(t, ActionStore, a)
	_, ok = ActionOf(0)
	assert.False(t, ok)
}

type widget struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestDBLoggerWrite(t *testing.T) {
	db := migratedDB(t)
	ctx := context.Background()
	logger := NewDBLogger(db, system.NewOptionStore(db))
	logger.SetUser(map[string]string{"name": "admin"})

	require.NoError(t, logger.Write(ctx, Entry{
		Action:  ActionUpdate,
		Table:   "widgets",
		RowID:   7,
		Service: "widgets",
		Old:     widget{ID: 7, Name: "old"},
		New:     widget{ID: 7, Name: "new"},
	}))
	require.NoError(t, logger.Write(WithUser(ctx, "alice"), Entry{
		Action: ActionDelete, Table: "widgets", RowID: 8, Service: "widgets",
		Old: widget{ID: 8, Name: "gone"},
	}))

	var rows []Log
	require.NoError(t, db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx))
	require.Len(t, rows, 2)

	assert.Equal(t, "update", rows[0].Type)
	assert.Equal(t, "7", rows[0].RowID)
	var old, updated widget
	require.NoError(t, rows[0].OldData.Decode(&old))
	require.NoError(t, rows[0].NewData.Decode(&updated))
	assert.Equal(t, "old", old.Name)
	assert.Equal(t, "new", updated.Name)
	assert.JSONEq(t, `{"name":"admin"}`, string(rows[0].User))

	assert.Equal(t, "delete", rows[1].Type)
	assert.Nil(t, rows[1].NewData)
	assert.JSONEq(t, `"alice"`, string(rows[1].User))
}

func TestDBLoggerDisabled(t *testing.T) {
	db := migratedDB(t)
	ctx := context.Background()
	options := system.NewOptionStore(db)
	require.NoError(t, options.Set(ctx, system.OptionLogger, "0"))

	logger := NewDBLogger(db, options)
	require.NoError(t, logger.Write(ctx, Entry{Action: ActionStore, Table: "widgets", RowID: 1, New: widget{ID: 1}}))

	n, err := db.NewSelect().Model((*Log)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDBLoggerInvalidAction(t *testing.T) {
	db := migratedDB(t)
	err := NewDBLogger(db, nil).Write(context.Background(), Entry{Table: "widgets", RowID: 1})
	assert.Error(t, err)
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.SetUser("x")
	assert.NoError(t, l.Write(context.Background(), Entry{Action: ActionStore}))
}
