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

package system

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/types"
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

	Register()
	require.NoError(t, database.NewMigrationManager(db, database.NopLogger{}).RunMigrations(context.Background()))
	return db
}

func TestOptionEnabled(t *testing.T) {
	for value, want := range map[string]bool{
		"1": true, "true": true, "yes": true, "2": true,
		"0": false, "": false, "false": false, " OFF ": false, "no": false,
	} {
		assert.Equal(t, want, (&Option{Value: value}).Enabled(), "value %q", value)
	}
}

func TestMigrationSeedsDefaults(t *testing.T) {
	db := migratedDB(t)
	store := NewOptionStore(db)
	ctx := context.Background()

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.False(t, store.Enabled(ctx, OptionMaintenance))
	assert.True(t, store.Enabled(ctx, OptionLogger))
	assert.False(t, store.Enabled(ctx, "missing"))
}

func TestOptionStoreSet(t *testing.T) {
	store := NewOptionStore(migratedDB(t))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, OptionMaintenance, "1"))
	assert.True(t, store.Enabled(ctx, OptionMaintenance))

	err := store.Set(ctx, "missing", "1")
	assert.True(t, types.IsNotFound(err))

	// Seeding again keeps the changed value.
	require.NoError(t, store.Seed(ctx))
	opt, err := store.Get(ctx, OptionMaintenance)
	require.NoError(t, err)
	assert.Equal(t, "1", opt.Value)
}

func TestKeyStore(t *testing.T) {
	keys := NewKeyStore(migratedDB(t))
	ctx := context.Background()

	generated, err := keys.Add(ctx, "billing", "")
	require.NoError(t, err)
	_, err = uuid.Parse(generated.ID)
	assert.NoError(t, err)

	explicit, err := keys.Add(ctx, "mailer", "fixed-key")
	require.NoError(t, err)
	assert.Equal(t, "fixed-key", explicit.ID)

	_, err = keys.Add(ctx, "", "")
	assert.Error(t, err)

	updated, err := keys.UpdateSuffix(ctx, "fixed-key", "notifier")
	require.NoError(t, err)
	assert.Equal(t, "notifier", updated.Suffix)

	got, err := keys.Get(ctx, "fixed-key")
	require.NoError(t, err)
	assert.Equal(t, "notifier", got.Suffix)

	_, err = keys.UpdateSuffix(ctx, "nope", "x")
	assert.True(t, types.IsNotFound(err))
}
