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
	"strings"

	"github.com/tomoncle/restcore/database"
	"github.com/uptrace/bun"
)

const (
	OptionMaintenance = "maintenance"
	OptionLogger      = "logger"
)

// Option is one row of the system table.
type Option struct {
	bun.BaseModel `bun:"table:system,alias:sys"`

	Name  string `bun:"option,pk" json:"option"`
	Value string `bun:"value,notnull" json:"value"`
}

// Enabled reports whether the value is truthy: anything but "", "0",
// "false", "off" and "no".
func (o *Option) Enabled() bool {
	switch strings.ToLower(strings.TrimSpace(o.Value)) {
	case "", "0", "false", "off", "no":
		return false
	}
	return true
}

// ServiceKey is a key issued to a calling service, identified by suffix.
type ServiceKey struct {
	bun.BaseModel `bun:"table:services_keys,alias:sk"`

	ID     string `bun:"id,pk" json:"id"`
	Suffix string `bun:"suffix,notnull" json:"suffix"`
}

// DefaultOptions are the options created by Seed.
func DefaultOptions() []*Option {
	return []*Option{
		{Name: OptionMaintenance, Value: "0"},
		{Name: OptionLogger, Value: "1"},
	}
}

// Register adds the system and services_keys tables to the base migration
// and schedules the seeding of the default options.
func Register() {
	database.RegisteredModel(database.NewModelAdapter((*Option)(nil), 10))
	database.RegisteredModel(database.NewModelAdapter((*ServiceKey)(nil), 11))
	database.RegisterMigration(database.MigrationItem{
		Version:     "002",
		Name:        "seed_system_options",
		Description: "Insert the default system options",
		Up:          seed,
	})
}

// seed inserts the default options, leaving existing ones untouched.
func seed(ctx context.Context, db bun.IDB) error {
	options := DefaultOptions()
	_, err := db.NewInsert().Model(&options).Ignore().Exec(ctx)
	return err
}
