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
	"fmt"
	"sync"
	"time"

	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/system"
	"github.com/tomoncle/restcore/types"
	"github.com/uptrace/bun"
)

// Log is one row of the logs table.
type Log struct {
	bun.BaseModel `bun:"table:logs,alias:lg"`

	ID        int64      `bun:"id,pk,autoincrement" json:"id"`
	Table     string     `bun:"table,notnull" json:"table"`
	RowID     string     `bun:"row_id,notnull" json:"row_id"`
	Service   string     `bun:"service,notnull" json:"service"`
	OldData   types.JSON `bun:"old_data,type:text" json:"old_data"`
	NewData   types.JSON `bun:"new_data,type:text,nullzero" json:"new_data"`
	Type      string     `bun:"type,notnull" json:"type"`
	User      types.JSON `bun:"user,type:text,nullzero" json:"user"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Register adds the logs table to the base migration.
func Register() {
	database.RegisteredModel(database.NewModelAdapter((*Log)(nil), 20))
}

// Entry describes one change.
type Entry struct {
	Action  Action
	Table   string
	RowID   any
	Service string
	Old     any
	New     any
}

// Logger writes audit entries.
type Logger interface {
	Write(ctx context.Context, entry Entry) error
	// SetUser sets the user recorded when the context carries none.
	SetUser(user any)
}

type userKey struct{}

// WithUser attaches the acting user to ctx.
func WithUser(ctx context.Context, user any) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the user attached by WithUser.
func UserFrom(ctx context.Context) (any, bool) {
	user := ctx.Value(userKey{})
	return user, user != nil
}

// OptionChecker reports whether a system option is on.
type OptionChecker interface {
	Enabled(ctx context.Context, option string) bool
}

// DBLogger inserts entries into the logs table while the logger system
// option is on.
type DBLogger struct {
	db      bun.IDB
	options OptionChecker
	mu      sync.RWMutex
	user    any
}

var _ Logger = (*DBLogger)(nil)

func NewDBLogger(db bun.IDB, options OptionChecker) *DBLogger {
	return &DBLogger{db: db, options: options}
}

func (l *DBLogger) SetUser(user any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.user = user
}

func (l *DBLogger) Write(ctx context.Context, entry Entry) error {
	if l.options != nil && !l.options.Enabled(ctx, system.OptionLogger) {
		return nil
	}
	if !entry.Action.IsValid() {
		return fmt.Errorf("invalid audit action %d", entry.Action)
	}

	user, ok := UserFrom(ctx)
	if !ok {
		l.mu.RLock()
		user = l.user
		l.mu.RUnlock()
	}

	row := &Log{
		Table:   entry.Table,
		RowID:   fmt.Sprint(entry.RowID),
		Service: entry.Service,
		Type:    entry.Action.Name(),
	}
	var err error
	if row.OldData, err = types.NewJSON(entry.Old); err != nil {
		return fmt.Errorf("failed to encode old data: %w", err)
	}
	if row.NewData, err = types.NewJSON(entry.New); err != nil {
		return fmt.Errorf("failed to encode new data: %w", err)
	}
	if row.User, err = types.NewJSON(user); err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if _, err := l.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// NopLogger drops every entry.
type NopLogger struct{}

func (NopLogger) Write(context.Context, Entry) error { return nil }

func (NopLogger) SetUser(any) {}
