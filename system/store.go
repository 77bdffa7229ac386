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
	"fmt"

	"github.com/google/uuid"
	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/repository"
	"github.com/tomoncle/restcore/types"
	"github.com/uptrace/bun"
)

// OptionStore reads and writes system options.
type OptionStore struct {
	db     *bun.DB
	repo   repository.Repository[Option]
	logger database.Logger
}

func NewOptionStore(db *bun.DB) *OptionStore {
	logger := database.NewNamedLogger("SYSTEM")
	return &OptionStore{
		db:     db,
		repo:   repository.NewRepository[Option](db, repository.WithLogger(logger)),
		logger: logger,
	}
}

// Repository exposes the underlying repository, e.g. to serve options over
// HTTP.
func (s *OptionStore) Repository() repository.Repository[Option] { return s.repo }

// Get returns the option name or a *types.ResourceNotFoundError.
func (s *OptionStore) Get(ctx context.Context, name string) (*Option, error) {
	return s.repo.GetOne(ctx, name)
}

// All returns every option.
func (s *OptionStore) All(ctx context.Context) ([]*Option, error) {
	return s.repo.GetAll(ctx)
}

// Set changes the value of an existing option.
func (s *OptionStore) Set(ctx context.Context, name, value string) error {
	opt, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	opt.Value = value
	if err := s.repo.Update(ctx, opt); err != nil {
		return fmt.Errorf("failed to update option %s: %w", name, err)
	}
	s.logger.Info("System option updated", "option", name, "value", value)
	return nil
}

// Enabled reports whether option exists and is truthy. Lookup failures
// other than a missing option are logged and read as disabled.
func (s *OptionStore) Enabled(ctx context.Context, name string) bool {
	opt, err := s.Get(ctx, name)
	if err != nil {
		if !types.IsNotFound(err) {
			s.logger.Warn("Failed to read system option", "option", name, "error", err)
		}
		return false
	}
	return opt.Enabled()
}

// Seed inserts the default options that do not exist yet.
func (s *OptionStore) Seed(ctx context.Context) error {
	if err := seed(ctx, s.db); err != nil {
		return fmt.Errorf("failed to seed system options: %w", err)
	}
	return nil
}

// KeyStore manages service keys.
type KeyStore struct {
	repo repository.Repository[ServiceKey]
}

func NewKeyStore(db *bun.DB) *KeyStore {
	return &KeyStore{repo: repository.NewRepository[ServiceKey](db, repository.WithLogger(database.NewNamedLogger("SYSTEM")))}
}

func (k *KeyStore) Repository() repository.Repository[ServiceKey] { return k.repo }

// Add stores a key for suffix. An empty id gets a random UUID.
func (k *KeyStore) Add(ctx context.Context, suffix, id string) (*ServiceKey, error) {
	if suffix == "" {
		return nil, fmt.Errorf("service key suffix cannot be empty")
	}
	if id == "" {
		id = uuid.NewString()
	}
	key := &ServiceKey{ID: id, Suffix: suffix}
	if err := k.repo.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to create service key: %w", err)
	}
	return key, nil
}

// UpdateSuffix moves the key id to a new suffix.
func (k *KeyStore) UpdateSuffix(ctx context.Context, id, suffix string) (*ServiceKey, error) {
	key, err := k.repo.GetOne(ctx, id)
	if err != nil {
		return nil, err
	}
	key.Suffix = suffix
	if err := k.repo.Update(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to update service key: %w", err)
	}
	return key, nil
}

// Get returns the key id.
func (k *KeyStore) Get(ctx context.Context, id string) (*ServiceKey, error) {
	return k.repo.GetOne(ctx, id)
}
