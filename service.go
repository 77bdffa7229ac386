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

package restcore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tomoncle/restcore/audit"
	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/query"
	"github.com/tomoncle/restcore/repository"
	"github.com/tomoncle/restcore/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Hooks are optional callbacks around the service operations. A hook
// returning an error aborts the operation with that error.
type Hooks[T any] struct {
	BeforeRetrieve    func(ctx context.Context, options *query.ListOptions) error
	AfterRetrieve     func(ctx context.Context, result *types.ListResult[T]) error
	AfterRetrieveByID func(ctx context.Context, entity *T) error
	BeforeInsert      func(ctx context.Context, entity *T) error
	AfterInsert       func(ctx context.Context, entity *T) error
	BeforeUpdate      func(ctx context.Context, old, entity *T) error
	AfterUpdate       func(ctx context.Context, old, entity *T) error
	BeforeDelete      func(ctx context.Context, entity *T) error
	AfterDelete       func(ctx context.Context, entity *T) error
}

// Service serves a resource: filtered listing plus audited writes.
type Service[T any] struct {
	name       string
	repo       repository.Repository[T]
	defaults   query.Options
	hooks      Hooks[T]
	validate   *validator.Validate
	audit      audit.Logger
	logger     database.Logger
	pk         *schema.Field
	generateID bool
}

// ServiceOption configures a Service.
type ServiceOption[T any] func(*serviceConfig[T])

type serviceConfig[T any] struct {
	service  *Service[T]
	repoOpts []repository.Option
}

// WithName sets the name recorded in audit entries. It defaults to the
// table name.
func WithName[T any](name string) ServiceOption[T] {
	return func(c *serviceConfig[T]) { c.service.name = name }
}

// WithDefaults sets the list defaults used by Index. Params in defaults are
// parsed before the request params.
func WithDefaults[T any](defaults query.Options) ServiceOption[T] {
	return func(c *serviceConfig[T]) { c.service.defaults = defaults }
}

// WithResourceSpec installs the list defaults and relations of spec.
func WithResourceSpec[T any](spec query.ResourceSpec) ServiceOption[T] {
	return func(c *serviceConfig[T]) {
		c.service.defaults = spec.Options()
		c.repoOpts = append(c.repoOpts, repository.WithRelations(spec.Relations...))
	}
}

func WithHooks[T any](hooks Hooks[T]) ServiceOption[T] {
	return func(c *serviceConfig[T]) { c.service.hooks = hooks }
}

func WithAuditLogger[T any](logger audit.Logger) ServiceOption[T] {
	return func(c *serviceConfig[T]) {
		if logger != nil {
			c.service.audit = logger
		}
	}
}

func WithLogger[T any](logger database.Logger) ServiceOption[T] {
	return func(c *serviceConfig[T]) {
		if logger != nil {
			c.service.logger = logger
		}
	}
}

func WithValidator[T any](v *validator.Validate) ServiceOption[T] {
	return func(c *serviceConfig[T]) {
		if v != nil {
			c.service.validate = v
		}
	}
}

// WithRepositoryOptions passes opts to the underlying repository.
func WithRepositoryOptions[T any](opts ...repository.Option) ServiceOption[T] {
	return func(c *serviceConfig[T]) { c.repoOpts = append(c.repoOpts, opts...) }
}

// WithGeneratedID makes Store fill an empty string primary key with a
// random UUID.
func WithGeneratedID[T any]() ServiceOption[T] {
	return func(c *serviceConfig[T]) { c.service.generateID = true }
}

// NewService returns a service for T backed by db.
func NewService[T any](db *bun.DB, opts ...ServiceOption[T]) *Service[T] {
	s := &Service[T]{
		validate: newValidator(),
		audit:    audit.NopLogger{},
		logger:   database.GetLogger(),
	}
	c := &serviceConfig[T]{service: s}
	for _, opt := range opts {
		opt(c)
	}
	c.repoOpts = append([]repository.Option{repository.WithLogger(s.logger)}, c.repoOpts...)
	s.repo = repository.NewRepository[T](db, c.repoOpts...)

	table := db.Table(reflect.TypeOf((*T)(nil)).Elem())
	if len(table.PKs) > 0 {
		s.pk = table.PKs[0]
	}
	if s.name == "" {
		s.name = s.repo.TableName()
	}
	if len(s.defaults.SortBy) == 0 {
		s.defaults.SortBy = []string{s.repo.PrimaryKey() + ":" + string(query.Desc)}
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func (s *Service[T]) Name() string { return s.name }

func (s *Service[T]) Repository() repository.Repository[T] { return s.repo }

// ParseID converts a path segment to the primary key type.
func (s *Service[T]) ParseID(raw string) (any, error) {
	if s.pk == nil {
		return raw, nil
	}
	switch s.pk.IndirectType.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s id %q", s.name, raw)
		}
		return n, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s id %q", s.name, raw)
		}
		return n, nil
	}
	return raw, nil
}

// ListOptions builds the list options of a request: the defaults, then the
// filters of params, then the reserved keys.
func (s *Service[T]) ListOptions(params query.Params) (*query.ListOptions, error) {
	o := s.defaults
	o.Params = append(append(query.Params{}, s.defaults.Params...), params.Filters()...)
	options, err := query.NewListOptions(o)
	if err != nil {
		return nil, err
	}
	if v, ok := params.Get(query.KeyPerPage); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			options.SetPerPage(n)
		}
	}
	if v, ok := params.Get(query.KeyPage); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			options.SetPage(n)
		}
	}
	var tokens []string
	for _, v := range params.All(query.KeySortBy) {
		for _, token := range strings.Split(v, ",") {
			if token = strings.TrimSpace(token); token != "" {
				tokens = append(tokens, token)
			}
		}
	}
	if len(tokens) > 0 {
		options.SetSortBy(tokens)
	}
	return options, nil
}

// Index lists the resource filtered by params.
func (s *Service[T]) Index(ctx context.Context, params query.Params) (*types.ListResult[T], error) {
	options, err := s.ListOptions(params)
	if err != nil {
		return nil, err
	}
	if h := s.hooks.BeforeRetrieve; h != nil {
		if err := h(ctx, options); err != nil {
			return nil, err
		}
	}
	result, err := s.repo.GetList(ctx, options)
	if err != nil {
		return nil, err
	}
	if h := s.hooks.AfterRetrieve; h != nil {
		if err := h(ctx, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Show returns the row id or a *types.ResourceNotFoundError.
func (s *Service[T]) Show(ctx context.Context, id any) (*T, error) {
	entity, err := s.repo.GetOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if h := s.hooks.AfterRetrieveByID; h != nil {
		if err := h(ctx, entity); err != nil {
			return nil, err
		}
	}
	return entity, nil
}

// Store validates and inserts entity.
func (s *Service[T]) Store(ctx context.Context, entity *T) (*T, error) {
	if entity == nil {
		return nil, errors.New("entity cannot be nil")
	}
	if s.generateID {
		s.fillID(entity)
	}
	if err := s.check(entity); err != nil {
		return nil, err
	}
	if h := s.hooks.BeforeInsert; h != nil {
		if err := h(ctx, entity); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", s.name, err)
	}
	s.record(ctx, audit.ActionStore, s.id(entity), nil, entity)
	if h := s.hooks.AfterInsert; h != nil {
		if err := h(ctx, entity); err != nil {
			return nil, err
		}
	}
	s.logger.Info("Resource stored", "resource", s.name, "id", s.id(entity))
	return entity, nil
}

// Update replaces every column but the primary key of the row id.
func (s *Service[T]) Update(ctx context.Context, id any, entity *T) (*T, error) {
	if entity == nil {
		return nil, errors.New("entity cannot be nil")
	}
	old, err := s.repo.GetOne(ctx, id)
	if err != nil {
		return nil, err
	}
	s.copyID(old, entity)
	if err := s.check(entity); err != nil {
		return nil, err
	}
	if h := s.hooks.BeforeUpdate; h != nil {
		if err := h(ctx, old, entity); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateByID(ctx, id, entity); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", s.name, err)
	}
	s.record(ctx, audit.ActionUpdate, id, old, entity)
	if h := s.hooks.AfterUpdate; h != nil {
		if err := h(ctx, old, entity); err != nil {
			return nil, err
		}
	}
	s.logger.Info("Resource updated", "resource", s.name, "id", id)
	return entity, nil
}

// Delete removes the row id and returns it.
func (s *Service[T]) Delete(ctx context.Context, id any) (*T, error) {
	old, err := s.repo.GetOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if h := s.hooks.BeforeDelete; h != nil {
		if err := h(ctx, old); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete %s: %w", s.name, err)
	}
	s.record(ctx, audit.ActionDelete, id, old, nil)
	if h := s.hooks.AfterDelete; h != nil {
		if err := h(ctx, old); err != nil {
			return nil, err
		}
	}
	s.logger.Info("Resource deleted", "resource", s.name, "id", id)
	return old, nil
}

// check runs the struct validation tags of entity.
func (s *Service[T]) check(entity *T) error {
	err := s.validate.Struct(entity)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := types.NewValidationError()
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), validationMessage(fe))
	}
	return verr
}

func validationMessage(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("failed on the %s=%s rule", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("failed on the %s rule", fe.Tag())
}

// record writes an audit entry. Audit failures are logged only, the change
// itself is already committed.
func (s *Service[T]) record(ctx context.Context, action audit.Action, id any, old, updated *T) {
	entry := audit.Entry{Action: action, Table: s.repo.TableName(), RowID: id, Service: s.name}
	if old != nil {
		entry.Old = old
	}
	if updated != nil {
		entry.New = updated
	}
	if err := s.audit.Write(ctx, entry); err != nil {
		s.logger.Warn("Failed to write audit log", "resource", s.name, "id", id, "error", err)
	}
}

func (s *Service[T]) pkValue(entity *T) (reflect.Value, bool) {
	if s.pk == nil || entity == nil {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(entity).Elem().FieldByIndex(s.pk.Index), true
}

func (s *Service[T]) id(entity *T) any {
	if v, ok := s.pkValue(entity); ok {
		return v.Interface()
	}
	return nil
}

func (s *Service[T]) fillID(entity *T) {
	v, ok := s.pkValue(entity)
	if ok && v.Kind() == reflect.String && v.String() == "" {
		v.SetString(uuid.NewString())
	}
}

func (s *Service[T]) copyID(from, to *T) {
	src, ok := s.pkValue(from)
	if !ok {
		return
	}
	dst, _ := s.pkValue(to)
	dst.Set(src)
}
