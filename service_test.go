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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/restcore/audit"
	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/query"
	"github.com/tomoncle/restcore/system"
	"github.com/tomoncle/restcore/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type article struct {
	bun.BaseModel `bun:"table:articles,alias:a"`

	ID     int64  `bun:"id,pk,autoincrement" json:"id"`
	Title  string `bun:"title,notnull" json:"title" validate:"required,max=40"`
	Author string `bun:"author" json:"author"`
	Views  int    `bun:"views" json:"views" validate:"gte=0"`
}

type token struct {
	bun.BaseModel `bun:"table:tokens,alias:t"`

	Key   string `bun:"key,pk" json:"key"`
	Owner string `bun:"owner" json:"owner" validate:"required"`
}

func openDB(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	system.Register()
	audit.Register()
	database.RegisteredModel(database.NewModelAdapter((*article)(nil), 100))
	database.RegisteredModel(database.NewModelAdapter((*token)(nil), 101))
	require.NoError(t, database.NewMigrationManager(db, database.NopLogger{}).RunMigrations(context.Background()))
	return db
}

func newArticleService(db *bun.DB, opts ...ServiceOption[article]) *Service[article] {
	opts = append([]ServiceOption[article]{
		WithLogger[article](database.NopLogger{}),
		WithAuditLogger[article](audit.NewDBLogger(db, system.NewOptionStore(db))),
	}, opts...)
	return NewService[article](db, opts...)
}

func seedArticles(t *testing.T, s *Service[article]) {
	t.Helper()
	for i := 0; i < 12; i++ {
		_, err := s.Store(context.Background(), &article{
			Title:  fmt.Sprintf("title-%02d", i),
			Author: []string{"ann", "bob", "cid"}[i%3],
			Views:  i * 10,
		})
		require.NoError(t, err)
	}
}

func TestServiceIndexDefaults(t *testing.T) {
	s := newArticleService(openDB(t))
	seedArticles(t, s)

	result, err := s.Index(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, result.IsPaginated())
	assert.Equal(t, 12, result.Page.Total)
	assert.Equal(t, query.DefaultPerPage, result.Page.PageSize)
	assert.Equal(t, int64(12), result.Items()[0].ID)
}

func TestServiceIndexReservedKeys(t *testing.T) {
	s := newArticleService(openDB(t))
	seedArticles(t, s)

	params := query.ParseQueryString("author=bob&views:gte=20&per_page=2&page=2&sort_by=views:asc")
	result, err := s.Index(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Page.Total)
	assert.Equal(t, 2, result.Page.Page)
	require.Len(t, result.Items(), 1)
	assert.Equal(t, 100, result.Items()[0].Views)
}

func TestServiceIndexRepeatedSortBy(t *testing.T) {
	s := newArticleService(openDB(t), WithDefaults[article](query.Options{DisablePagination: true}))
	seedArticles(t, s)

	result, err := s.Index(context.Background(), query.ParseQueryString("sort_by=author:desc&sort_by=views"))
	require.NoError(t, err)
	require.False(t, result.IsPaginated())
	items := result.Items()
	require.Len(t, items, 12)
	assert.Equal(t, "cid", items[0].Author)
	assert.Equal(t, 20, items[0].Views)
	assert.Equal(t, "ann", items[11].Author)
}

func TestServiceIndexStorageErrorUnchanged(t *testing.T) {
	s := newArticleService(openDB(t))
	seedArticles(t, s)

	_, err := s.Index(context.Background(), query.ParseQueryString("nope=1"))
	require.Error(t, err)
	is, kind := database.IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, database.NoColumnErr, kind)
	assert.Contains(t, err.Error(), "nope")
	assert.NotContains(t, err.Error(), "failed to list")
}

func TestServiceIndexFullText(t *testing.T) {
	s := newArticleService(openDB(t), WithDefaults[article](query.Options{
		FullText: query.FullTextGroup{"text": {"title", "author"}},
	}))
	seedArticles(t, s)

	result, err := s.Index(context.Background(), query.ParseQueryString("text:search=cid"))
	require.NoError(t, err)
	assert.Equal(t, 4, result.Page.Total)

	_, err = s.Index(context.Background(), query.ParseQueryString("other:search=cid"))
	var cfgErr *types.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestServiceHooks(t *testing.T) {
	var calls []string
	hooks := Hooks[article]{
		BeforeRetrieve: func(ctx context.Context, o *query.ListOptions) error {
			calls = append(calls, "before_retrieve")
			o.SetPerPage(1)
			return nil
		},
		AfterRetrieve: func(ctx context.Context, r *types.ListResult[article]) error {
			calls = append(calls, "after_retrieve")
			return nil
		},
		AfterRetrieveByID: func(ctx context.Context, a *article) error {
			calls = append(calls, "after_retrieve_by_id")
			return nil
		},
		BeforeInsert: func(ctx context.Context, a *article) error {
			calls = append(calls, "before_insert")
			a.Author = "hooked"
			return nil
		},
		AfterInsert: func(ctx context.Context, a *article) error {
			calls = append(calls, "after_insert")
			return nil
		},
		BeforeDelete: func(ctx context.Context, a *article) error {
			calls = append(calls, "before_delete")
			return errors.New("locked")
		},
	}
	s := newArticleService(openDB(t), WithHooks(hooks))
	ctx := context.Background()

	created, err := s.Store(ctx, &article{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, "hooked", created.Author)

	_, err = s.Show(ctx, created.ID)
	require.NoError(t, err)

	result, err := s.Index(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page.PageSize)

	_, err = s.Delete(ctx, created.ID)
	assert.EqualError(t, err, "locked")
	_, err = s.Show(ctx, created.ID)
	assert.NoError(t, err)

	assert.Equal(t, []string{
		"before_insert", "after_insert", "after_retrieve_by_id",
		"before_retrieve", "after_retrieve", "before_delete", "after_retrieve_by_id",
	}, calls)
}

func TestServiceValidation(t *testing.T) {
	s := newArticleService(openDB(t))
	ctx := context.Background()

	_, err := s.Store(ctx, &article{Views: -1})
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "views")
	assert.Equal(t, 422, types.StatusCode(err))

	created, err := s.Store(ctx, &article{Title: "ok"})
	require.NoError(t, err)
	_, err = s.Update(ctx, created.ID, &article{Title: ""})
	assert.True(t, errors.As(err, &verr))
}

func TestServiceUpdateAndDelete(t *testing.T) {
	db := openDB(t)
	s := newArticleService(db)
	ctx := context.Background()

	created, err := s.Store(ctx, &article{Title: "draft", Author: "ann"})
	require.NoError(t, err)

	updated, err := s.Update(ctx, created.ID, &article{ID: 999, Title: "final", Author: "ann", Views: 3})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	got, err := s.Show(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, 3, got.Views)

	_, err = s.Update(ctx, 12345, &article{Title: "none"})
	assert.True(t, types.IsNotFound(err))

	deleted, err := s.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", deleted.Title)
	_, err = s.Show(ctx, created.ID)
	assert.True(t, types.IsNotFound(err))
	assert.Equal(t, 404, types.StatusCode(err))

	var logs []audit.Log
	require.NoError(t, db.NewSelect().Model(&logs).Order("id ASC").Scan(ctx))
	require.Len(t, logs, 3)
	assert.Equal(t, []string{"store", "update", "delete"}, []string{logs[0].Type, logs[1].Type, logs[2].Type})
	for _, l := range logs {
		assert.Equal(t, "articles", l.Table)
		assert.Equal(t, fmt.Sprint(created.ID), l.RowID)
	}
	var old article
	require.NoError(t, logs[1].OldData.Decode(&old))
	assert.Equal(t, "draft", old.Title)
	assert.Nil(t, logs[0].OldData)
	assert.Nil(t, logs[2].NewData)
}

func TestServiceGeneratedID(t *testing.T) {
	db := openDB(t)
	s := NewService[token](db, WithGeneratedID[token](), WithName[token]("tokens-service"), WithLogger[token](database.NopLogger{}))
	ctx := context.Background()

	created, err := s.Store(ctx, &token{Owner: "ann"})
	require.NoError(t, err)
	assert.Len(t, created.Key, 36)
	assert.Equal(t, "tokens-service", s.Name())

	kept, err := s.Store(ctx, &token{Key: "fixed", Owner: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", kept.Key)

	result, err := s.Index(ctx, query.ParseQueryString("owner=bob"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Page.Total)
}

func TestServiceResourceSpec(t *testing.T) {
	specs, err := query.ParseResourceSpecs([]byte(`
articles:
  per_page: 5
  sort_by: ["views:asc"]
  where:
    - {column: author, clause: "!=", value: cid}
`))
	require.NoError(t, err)
	s := newArticleService(openDB(t), WithResourceSpec[article](specs["articles"]))
	seedArticles(t, s)

	result, err := s.Index(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 8, result.Page.Total)
	assert.Len(t, result.Items(), 5)
	assert.Equal(t, 0, result.Items()[0].Views)
}

func TestServiceParseID(t *testing.T) {
	db := openDB(t)
	articles := newArticleService(db)
	id, err := articles.ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	_, err = articles.ParseID("abc")
	assert.Error(t, err)

	tokens := NewService[token](db)
	id, err = tokens.ParseID("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
}

type mockAuditLogger struct {
	mock.Mock
}

func (m *mockAuditLogger) Write(ctx context.Context, entry audit.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockAuditLogger) SetUser(user any) { m.Called(user) }

func TestServiceAuditFailureKeepsChange(t *testing.T) {
	logger := &mockAuditLogger{}
	logger.On("Write", mock.Anything, mock.MatchedBy(func(e audit.Entry) bool {
		return e.Action == audit.ActionStore && e.Table == "articles" && e.Service == "news" && e.Old == nil
	})).Return(errors.New("audit down")).Once()

	db := openDB(t)
	s := NewService[article](db,
		WithName[article]("news"),
		WithAuditLogger[article](logger),
		WithLogger[article](database.NopLogger{}),
	)
	created, err := s.Store(context.Background(), &article{Title: "kept"})
	require.NoError(t, err)

	_, err = s.Show(context.Background(), created.ID)
	assert.NoError(t, err)
	logger.AssertExpectations(t)
}
