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

package repository

import (
	"context"
	"strings"

	"github.com/tomoncle/restcore/query"
	"github.com/tomoncle/restcore/types"
	"github.com/uptrace/bun"
)

// whereClauses maps the accepted default predicate operators to SQL.
var whereClauses = map[string]string{
	"=":        "=",
	"!=":       "<>",
	"<>":       "<>",
	">":        ">",
	">=":       ">=",
	"<":        "<",
	"<=":       "<=",
	"like":     "LIKE",
	"not like": "NOT LIKE",
}

// GetList runs the list pipeline: default predicates, group by, sort,
// filters, custom clauses, then either a page or the whole collection.
func (r *baseRepositoryImpl[T]) GetList(ctx context.Context, options *query.ListOptions) (*types.ListResult[T], error) {
	if options == nil {
		options = query.DefaultListOptions()
	}

	// Relation routing is checked before any predicate is applied.
	filters := options.Filters()
	var compilers *query.CompilerSet
	if len(filters) > 0 {
		compilers = query.NewCompilerSet(r.db, r.alias, r.relations, options.RelationFilters())
		if err := compilers.Check(filters); err != nil {
			return nil, err
		}
	}

	var entities []*T
	q := r.db.NewSelect().Model(&entities)
	q = r.applySelect(q, options.Select())
	q = r.applyWhere(q, options.Where())
	for _, column := range options.GroupBy() {
		q = q.GroupExpr("?", query.Qualify(r.alias, column))
	}
	for _, spec := range options.SortBy() {
		if spec.Direction == query.Desc {
			q = q.OrderExpr("? DESC", query.Qualify(r.alias, spec.Column))
		} else {
			q = q.OrderExpr("? ASC", query.Qualify(r.alias, spec.Column))
		}
	}

	if compilers != nil {
		var err error
		if q, err = compilers.Apply(q, filters); err != nil {
			return nil, err
		}
	}

	for _, clause := range r.clauses {
		q = clause(ctx, options, q)
	}

	if options.PaginationDisabled() {
		if err := q.Scan(ctx); err != nil {
			return nil, err
		}
		return types.NewCollectionResult(entities), nil
	}

	pageRequest := types.NewDefaultPageRequest(options.Page(), options.PerPage())
	total, err := q.
		Limit(pageRequest.GetPageSize()).
		Offset(pageRequest.GetOffset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, err
	}
	page := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	page.Total = total
	if entities != nil {
		page.Items = entities
	}
	return types.NewPageResult(page), nil
}

func (r *baseRepositoryImpl[T]) applySelect(q *bun.SelectQuery, columns []string) *bun.SelectQuery {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return q
	}
	for _, column := range columns {
		if column == "*" {
			q = q.ColumnExpr("?TableAlias.*")
			continue
		}
		q = q.ColumnExpr("?", query.Qualify(r.alias, column))
	}
	return q
}

func (r *baseRepositoryImpl[T]) applyWhere(q *bun.SelectQuery, clauses []query.WhereClause) *bun.SelectQuery {
	for _, w := range clauses {
		op, ok := whereClauses[strings.ToLower(strings.TrimSpace(w.Clause))]
		if !ok || w.Column == "" {
			r.logger.Warn("Skipping default where clause", "table", r.table, "column", w.Column, "clause", w.Clause)
			continue
		}
		q = q.Where("? "+op+" ?", query.Qualify(r.alias, w.Column), w.Value)
	}
	return q
}
