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

package types

import "encoding/json"

// DefaultPageSize is used whenever a page size below one reaches the store.
const DefaultPageSize = 50

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// PageRequest describes pagination, optional filter, and ordering.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	orders   []string // "id ASC", "name DESC"
}

func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = DefaultPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetOrders() []string {
	return p.orders
}

// NewPageRequest constructs a PageRequest with filter and order settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, orders []string) *PageRequest {
	return &PageRequest{page, pageSize, filter, orders}
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, make([]string, 0))
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"per_page"`
	Total    int  `json:"total"`
	Items    []*T `json:"data"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// ListResult is what a list query yields: a page of rows when pagination is
// enabled, otherwise the complete ordered collection.
type ListResult[T any] struct {
	Page       *Pagination[T]
	Collection []*T
}

// NewPageResult wraps a page.
func NewPageResult[T any](page *Pagination[T]) *ListResult[T] {
	return &ListResult[T]{Page: page}
}

// NewCollectionResult wraps an unpaginated collection.
func NewCollectionResult[T any](items []*T) *ListResult[T] {
	if items == nil {
		items = make([]*T, 0)
	}
	return &ListResult[T]{Collection: items}
}

func (r *ListResult[T]) IsPaginated() bool { return r.Page != nil }

// Items returns the rows regardless of the result shape.
func (r *ListResult[T]) Items() []*T {
	if r.Page != nil {
		return r.Page.Items
	}
	return r.Collection
}

// MarshalJSON renders {"data":[...]} plus page metadata when paginated.
func (r *ListResult[T]) MarshalJSON() ([]byte, error) {
	if r.Page != nil {
		return json.Marshal(r.Page)
	}
	return json.Marshal(struct {
		Data []*T `json:"data"`
	}{r.Items()})
}
