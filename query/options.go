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

package query

import (
	"strings"
)

const (
	DefaultPerPage = 50
	DefaultPage    = 1
)

// SortDirection is the direction of an ORDER BY term.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// SortSpec is one ORDER BY term.
type SortSpec struct {
	Column    string
	Direction SortDirection
}

// ParseSortSpec parses "column[:direction]". A missing or unrecognised
// direction sorts ascending.
func ParseSortSpec(token string) SortSpec {
	column, dir, _ := strings.Cut(token, ":")
	spec := SortSpec{Column: strings.TrimSpace(column), Direction: Asc}
	if strings.EqualFold(strings.TrimSpace(dir), string(Desc)) {
		spec.Direction = Desc
	}
	return spec
}

// WhereClause is a predicate applied to every list, before any filter.
type WhereClause struct {
	Column string      `yaml:"column"`
	Clause string      `yaml:"clause"`
	Value  interface{} `yaml:"value"`
}

// RelationFilter routes a filter alias to a column of a related table.
type RelationFilter struct {
	Relation string `yaml:"relation"`
	Column   string `yaml:"column"`
}

// RelationFilters maps filter aliases to relation columns.
type RelationFilters map[string]RelationFilter

// Options is the declarative form of ListOptions. Zero values keep the
// defaults.
type Options struct {
	Select            []string
	Where             []WhereClause
	GroupBy           []string
	PerPage           int
	Page              int
	SortBy            []string
	DisablePagination bool
	Params            Params
	FullText          FullTextGroup
	RelationFilters   RelationFilters
}

// ListOptions holds everything a list query needs. It is built once per
// request and treated as read-only once handed to a repository.
type ListOptions struct {
	selectColumns     []string
	where             []WhereClause
	groupBy           []string
	perPage           int
	page              int
	sortBy            []SortSpec
	disablePagination bool
	filters           []FilterDescriptor
	fullText          FullTextGroup
	relationFilters   RelationFilters
}

// DefaultListOptions selects every column, 50 rows per page, first page,
// newest id first.
func DefaultListOptions() *ListOptions {
	return &ListOptions{
		selectColumns: []string{"*"},
		perPage:       DefaultPerPage,
		page:          DefaultPage,
		sortBy:        []SortSpec{{Column: "id", Direction: Desc}},
	}
}

// NewListOptions builds list options from o. The fulltext registry is
// installed before the params are parsed, whatever the field order.
func NewListOptions(o Options) (*ListOptions, error) {
	lo := DefaultListOptions()
	if o.FullText != nil {
		lo.SetFullText(o.FullText)
	}
	if o.RelationFilters != nil {
		lo.SetRelationFilters(o.RelationFilters)
	}
	if o.Select != nil {
		lo.SetSelect(o.Select)
	}
	if o.Where != nil {
		lo.SetWhere(o.Where)
	}
	if o.GroupBy != nil {
		lo.SetGroupBy(o.GroupBy)
	}
	if o.PerPage != 0 {
		lo.SetPerPage(o.PerPage)
	}
	if o.Page != 0 {
		lo.SetPage(o.Page)
	}
	if len(o.SortBy) > 0 {
		lo.SetSortBy(o.SortBy)
	}
	lo.SetDisablePagination(o.DisablePagination)
	if o.Params != nil {
		if err := lo.SetParams(o.Params); err != nil {
			return nil, err
		}
	}
	return lo, nil
}

func (lo *ListOptions) SetSelect(columns []string) *ListOptions {
	lo.selectColumns = columns
	return lo
}

func (lo *ListOptions) SetWhere(where []WhereClause) *ListOptions {
	lo.where = where
	return lo
}

func (lo *ListOptions) SetGroupBy(columns []string) *ListOptions {
	lo.groupBy = columns
	return lo
}

// SetPerPage stores n as given; bounds are enforced when the query runs.
func (lo *ListOptions) SetPerPage(n int) *ListOptions {
	lo.perPage = n
	return lo
}

func (lo *ListOptions) SetPage(n int) *ListOptions {
	lo.page = n
	return lo
}

// SetSortBy replaces the sort order with the parsed tokens. Empty tokens
// are skipped.
func (lo *ListOptions) SetSortBy(tokens []string) *ListOptions {
	lo.sortBy = make([]SortSpec, 0, len(tokens))
	for _, token := range tokens {
		if spec := ParseSortSpec(token); spec.Column != "" {
			lo.sortBy = append(lo.sortBy, spec)
		}
	}
	return lo
}

func (lo *ListOptions) SetDisablePagination(disabled bool) *ListOptions {
	lo.disablePagination = disabled
	return lo
}

// SetParams parses params into filters, merging them over the filters
// already set. Nothing changes when an error is returned.
func (lo *ListOptions) SetParams(params Params) error {
	filters, err := mergeFilters(lo.filters, params, lo.fullText)
	if err != nil {
		return err
	}
	lo.filters = filters
	return nil
}

func (lo *ListOptions) SetFullText(groups FullTextGroup) *ListOptions {
	lo.fullText = groups
	return lo
}

func (lo *ListOptions) SetRelationFilters(filters RelationFilters) *ListOptions {
	lo.relationFilters = filters
	return lo
}

func (lo *ListOptions) Select() []string { return lo.selectColumns }

func (lo *ListOptions) Where() []WhereClause { return lo.where }

func (lo *ListOptions) GroupBy() []string { return lo.groupBy }

func (lo *ListOptions) PerPage() int { return lo.perPage }

func (lo *ListOptions) Page() int { return lo.page }

func (lo *ListOptions) SortBy() []SortSpec { return lo.sortBy }

func (lo *ListOptions) PaginationDisabled() bool { return lo.disablePagination }

func (lo *ListOptions) Filters() []FilterDescriptor { return lo.filters }

func (lo *ListOptions) FullText() FullTextGroup { return lo.fullText }

func (lo *ListOptions) RelationFilters() RelationFilters { return lo.relationFilters }
