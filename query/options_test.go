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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultListOptions(t *testing.T) {
	lo := DefaultListOptions()
	assert.Equal(t, []string{"*"}, lo.Select())
	assert.Equal(t, 50, lo.PerPage())
	assert.Equal(t, 1, lo.Page())
	assert.Equal(t, []SortSpec{{Column: "id", Direction: Desc}}, lo.SortBy())
	assert.False(t, lo.PaginationDisabled())
	assert.Empty(t, lo.Filters())
}

func TestParseSortSpec(t *testing.T) {
	assert.Equal(t, SortSpec{"name", Asc}, ParseSortSpec("name"))
	assert.Equal(t, SortSpec{"name", Desc}, ParseSortSpec("name:DESC"))
	assert.Equal(t, SortSpec{"name", Asc}, ParseSortSpec("name:asc"))
	assert.Equal(t, SortSpec{"name", Asc}, ParseSortSpec("name:sideways"))
}

func TestSetSortByReplacesDefault(t *testing.T) {
	lo := DefaultListOptions().SetSortBy([]string{"created_at", "", "id:desc"})
	assert.Equal(t, []SortSpec{{"created_at", Asc}, {"id", Desc}}, lo.SortBy())
}

func TestPagingIsNotValidatedHere(t *testing.T) {
	lo := DefaultListOptions().SetPage(-3).SetPerPage(0)
	assert.Equal(t, -3, lo.Page())
	assert.Equal(t, 0, lo.PerPage())
}

func TestNewListOptionsInstallsFullTextFirst(t *testing.T) {
	lo, err := NewListOptions(Options{
		Params:   Params{{"fullname:search", "ada"}},
		FullText: FullTextGroup{"fullname": {"firstname", "lastname"}},
		SortBy:   []string{"name:asc"},
		PerPage:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, []FilterDescriptor{{Column: "firstname,lastname", Operator: OpFullText, Value: "ada"}}, lo.Filters())
	assert.Equal(t, []SortSpec{{"name", Asc}}, lo.SortBy())
	assert.Equal(t, 10, lo.PerPage())
	assert.Equal(t, 1, lo.Page())
}

func TestSetParamsMergesAndFailsAtomically(t *testing.T) {
	lo := DefaultListOptions()
	require.NoError(t, lo.SetParams(Params{{"status", "1"}, {"name", "a"}}))
	require.NoError(t, lo.SetParams(Params{{"status", "2"}}))
	assert.Equal(t, []FilterDescriptor{
		{Column: "status", Value: "2"},
		{Column: "name", Value: "a"},
	}, lo.Filters())

	err := lo.SetParams(Params{{"age", "3"}, {"missing:search", "x"}})
	require.Error(t, err)
	assert.Len(t, lo.Filters(), 2)
}
