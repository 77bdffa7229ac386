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
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/restcore/types"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   []FilterDescriptor
	}{
		{
			name:   "bare equality",
			params: Params{{"name", "bob"}},
			want:   []FilterDescriptor{{Column: "name", Operator: OpEqual, Value: "bob"}},
		},
		{
			name:   "operator tag",
			params: Params{{"age:gte", "30"}, {"company_id:in", "1,2,3"}},
			want: []FilterDescriptor{
				{Column: "age", Operator: OpGte, Value: "30"},
				{Column: "company_id", Operator: OpIn, Value: "1,2,3"},
			},
		},
		{
			name:   "reserved keys are skipped",
			params: Params{{"sort_by", "name"}, {"page", "2"}, {"per_page", "5"}, {"status", "1"}},
			want:   []FilterDescriptor{{Column: "status", Value: "1"}},
		},
		{
			name:   "later value wins",
			params: Params{{"status", "1"}, {"name", "x"}, {"status", "2"}},
			want: []FilterDescriptor{
				{Column: "status", Value: "2"},
				{Column: "name", Value: "x"},
			},
		},
		{
			name:   "same field with another operator replaces",
			params: Params{{"age:gte", "30"}, {"age:lte", "35"}},
			want:   []FilterDescriptor{{Column: "age", Operator: OpLte, Value: "35"}},
		},
		{
			name:   "empty field and extra segments",
			params: Params{{":like", "x"}, {"name:like:ignored", "al"}, {"code:", "7"}},
			want: []FilterDescriptor{
				{Column: "name", Operator: OpLike, Value: "al"},
				{Column: "code", Operator: OpEqual, Value: "7"},
			},
		},
		{
			name:   "unknown operator is kept for the compiler",
			params: Params{{"name:fuzzy", "x"}},
			want:   []FilterDescriptor{{Column: "name", Operator: "fuzzy", Value: "x"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.params, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseParamsFullText(t *testing.T) {
	groups := FullTextGroup{"fullname": {"firstname", "lastname"}}

	got, err := ParseParams(Params{{"fullname:search", "ada"}}, groups)
	require.NoError(t, err)
	assert.Equal(t, []FilterDescriptor{{Column: "firstname,lastname", Operator: OpFullText, Value: "ada"}}, got)

	got, err = ParseParams(Params{{"age:gte", "30"}, {"nickname:search", "ada"}}, groups)
	assert.Nil(t, got)
	var cfgErr *types.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "nickname")
}

func TestParseQueryStringKeepsOrder(t *testing.T) {
	params := ParseQueryString("?status=1&name%3Alike=al+ice&status=2&per_page=10")
	assert.Equal(t, Params{
		{"status", "1"},
		{"name:like", "al ice"},
		{"status", "2"},
		{"per_page", "10"},
	}, params)

	v, ok := params.Get("status")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, []string{"1", "2"}, params.All("status"))
	assert.Len(t, params.Filters(), 3)
}

func TestParamsFromValues(t *testing.T) {
	values := url.Values{"b": {"1", "2"}, "a": {"x"}, "c": {}}
	assert.Equal(t, Params{{"a", "x"}, {"b", "2"}}, ParamsFromValues(values))
}
