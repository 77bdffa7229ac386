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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersSpec = `
users:
  select: [id, name, age]
  per_page: 20
  sort_by: ["name:asc"]
  where:
    - {column: active, clause: "=", value: 1}
  full_text:
    fullname: [firstname, lastname]
  relations:
    - {name: orders, table: orders, foreign_key: user_id}
  relation_filters:
    order_total: {relation: orders, column: total}
`

func TestLoadResourceSpecs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(usersSpec), 0o600))

	specs, err := LoadResourceSpecs(path)
	require.NoError(t, err)
	users, ok := specs["users"]
	require.True(t, ok)

	assert.Equal(t, 20, users.PerPage)
	assert.Equal(t, []Relation{{Name: "orders", Table: "orders", ForeignKey: "user_id"}}, users.Relations)
	assert.Equal(t, RelationFilter{Relation: "orders", Column: "total"}, users.RelationFilters["order_total"])

	lo, err := NewListOptions(users.Options())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age"}, lo.Select())
	assert.Equal(t, []SortSpec{{"name", Asc}}, lo.SortBy())
	assert.Equal(t, []WhereClause{{Column: "active", Clause: "=", Value: 1}}, lo.Where())
	assert.Equal(t, FullTextGroup{"fullname": {"firstname", "lastname"}}, lo.FullText())
}

func TestParseResourceSpecsRejectsUnknownRelation(t *testing.T) {
	_, err := ParseResourceSpecs([]byte(`
users:
  relation_filters:
    order_total: {relation: orders, column: total}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown relation")
}
