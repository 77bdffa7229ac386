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

	"github.com/tomoncle/restcore/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Compiler applies a single filter to a select query.
type Compiler interface {
	Compile(q *bun.SelectQuery, f FilterDescriptor) *bun.SelectQuery
}

// Relation describes how rows of a related table are correlated with the
// base table: <Table> AS <Name> WHERE <Name>.<ForeignKey> = <base>.<LocalKey>.
type Relation struct {
	Name       string `yaml:"name"`
	Table      string `yaml:"table"`
	ForeignKey string `yaml:"foreign_key"`
	LocalKey   string `yaml:"local_key"`
}

func (r Relation) localKey() string {
	if r.LocalKey == "" {
		return "id"
	}
	return r.LocalKey
}

// DirectCompiler constrains the base table.
type DirectCompiler struct {
	target target
}

var _ Compiler = (*DirectCompiler)(nil)

// NewDirectCompiler returns a compiler rendering predicates for name, with
// bare columns qualified by alias. An empty alias leaves them bare.
func NewDirectCompiler(name dialect.Name, alias string) *DirectCompiler {
	qualify := func(column string) bun.Ident {
		return Qualify(alias, column)
	}
	return &DirectCompiler{target: target{dialect: name, ident: qualify}}
}

func (c *DirectCompiler) Compile(q *bun.SelectQuery, f FilterDescriptor) *bun.SelectQuery {
	p, ok := lookupOperator(f.Operator)(c.target, f.Column, f.Value)
	if !ok {
		return q
	}
	return q.Where(p.query, p.args...)
}

// RelationCompiler wraps every filter in its own correlated EXISTS
// subquery; two filters on one relation may match different related rows.
type RelationCompiler struct {
	db        bun.IDB
	relation  Relation
	baseAlias string
	target    target
}

var _ Compiler = (*RelationCompiler)(nil)

// NewRelationCompiler returns a compiler scoped to rel, correlated with the
// base table aliased baseAlias.
func NewRelationCompiler(db bun.IDB, rel Relation, baseAlias string) *RelationCompiler {
	qualify := func(column string) bun.Ident {
		return Qualify(rel.Name, column)
	}
	return &RelationCompiler{
		db:        db,
		relation:  rel,
		baseAlias: baseAlias,
		target:    target{dialect: db.Dialect().Name(), ident: qualify},
	}
}

func (c *RelationCompiler) Compile(q *bun.SelectQuery, f FilterDescriptor) *bun.SelectQuery {
	p, ok := lookupOperator(f.Operator)(c.target, f.Column, f.Value)
	if !ok {
		return q
	}
	rel := c.relation
	sub := c.db.NewSelect().
		ColumnExpr("1").
		TableExpr("? AS ?", bun.Ident(rel.Table), bun.Ident(rel.Name)).
		Where("? = ?", bun.Ident(rel.Name+"."+rel.ForeignKey), bun.Ident(c.baseAlias+"."+rel.localKey())).
		Where(p.query, p.args...)
	return q.Where("EXISTS (?)", sub)
}

// Qualify prefixes column with alias unless the column is already dotted
// or alias is empty.
func Qualify(alias, column string) bun.Ident {
	if alias == "" || strings.Contains(column, ".") {
		return bun.Ident(column)
	}
	return bun.Ident(alias + "." + column)
}

// CompilerSet picks the compiler for each filter of one list call. Relation
// compilers are built on first use and reused for the rest of that call; a
// set must not outlive it.
type CompilerSet struct {
	db        bun.IDB
	baseAlias string
	relations map[string]Relation
	mapping   RelationFilters
	direct    *DirectCompiler
	scoped    map[string]*RelationCompiler
}

// NewCompilerSet returns a set for queries on the table aliased baseAlias.
// relations holds the known relations by name, mapping routes filter
// aliases to them.
func NewCompilerSet(db bun.IDB, baseAlias string, relations map[string]Relation, mapping RelationFilters) *CompilerSet {
	return &CompilerSet{
		db:        db,
		baseAlias: baseAlias,
		relations: relations,
		mapping:   mapping,
		direct:    NewDirectCompiler(db.Dialect().Name(), baseAlias),
		scoped:    make(map[string]*RelationCompiler),
	}
}

// Resolve returns the compiler for f and the filter as it must be compiled,
// with a relation alias replaced by the related column.
func (s *CompilerSet) Resolve(f FilterDescriptor) (Compiler, FilterDescriptor, error) {
	rf, ok := s.mapping[f.Column]
	if !ok {
		return s.direct, f, nil
	}
	if c, ok := s.scoped[rf.Relation]; ok {
		f.Column = rf.Column
		return c, f, nil
	}
	rel, ok := s.relations[rf.Relation]
	if !ok {
		return nil, f, types.NewConfigurationError("relation %q used by filter %q is not registered", rf.Relation, f.Column)
	}
	if rel.Name == "" {
		rel.Name = rf.Relation
	}
	c := NewRelationCompiler(s.db, rel, s.baseAlias)
	s.scoped[rf.Relation] = c
	f.Column = rf.Column
	return c, f, nil
}

// Check reports a ConfigurationError for the first filter routed to a
// relation that is not registered. GetList calls it before building the
// query.
func (s *CompilerSet) Check(filters []FilterDescriptor) error {
	for _, f := range filters {
		rf, ok := s.mapping[f.Column]
		if !ok {
			continue
		}
		if _, ok := s.relations[rf.Relation]; !ok {
			return types.NewConfigurationError("relation %q used by filter %q is not registered", rf.Relation, f.Column)
		}
	}
	return nil
}

// Apply compiles filters onto q in order.
func (s *CompilerSet) Apply(q *bun.SelectQuery, filters []FilterDescriptor) (*bun.SelectQuery, error) {
	for _, f := range filters {
		c, resolved, err := s.Resolve(f)
		if err != nil {
			return nil, err
		}
		q = c.Compile(q, resolved)
	}
	return q, nil
}

// Compiled reports how many relation compilers the set has built.
func (s *CompilerSet) Compiled() int {
	return len(s.scoped)
}
