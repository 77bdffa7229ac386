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
	"github.com/tomoncle/restcore/database"
	"github.com/tomoncle/restcore/query"
)

type settings struct {
	relations map[string]query.Relation
	clauses   []CustomClause
	logger    database.Logger
}

// Option configures a repository.
type Option func(*settings)

// WithRelations registers the relations filters may be routed to. A
// relation without a name is registered under its table.
func WithRelations(relations ...query.Relation) Option {
	return func(s *settings) {
		for _, r := range relations {
			if r.Name == "" {
				r.Name = r.Table
			}
			s.relations[r.Name] = r
		}
	}
}

// WithCustomClause appends a hook run on every list query. Hooks run in
// registration order.
func WithCustomClause(clause CustomClause) Option {
	return func(s *settings) {
		if clause != nil {
			s.clauses = append(s.clauses, clause)
		}
	}
}

// WithLogger replaces the database logger.
func WithLogger(logger database.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}
