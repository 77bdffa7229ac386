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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ResourceSpec holds the list defaults of one resource as written in YAML:
//
//	users:
//	  per_page: 20
//	  sort_by: ["name:asc"]
//	  full_text:
//	    fullname: [firstname, lastname]
//	  relations:
//	    - {name: orders, table: orders, foreign_key: user_id}
//	  relation_filters:
//	    order_total: {relation: orders, column: total}
type ResourceSpec struct {
	Select            []string            `yaml:"select"`
	Where             []WhereClause       `yaml:"where"`
	GroupBy           []string            `yaml:"group_by"`
	PerPage           int                 `yaml:"per_page"`
	SortBy            []string            `yaml:"sort_by"`
	DisablePagination bool                `yaml:"disable_pagination"`
	FullText          map[string][]string `yaml:"full_text"`
	Relations         []Relation          `yaml:"relations"`
	RelationFilters   RelationFilters     `yaml:"relation_filters"`
}

// Options converts the spec into list options input.
func (s ResourceSpec) Options() Options {
	o := Options{
		Select:            s.Select,
		Where:             s.Where,
		GroupBy:           s.GroupBy,
		PerPage:           s.PerPage,
		SortBy:            s.SortBy,
		DisablePagination: s.DisablePagination,
		RelationFilters:   s.RelationFilters,
	}
	if s.FullText != nil {
		o.FullText = FullTextGroup(s.FullText)
	}
	return o
}

// Validate checks that every relation filter names a declared relation.
func (s ResourceSpec) Validate() error {
	names := make(map[string]struct{}, len(s.Relations))
	for _, r := range s.Relations {
		if r.Name == "" || r.Table == "" || r.ForeignKey == "" {
			return fmt.Errorf("relation %+v needs name, table and foreign_key", r)
		}
		names[r.Name] = struct{}{}
	}
	for alias, rf := range s.RelationFilters {
		if _, ok := names[rf.Relation]; !ok {
			return fmt.Errorf("relation filter %q refers to unknown relation %q", alias, rf.Relation)
		}
	}
	return nil
}

// ParseResourceSpecs decodes a YAML document of resource name to spec.
func ParseResourceSpecs(data []byte) (map[string]ResourceSpec, error) {
	specs := make(map[string]ResourceSpec)
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse resource specs: %w", err)
	}
	for name, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("resource %s: %w", name, err)
		}
	}
	return specs, nil
}

// LoadResourceSpecs reads resource specs from a YAML file.
func LoadResourceSpecs(path string) (map[string]ResourceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource specs: %w", err)
	}
	return ParseResourceSpecs(data)
}
