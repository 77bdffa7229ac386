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

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// predicate is a WHERE fragment in bun placeholder syntax.
type predicate struct {
	query string
	args  []interface{}
}

// target describes where a predicate is rendered: the SQL dialect and how a
// bare column name is turned into an identifier.
type target struct {
	dialect dialect.Name
	ident   func(column string) bun.Ident
}

// operatorFunc builds the predicate for one filter. ok is false when the
// filter adds no constraint.
type operatorFunc func(t target, column, value string) (p predicate, ok bool)

var operators = map[Operator]operatorFunc{
	OpEqual:      compare("="),
	OpBool:       compare("="),
	OpNot:        compare("<>"),
	OpGte:        compare(">="),
	OpGt:         compare(">"),
	OpLte:        compare("<="),
	OpLt:         compare("<"),
	OpLike:       like,
	OpIn:         membership("IN"),
	OpNotIn:      membership("NOT IN"),
	OpNull:       nullCheck,
	OpBetween:    between("BETWEEN"),
	OpBetweenNot: between("NOT BETWEEN"),
	OpDate:       component(datePart),
	OpYear:       component(yearPart),
	OpTime:       component(timePart),
	OpColumn:     columnEquals,
	OpFullText:   fullTextMatch,
}

// lookupOperator returns the handler for op. Unknown operators add nothing.
func lookupOperator(op Operator) operatorFunc {
	if fn, ok := operators[op]; ok {
		return fn
	}
	return noop
}

// SupportedOperators lists the operator tags with a handler.
func SupportedOperators() []Operator {
	ops := make([]Operator, 0, len(operators))
	for op := range operators {
		ops = append(ops, op)
	}
	return ops
}

func noop(target, string, string) (predicate, bool) {
	return predicate{}, false
}

func compare(sqlOp string) operatorFunc {
	return func(t target, column, value string) (predicate, bool) {
		return predicate{query: "? " + sqlOp + " ?", args: []interface{}{t.ident(column), value}}, true
	}
}

func like(t target, column, value string) (predicate, bool) {
	return predicate{query: "? LIKE ?", args: []interface{}{t.ident(column), "%" + value + "%"}}, true
}

func membership(sqlOp string) operatorFunc {
	return func(t target, column, value string) (predicate, bool) {
		return predicate{
			query: "? " + sqlOp + " (?)",
			args:  []interface{}{t.ident(column), bun.In(strings.Split(value, ","))},
		}, true
	}
}

// nullCheck accepts only the literals "true" and "false".
func nullCheck(t target, column, value string) (predicate, bool) {
	switch value {
	case "true":
		return predicate{query: "? IS NULL", args: []interface{}{t.ident(column)}}, true
	case "false":
		return predicate{query: "? IS NOT NULL", args: []interface{}{t.ident(column)}}, true
	}
	return predicate{}, false
}

// between uses the first two comma separated values.
func between(sqlOp string) operatorFunc {
	return func(t target, column, value string) (predicate, bool) {
		bounds := strings.Split(value, ",")
		if len(bounds) < 2 {
			return predicate{}, false
		}
		return predicate{
			query: "? " + sqlOp + " ? AND ?",
			args:  []interface{}{t.ident(column), bounds[0], bounds[1]},
		}, true
	}
}

// componentFunc returns the expression extracting a date or time part of
// a column, with one placeholder for the column identifier.
type componentFunc func(name dialect.Name) string

func datePart(name dialect.Name) string {
	switch name {
	case dialect.SQLite:
		return "date(?)"
	case dialect.MySQL:
		return "DATE(?)"
	case dialect.PG:
		return "?::date"
	}
	return "CAST(? AS DATE)"
}

func yearPart(name dialect.Name) string {
	switch name {
	case dialect.SQLite:
		return "strftime('%Y', ?)"
	case dialect.MySQL:
		return "YEAR(?)"
	}
	return "extract(year from ?)"
}

func timePart(name dialect.Name) string {
	switch name {
	case dialect.SQLite:
		return "strftime('%H:%M:%S', ?)"
	case dialect.MySQL:
		return "TIME(?)"
	case dialect.PG:
		return "?::time"
	}
	return "CAST(? AS TIME)"
}

func component(part componentFunc) operatorFunc {
	return func(t target, column, value string) (predicate, bool) {
		return predicate{query: part(t.dialect) + " = ?", args: []interface{}{t.ident(column), value}}, true
	}
}

// columnEquals compares two columns. A dotted value is taken as already
// qualified.
func columnEquals(t target, column, value string) (predicate, bool) {
	if value == "" {
		return predicate{}, false
	}
	other := bun.Ident(value)
	if !strings.Contains(value, ".") {
		other = t.ident(value)
	}
	return predicate{query: "? = ?", args: []interface{}{t.ident(column), other}}, true
}

// fullTextMatch searches the comma separated columns for value: MATCH ...
// AGAINST on mysql, tsvector on postgres and OR-ed LIKE terms elsewhere.
func fullTextMatch(t target, column, value string) (predicate, bool) {
	columns := strings.Split(column, ",")
	idents := make([]interface{}, 0, len(columns)+1)
	placeholders := make([]string, 0, len(columns))
	for _, c := range columns {
		if c = strings.TrimSpace(c); c == "" {
			continue
		}
		idents = append(idents, t.ident(c))
		placeholders = append(placeholders, "?")
	}
	if len(placeholders) == 0 {
		return predicate{}, false
	}

	switch t.dialect {
	case dialect.MySQL:
		return predicate{
			query: "MATCH (" + strings.Join(placeholders, ", ") + ") AGAINST (? IN NATURAL LANGUAGE MODE)",
			args:  append(idents, value),
		}, true
	case dialect.PG:
		vectors := make([]string, len(placeholders))
		for i := range placeholders {
			vectors[i] = "to_tsvector('english', ?)"
		}
		return predicate{
			query: "(" + strings.Join(vectors, " || ") + ") @@ plainto_tsquery('english', ?)",
			args:  append(idents, value),
		}, true
	}

	terms := make([]string, len(placeholders))
	args := make([]interface{}, 0, 2*len(idents))
	for i, ident := range idents {
		terms[i] = "? LIKE ?"
		args = append(args, ident, "%"+value+"%")
	}
	return predicate{query: "(" + strings.Join(terms, " OR ") + ")", args: args}, true
}
