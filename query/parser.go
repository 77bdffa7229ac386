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
	"net/url"
	"sort"
	"strings"

	"github.com/tomoncle/restcore/types"
	"github.com/valyala/fasthttp"
)

// Operator is the tag following the colon of a filter key, e.g. the "gte"
// in "age:gte=30". The empty operator means equality.
type Operator string

const (
	OpEqual      Operator = ""
	OpNot        Operator = "not"
	OpLike       Operator = "like"
	OpGte        Operator = "gte"
	OpGt         Operator = "gt"
	OpLte        Operator = "lte"
	OpLt         Operator = "lt"
	OpBool       Operator = "bool"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not_in"
	OpNull       Operator = "null"
	OpBetween    Operator = "between"
	OpBetweenNot Operator = "between_not"
	OpDate       Operator = "date"
	OpYear       Operator = "year"
	OpTime       Operator = "time"
	OpColumn     Operator = "column"
	// OpFullText marks a search over a registered group of columns.
	OpFullText Operator = "search"
)

// Reserved parameter keys, consumed by the list options and never parsed as
// filters.
const (
	KeySortBy  = "sort_by"
	KeyPage    = "page"
	KeyPerPage = "per_page"
)

var reservedKeys = map[string]struct{}{
	KeySortBy:  {},
	KeyPage:    {},
	KeyPerPage: {},
}

// IsReserved reports whether key is handled outside filter parsing.
func IsReserved(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// Param is one raw request parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of raw request parameters. Order matters: a
// later filter on the same field replaces an earlier one.
type Params []Param

// Add appends a parameter.
func (p *Params) Add(key, value string) {
	*p = append(*p, Param{Key: key, Value: value})
}

// Get returns the last value stored under key.
func (p Params) Get(key string) (string, bool) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Key == key {
			return p[i].Value, true
		}
	}
	return "", false
}

// All returns every value stored under key, in order.
func (p Params) All(key string) []string {
	var values []string
	for _, param := range p {
		if param.Key == key {
			values = append(values, param.Value)
		}
	}
	return values
}

// Filters returns the parameters without the reserved keys.
func (p Params) Filters() Params {
	out := make(Params, 0, len(p))
	for _, param := range p {
		if !IsReserved(param.Key) {
			out = append(out, param)
		}
	}
	return out
}

// ParseQueryString decodes a raw query string keeping parameter order.
func ParseQueryString(raw string) Params {
	var args fasthttp.Args
	args.Parse(strings.TrimPrefix(raw, "?"))
	return ParamsFromArgs(&args)
}

// ParamsFromArgs collects fasthttp query arguments in request order.
func ParamsFromArgs(args *fasthttp.Args) Params {
	params := make(Params, 0, args.Len())
	args.VisitAll(func(key, value []byte) {
		params.Add(string(key), string(value))
	})
	return params
}

// ParamsFromValues converts url.Values. Keys are sorted, since the map has no
// order, and only the last value of each key is kept.
func ParamsFromValues(values url.Values) Params {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make(Params, 0, len(keys))
	for _, k := range keys {
		if v := values[k]; len(v) > 0 {
			params.Add(k, v[len(v)-1])
		}
	}
	return params
}

// FilterDescriptor is one parsed filter parameter.
type FilterDescriptor struct {
	Column   string
	Operator Operator
	Value    string
}

// FullTextGroup maps a search alias to the columns it searches.
type FullTextGroup map[string][]string

// ParseParams turns params into filter descriptors. Reserved keys are
// skipped, as are keys whose field part is empty. A search filter on an
// alias missing from fullText fails with a ConfigurationError before any
// descriptor is produced. When two parameters resolve to the same column
// the later one replaces the earlier one in place.
func ParseParams(params Params, fullText FullTextGroup) ([]FilterDescriptor, error) {
	return mergeFilters(nil, params, fullText)
}

func mergeFilters(existing []FilterDescriptor, params Params, fullText FullTextGroup) ([]FilterDescriptor, error) {
	type parsed struct {
		field string
		op    Operator
		value string
	}

	entries := make([]parsed, 0, len(params))
	for _, param := range params {
		if IsReserved(param.Key) {
			continue
		}
		field, op := splitKey(param.Key)
		if field == "" {
			continue
		}
		if op == OpFullText {
			columns, ok := fullText[field]
			if !ok || len(columns) == 0 {
				return nil, types.NewConfigurationError("fulltext search key %q is not configured", field)
			}
			field = strings.Join(columns, ",")
		}
		entries = append(entries, parsed{field: field, op: op, value: param.Value})
	}

	out := make([]FilterDescriptor, len(existing), len(existing)+len(entries))
	copy(out, existing)
	index := make(map[string]int, len(out))
	for i, f := range out {
		index[f.Column] = i
	}
	for _, e := range entries {
		f := FilterDescriptor{Column: e.field, Operator: e.op, Value: e.value}
		if i, ok := index[e.field]; ok {
			out[i] = f
			continue
		}
		index[e.field] = len(out)
		out = append(out, f)
	}
	return out, nil
}

// splitKey splits "field:op" on the first colon. Segments after the second
// are ignored.
func splitKey(key string) (string, Operator) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) == 1 {
		return parts[0], OpEqual
	}
	return parts[0], Operator(parts[1])
}
