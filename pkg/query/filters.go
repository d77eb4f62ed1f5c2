// Copyright 2026 SG Prop Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FilterableColumns is the allow-list of columns a filter (or groupBy, or
// analytics dimension) may reference. Anything else is rejected before any
// SQL is composed.
var FilterableColumns = []string{
	"property_type",
	"transaction_type",
	"represented",
	"town",
	"district",
}

func isFilterable(col string) bool {
	for _, c := range FilterableColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Condition restricts one column to a set of values: a scalar filter carries
// one value, an array filter several (matched disjunctively).
type Condition struct {
	Column string
	Values []string
}

// Filters is a conjunction of conditions, held in column order so that the
// same logical filter always composes the same SQL text (and therefore reuses
// the same prepared statement).
type Filters []Condition

// ParseFilters decodes the filters query parameter: a JSON object whose keys
// are filterable columns and whose values are strings or arrays of strings.
// An empty raw string means "no filter" and returns nil without error.
func ParseFilters(raw string) (Filters, error) {
	if raw == "" {
		return nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("%w: malformed filters: %v", ErrInvalidArgument, err)
	}

	f := make(Filters, 0, len(obj))
	for col, rawVal := range obj {
		if !isFilterable(col) {
			return nil, fmt.Errorf("%w: unknown filter key %q", ErrInvalidArgument, col)
		}

		var scalar string
		if err := json.Unmarshal(rawVal, &scalar); err == nil {
			f = append(f, Condition{Column: col, Values: []string{scalar}})
			continue
		}
		var list []string
		if err := json.Unmarshal(rawVal, &list); err != nil {
			return nil, fmt.Errorf("%w: filter %q must be a string or array of strings", ErrInvalidArgument, col)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: filter %q has no values", ErrInvalidArgument, col)
		}
		f = append(f, Condition{Column: col, Values: list})
	}

	sort.Slice(f, func(i, j int) bool { return f[i].Column < f[j].Column })
	return f, nil
}

// Empty reports whether the filter restricts nothing, which is what makes an
// endpoint eligible for its fast path.
func (f Filters) Empty() bool {
	return len(f) == 0
}

// Where renders the filter as a parameter-bound SQL fragment without the
// leading WHERE, plus its bind arguments. Returns "" for an empty filter.
// Values are never spliced into the SQL text.
func (f Filters) Where() (string, []any) {
	if len(f) == 0 {
		return "", nil
	}

	var (
		parts []string
		args  []any
	)
	for _, cond := range f {
		if len(cond.Values) == 1 {
			parts = append(parts, cond.Column+" = ?")
			args = append(args, cond.Values[0])
			continue
		}
		placeholders := strings.Repeat("?, ", len(cond.Values))
		parts = append(parts, cond.Column+" IN ("+placeholders[:len(placeholders)-2]+")")
		for _, v := range cond.Values {
			args = append(args, v)
		}
	}
	return strings.Join(parts, " AND "), args
}

// whereClause prepends WHERE when the fragment is non-empty, and joins any
// extra fixed predicates conjunctively.
func whereClause(f Filters, extra ...string) (string, []any) {
	frag, args := f.Where()
	parts := make([]string, 0, 1+len(extra))
	if frag != "" {
		parts = append(parts, frag)
	}
	parts = append(parts, extra...)
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}
