// Package query decodes the list/search parameter sent by the web client
// and translates its match modes into store operators.
package query

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidSearch is returned when the search parameter is not valid JSON.
var ErrInvalidSearch = errors.New("invalid search parameter")

// Store operators.
const (
	OpEqual             = "equal"
	OpNotEqual          = "not_equal"
	OpContains          = "contains"
	OpDateEqual         = "date_equal"
	OpDateNotEqual      = "date_not_equal"
	OpDateBefore        = "date_before"
	OpDateAfter         = "date_after"
	OpDateBeforeOrEqual = "date_before_or_equal"
	OpEmpty             = "empty"
)

// Unpaged as Rows disables pagination.
const Unpaged = -1

var matchModes = map[string]string{
	"equals":     OpEqual,
	"contains":   OpContains,
	"dateIs":     OpDateEqual,
	"dateIsNot":  OpDateNotEqual,
	"dateBefore": OpDateBefore,
	"dateAfter":  OpDateAfter,
}

// Operator maps a client match mode to a store operator. Unknown modes are
// returned unchanged so callers may pass store operators directly.
func Operator(matchMode string) string {
	if op, ok := matchModes[matchMode]; ok {
		return op
	}
	return matchMode
}

type Constraint struct {
	Value     any    `json:"value"`
	MatchMode string `json:"matchMode"`
}

type FieldFilter struct {
	Constraints []Constraint `json:"constraints"`
}

// Search is the resolved filter, sort and page request.
type Search struct {
	Page      int                    `json:"page"`
	Rows      int                    `json:"rows"`
	SortField string                 `json:"sortField,omitempty"`
	SortOrder int                    `json:"sortOrder"`
	Filters   map[string]FieldFilter `json:"filters"`
}

// Condition is one translated filter constraint.
type Condition struct {
	Field    string
	Operator string
	Value    any
}

// Parse decodes raw (the "search" query parameter). An empty string yields
// the defaults: first page, defaultRows rows, ascending.
func Parse(raw string, defaultRows int) (Search, error) {
	s := Search{Rows: defaultRows, SortOrder: 1}
	raw = strings.TrimSpace(raw)
	if raw != "" {
		var in struct {
			Page      *int                   `json:"page"`
			Rows      *int                   `json:"rows"`
			SortField string                 `json:"sortField"`
			SortOrder *int                   `json:"sortOrder"`
			Filters   map[string]FieldFilter `json:"filters"`
		}
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			return Search{}, errors.Wrap(ErrInvalidSearch, err.Error())
		}
		if in.Page != nil && *in.Page > 0 {
			s.Page = *in.Page
		}
		if in.Rows != nil && *in.Rows > 0 {
			s.Rows = *in.Rows
		}
		if in.SortOrder != nil && *in.SortOrder == -1 {
			s.SortOrder = -1
		}
		s.SortField = in.SortField
		s.Filters = in.Filters
	}
	if s.Filters == nil {
		s.Filters = map[string]FieldFilter{}
	}
	return s, nil
}

// All returns an unpaged search without filters.
func All() Search {
	return Search{Rows: Unpaged, SortOrder: 1, Filters: map[string]FieldFilter{}}
}

// With returns a copy of s with one more constraint on field.
func (s Search) With(field, matchMode string, value any) Search {
	filters := make(map[string]FieldFilter, len(s.Filters)+1)
	for k, v := range s.Filters {
		filters[k] = v
	}
	ff := filters[field]
	ff.Constraints = append(append([]Constraint(nil), ff.Constraints...), Constraint{Value: value, MatchMode: matchMode})
	filters[field] = ff
	s.Filters = filters
	return s
}

// Conditions flattens the filters into store conditions ordered by field
// name. Constraints without a value are skipped, except for the empty
// operator which takes none.
func (s Search) Conditions() []Condition {
	fields := make([]string, 0, len(s.Filters))
	for f := range s.Filters {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var out []Condition
	for _, f := range fields {
		for _, c := range s.Filters[f].Constraints {
			op := Operator(c.MatchMode)
			if c.Value == nil && op != OpEmpty {
				continue
			}
			out = append(out, Condition{Field: f, Operator: op, Value: c.Value})
		}
	}
	return out
}

// Paged reports whether a limit applies.
func (s Search) Paged() bool { return s.Rows > 0 }

func (s Search) Offset() int {
	if !s.Paged() {
		return 0
	}
	return s.Page * s.Rows
}

func (s Search) Descending() bool { return s.SortOrder == -1 }

// Window slices total items down to the requested page. It returns start and
// end indexes into a slice of length n.
func (s Search) Window(n int) (int, int) {
	if !s.Paged() {
		return 0, n
	}
	start := s.Offset()
	if start > n {
		start = n
	}
	end := start + s.Rows
	if end > n {
		end = n
	}
	return start, end
}
