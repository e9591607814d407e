// Package filter implements search, categorical and range filtering over small
// in-memory collections, plus the per-value counts shown next to filter labels.
//
// Filtering never fails for expected conditions. An unknown field simply does
// not match, and an empty collection yields an empty result. The only error is
// a malformed Criteria, reported as an apperr.KindMalformed error.
package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/kalambet/jobportal/internal/apperr"
)

// All is the field filter value meaning "no constraint on this field".
const All = "all"

// Range is an inclusive numeric bound. A nil side is unbounded.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Between returns a Range with both bounds set.
func Between(lo, hi float64) Range { return Range{Min: &lo, Max: &hi} }

// AtLeast returns a Range bounded below.
func AtLeast(lo float64) Range { return Range{Min: &lo} }

// AtMost returns a Range bounded above.
func AtMost(hi float64) Range { return Range{Max: &hi} }

func (r Range) contains(f float64) bool {
	if r.Min != nil && f < *r.Min {
		return false
	}
	if r.Max != nil && f > *r.Max {
		return false
	}
	return true
}

// SortKey orders a result by one field.
type SortKey struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// Criteria is the set of constraints active on a list view.
type Criteria struct {
	Query        string           `json:"query,omitempty"`
	SearchFields []string         `json:"search_fields,omitempty"`
	FieldFilters map[string]any   `json:"field_filters,omitempty"`
	RangeFilters map[string]Range `json:"range_filters,omitempty"`
	Sort         *SortKey         `json:"sort,omitempty"`

	// Contains holds partial, case-insensitive matches on single fields,
	// e.g. a location box where "new york" finds "New York, NY".
	Contains map[string]string `json:"contains,omitempty"`
}

// Validate reports whether c can be evaluated.
func Validate(c Criteria) error {
	const op = "filter.Validate"
	if c.Query != "" && len(c.SearchFields) == 0 {
		return apperr.Malformed("query given without search fields").WithOp(op)
	}
	for _, f := range c.SearchFields {
		if strings.TrimSpace(f) == "" {
			return apperr.Malformed("empty search field name").WithOp(op)
		}
	}
	for f, v := range c.FieldFilters {
		if strings.TrimSpace(f) == "" {
			return apperr.Malformed("empty filter field name").WithOp(op)
		}
		if v == nil {
			continue
		}
		if _, ok := scalarString(v); !ok {
			return apperr.Malformed(fmt.Sprintf("filter %q: value must be a string, number or boolean", f)).
				WithOp(op).WithField(f)
		}
	}
	for f := range c.Contains {
		if strings.TrimSpace(f) == "" {
			return apperr.Malformed("empty contains field name").WithOp(op)
		}
	}
	for f, r := range c.RangeFilters {
		if strings.TrimSpace(f) == "" {
			return apperr.Malformed("empty range field name").WithOp(op)
		}
		if (r.Min != nil && math.IsNaN(*r.Min)) || (r.Max != nil && math.IsNaN(*r.Max)) {
			return apperr.Malformed(fmt.Sprintf("range %q: bound is not a number", f)).WithOp(op).WithField(f)
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return apperr.Malformed(fmt.Sprintf("range %q: min %g exceeds max %g", f, *r.Min, *r.Max)).
				WithOp(op).WithField(f)
		}
	}
	if c.Sort != nil && strings.TrimSpace(c.Sort.Field) == "" {
		return apperr.Malformed("empty sort field").WithOp(op)
	}
	return nil
}

// Apply returns the records of rs that satisfy every constraint of c. Relative
// order is kept unless c.Sort is set, in which case the result is stably sorted.
// rs is not modified; the result shares record values with rs.
func Apply(rs []Record, c Criteria) ([]Record, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}
	q := fold(c.Query)
	out := make([]Record, 0, len(rs))
	for _, r := range rs {
		if match(r, c, q) {
			out = append(out, r)
		}
	}
	if c.Sort != nil {
		sortInPlace(out, *c.Sort)
	}
	return out, nil
}

// Match reports whether r satisfies c. Malformed criteria match nothing.
func Match(r Record, c Criteria) bool {
	if Validate(c) != nil {
		return false
	}
	return match(r, c, fold(c.Query))
}

func match(r Record, c Criteria, foldedQuery string) bool {
	if foldedQuery != "" && !matchQuery(r, c.SearchFields, foldedQuery) {
		return false
	}
	for f, want := range c.FieldFilters {
		if !matchField(r, f, want) {
			return false
		}
	}
	for f, part := range c.Contains {
		if !matchContains(r, f, part) {
			return false
		}
	}
	for f, rg := range c.RangeFilters {
		if !matchRange(r, f, rg) {
			return false
		}
	}
	return true
}

func matchQuery(r Record, fields []string, q string) bool {
	for _, f := range fields {
		v, ok := r[f]
		if !ok {
			continue
		}
		if list, ok := stringList(v); ok {
			for _, e := range list {
				if strings.Contains(fold(e), q) {
					return true
				}
			}
			continue
		}
		if s, ok := scalarString(v); ok && strings.Contains(fold(s), q) {
			return true
		}
	}
	return false
}

// Unconstrained reports whether a field filter value disables its constraint.
func Unconstrained(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == "" || fold(x) == All
	}
	return false
}

func matchField(r Record, field string, want any) bool {
	if Unconstrained(want) {
		return true
	}
	wantText, ok := scalarString(want)
	if !ok {
		return false
	}
	v, ok := r[field]
	if !ok {
		return false
	}
	if list, ok := stringList(v); ok {
		for _, e := range list {
			if equalValues(e, wantText) {
				return true
			}
		}
		return false
	}
	got, ok := scalarString(v)
	if !ok {
		return false
	}
	return equalValues(got, wantText)
}

func matchContains(r Record, field, part string) bool {
	part = strings.TrimSpace(part)
	if Unconstrained(part) {
		return true
	}
	return matchQuery(r, []string{field}, fold(part))
}

func equalValues(a, b string) bool {
	if fold(a) == fold(b) {
		return true
	}
	fa, okA := numeric(a)
	fb, okB := numeric(b)
	return okA && okB && fa == fb
}

func matchRange(r Record, field string, rg Range) bool {
	v, ok := r[field]
	if !ok {
		return false
	}
	f, ok := numeric(v)
	if !ok {
		return false
	}
	return rg.contains(f)
}
