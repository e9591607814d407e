package filter

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Record is one item of a filterable list: a job, an application, a user, a
// prospect. Values are strings, numbers, booleans or lists of strings.
type Record map[string]any

// ID returns the string form of the record's id field, or "" if it has none.
func (r Record) ID() string {
	s, _ := scalarString(r["id"])
	return s
}

// Clone returns a copy of r whose list values are copied too.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		switch x := v.(type) {
		case []string:
			out[k] = append([]string(nil), x...)
		case []any:
			out[k] = append([]any(nil), x...)
		default:
			out[k] = v
		}
	}
	return out
}

// CloneAll copies every record of rs.
func CloneAll(rs []Record) []Record {
	out := make([]Record, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}

// Source lists the records of one collection. It decouples filtering from where
// records come from: seeded slices, SQLite or Postgres.
type Source interface {
	List(ctx context.Context) ([]Record, error)
}

// SliceSource serves a fixed in-memory collection.
type SliceSource []Record

// List returns a copy of the collection so callers cannot mutate the seed.
func (s SliceSource) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return CloneAll(s), nil
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// scalarString returns the canonical text of a scalar value. Lists and maps are
// not scalars.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case json.Number:
		return x.String(), true
	}
	if f, ok := number(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// number converts Go numeric kinds to float64. Strings are not numbers here.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// Number reads v as a float the way range filters do: numbers and numeric
// strings such as "85" or " 4.5 ".
func Number(v any) (float64, bool) { return numeric(v) }

func numeric(v any) (float64, bool) {
	if f, ok := number(v); ok {
		return f, !math.IsNaN(f)
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// stringList returns the elements of a list value. Non-scalar elements make
// the value unusable as a list.
func stringList(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return x, true
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := scalarString(e)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// text renders any supported value for sorting: scalars as-is, lists joined.
func text(v any) string {
	if s, ok := scalarString(v); ok {
		return s
	}
	if list, ok := stringList(v); ok {
		return strings.Join(list, ", ")
	}
	return ""
}
