package filter

import (
	"cmp"
	"slices"
	"strings"
)

// CountBy counts records per value of field over rs. List values count each
// element; records without the field are skipped. Whether rs is the base
// collection or an already filtered one is up to the caller.
func CountBy(rs []Record, field string) map[string]int {
	counts := make(map[string]int)
	for _, r := range rs {
		v, ok := r[field]
		if !ok {
			continue
		}
		if list, ok := stringList(v); ok {
			for _, e := range list {
				counts[e]++
			}
			continue
		}
		if s, ok := scalarString(v); ok {
			counts[s]++
		}
	}
	return counts
}

// Sort returns a stably sorted copy of rs. Numbers sort numerically, text
// case-insensitively, and records missing the field go last in both directions.
func Sort(rs []Record, key SortKey) []Record {
	out := slices.Clone(rs)
	if out == nil {
		out = []Record{}
	}
	sortInPlace(out, key)
	return out
}

func sortInPlace(rs []Record, key SortKey) {
	slices.SortStableFunc(rs, func(a, b Record) int {
		return compareRecords(a, b, key)
	})
}

func compareRecords(a, b Record, key SortKey) int {
	av, aok := a[key.Field]
	bv, bok := b[key.Field]
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	c := compareValues(av, bv)
	if key.Desc {
		c = -c
	}
	return c
}

func compareValues(a, b any) int {
	fa, okA := numeric(a)
	fb, okB := numeric(b)
	switch {
	case okA && okB:
		return cmp.Compare(fa, fb)
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(fold(text(a)), fold(text(b)))
}
