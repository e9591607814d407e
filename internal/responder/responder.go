// Package responder answers chat messages from ordered keyword tables.
//
// A message that contains a known keyword always gets that keyword's canned
// response. Anything else gets a fallback picked at random, so repeated
// questions do not read like a script. Tests inject a fixed RandomSource.
package responder

import (
	"math/rand/v2"
	"strings"

	"golang.org/x/text/cases"
)

// Entry maps one keyword to its canned response.
type Entry struct {
	Keyword  string
	Response string
}

// Table is an ordered keyword table. The first matching entry wins.
type Table []Entry

// RandomSource yields floats in [0, 1).
type RandomSource interface {
	Float64() float64
}

// RandomFunc adapts a function to RandomSource.
type RandomFunc func() float64

func (f RandomFunc) Float64() float64 { return f() }

// DefaultRandom draws from the unseeded global math/rand/v2 source.
var DefaultRandom RandomSource = RandomFunc(rand.Float64)

// Respond returns the response of the first entry whose keyword occurs in input,
// ignoring case. Without a match it returns a fallback chosen with rnd, or "" if
// there are no fallbacks. A nil rnd uses DefaultRandom.
func Respond(input string, table Table, fallbacks []string, rnd RandomSource) string {
	folder := cases.Fold()
	in := folder.String(input)
	for _, e := range table {
		if e.Keyword == "" {
			continue
		}
		if strings.Contains(in, folder.String(e.Keyword)) {
			return e.Response
		}
	}
	return pick(fallbacks, rnd)
}

// Lookup returns the first matching entry without falling back.
func Lookup(input string, table Table) (Entry, bool) {
	folder := cases.Fold()
	in := folder.String(input)
	for _, e := range table {
		if e.Keyword != "" && strings.Contains(in, folder.String(e.Keyword)) {
			return e, true
		}
	}
	return Entry{}, false
}

func pick(fallbacks []string, rnd RandomSource) string {
	if len(fallbacks) == 0 {
		return ""
	}
	if rnd == nil {
		rnd = DefaultRandom
	}
	i := int(rnd.Float64() * float64(len(fallbacks)))
	// Guard against sources that stray outside [0, 1).
	if i < 0 {
		i = 0
	}
	if i >= len(fallbacks) {
		i = len(fallbacks) - 1
	}
	return fallbacks[i]
}
