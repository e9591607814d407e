package responder

import (
	"slices"
	"testing"
)

type fixedRandom float64

func (f fixedRandom) Float64() float64 { return float64(f) }

func TestRespond_ResumeScenario(t *testing.T) {
	table := Table{{Keyword: "resume", Response: "R1"}}
	got := Respond("tips for my RESUME please", table, []string{"fallback"}, nil)
	if got != "R1" {
		t.Errorf("Respond = %q, want R1", got)
	}
}

func TestRespond_FirstMatchWins(t *testing.T) {
	table := Table{
		{Keyword: "interview", Response: "I"},
		{Keyword: "salary", Response: "S"},
	}
	// Both keywords occur; table order decides, not position in the input.
	for range 20 {
		if got := Respond("salary talk after the interview", table, []string{"f1", "f2"}, nil); got != "I" {
			t.Fatalf("Respond = %q, want I", got)
		}
	}
}

func TestRespond_FallbackMembership(t *testing.T) {
	fallbacks := []string{"a", "b", "c"}
	for range 200 {
		got := Respond("nothing relevant here", Table{{Keyword: "resume", Response: "R"}}, fallbacks, nil)
		if !slices.Contains(fallbacks, got) {
			t.Fatalf("Respond = %q, not a fallback", got)
		}
	}
}

func TestRespond_InjectedRandomPicksIndex(t *testing.T) {
	fallbacks := []string{"a", "b", "c"}
	cases := []struct {
		r    float64
		want string
	}{
		{0, "a"},
		{0.34, "b"},
		{0.999, "c"},
		{1, "c"},    // out of range, clamped
		{-0.5, "a"}, // out of range, clamped
	}
	for _, c := range cases {
		if got := Respond("", nil, fallbacks, fixedRandom(c.r)); got != c.want {
			t.Errorf("r=%v: got %q, want %q", c.r, got, c.want)
		}
	}
}

func TestRespond_NoFallbacks(t *testing.T) {
	if got := Respond("hello", nil, nil, nil); got != "" {
		t.Errorf("Respond = %q, want empty", got)
	}
}

func TestRespond_DoesNotMutate(t *testing.T) {
	table := Table{{Keyword: "Resume", Response: "R"}}
	fallbacks := []string{"x"}
	Respond("resume", table, fallbacks, nil)
	if table[0].Keyword != "Resume" || fallbacks[0] != "x" {
		t.Error("inputs were modified")
	}
}

func TestLookup(t *testing.T) {
	e, ok := Lookup("Need ONBOARDING help", DefaultScripts()[Company].Table)
	if !ok || e.Keyword != "onboarding" {
		t.Errorf("Lookup = %+v, %v", e, ok)
	}
	if _, ok := Lookup("hi", DefaultScripts()[Company].Table); ok {
		t.Error("Lookup matched unexpectedly")
	}
}

func TestResponder_Personas(t *testing.T) {
	r := New(fixedRandom(0))

	if got := r.Respond(JobSeeker, "How do I prepare for an Interview?"); got[:len("Interview preparation tips")] != "Interview preparation tips" {
		t.Errorf("jobseeker interview answer = %q", got)
	}
	// Company tables do not know about resumes.
	s, _ := r.Script(Company)
	if got := r.Respond(Company, "resume"); got != s.Fallbacks[0] {
		t.Errorf("company resume answer = %q, want first fallback", got)
	}
	if r.Greeting(JobSeeker) == r.Greeting(Company) {
		t.Error("greetings should differ per persona")
	}
	if r.Title(Company) != "HR Assistant" {
		t.Errorf("Title = %q", r.Title(Company))
	}
}

func TestParsePersona(t *testing.T) {
	for in, want := range map[string]Persona{"jobseeker": JobSeeker, "Job-Seeker": JobSeeker, " company ": Company} {
		got, err := ParsePersona(in)
		if err != nil || got != want {
			t.Errorf("ParsePersona(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePersona("recruiter"); err == nil {
		t.Error("expected error for unknown persona")
	}
}
