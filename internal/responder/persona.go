package responder

import (
	"fmt"
	"strings"
)

// Persona selects the audience of a chat: job seekers or hiring companies.
type Persona string

const (
	JobSeeker Persona = "jobseeker"
	Company   Persona = "company"
)

// Personas lists every supported persona.
var Personas = []Persona{JobSeeker, Company}

// ParsePersona accepts "jobseeker", "job-seeker", "seeker" and "company" in any case.
func ParsePersona(s string) (Persona, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jobseeker", "job-seeker", "job_seeker", "seeker":
		return JobSeeker, nil
	case "company", "employer":
		return Company, nil
	}
	return "", fmt.Errorf("unknown persona %q", s)
}

// Script is everything one persona's assistant says.
type Script struct {
	Title     string
	Greeting  string
	Table     Table
	Fallbacks []string
}

// Responder holds the scripts of all personas.
type Responder struct {
	scripts map[Persona]Script
	rnd     RandomSource
}

// New returns a Responder with the built-in scripts. A nil rnd uses DefaultRandom.
func New(rnd RandomSource) *Responder {
	return NewWithScripts(DefaultScripts(), rnd)
}

// NewWithScripts returns a Responder over custom scripts.
func NewWithScripts(scripts map[Persona]Script, rnd RandomSource) *Responder {
	if rnd == nil {
		rnd = DefaultRandom
	}
	return &Responder{scripts: scripts, rnd: rnd}
}

// Respond answers input in persona p's voice.
func (r *Responder) Respond(p Persona, input string) string {
	s := r.scripts[p]
	return Respond(input, s.Table, s.Fallbacks, r.rnd)
}

// Greeting is the first message of a fresh chat.
func (r *Responder) Greeting(p Persona) string {
	return r.scripts[p].Greeting
}

// Title names the assistant, e.g. "HR Assistant".
func (r *Responder) Title(p Persona) string {
	return r.scripts[p].Title
}

// Script returns persona p's script.
func (r *Responder) Script(p Persona) (Script, bool) {
	s, ok := r.scripts[p]
	return s, ok
}
