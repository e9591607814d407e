// Package form holds controlled form state and the simulated asynchronous
// submit used by every form of the portal.
//
// A Store accepts one submission at a time. Validation runs synchronously;
// success is delivered after a configured delay through a cancellable
// callback, so closing a form never leaves a callback pending.
package form

import (
	"maps"
	"sync"
	"time"

	"github.com/kalambet/jobportal/internal/apperr"
	"github.com/kalambet/jobportal/internal/delay"
)

// State is the flat field → value mapping of a form.
type State map[string]any

// Clone returns a shallow copy of s.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	return maps.Clone(s)
}

// String returns the field as a string, or "" when it is missing or not a string.
func (s State) String(field string) string {
	v, _ := s[field].(string)
	return v
}

// Validator checks a snapshot of the state. A nil error means valid.
type Validator func(State) *apperr.Error

// Outcome of a Submit call.
type Outcome int

const (
	// OutcomeRejected means validation failed and onFailure was called.
	OutcomeRejected Outcome = iota
	// OutcomeScheduled means onSuccess will run after the delay.
	OutcomeScheduled
	// OutcomeIgnored means a submission was already in flight or the store is closed.
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeScheduled:
		return "scheduled"
	default:
		return "ignored"
	}
}

// Store is the state of one form instance.
type Store struct {
	mu         sync.Mutex
	state      State
	submitting bool
	closed     bool
	delay      time.Duration
	sched      delay.Scheduler
	pending    delay.Handle
	gen        uint64
}

// New returns a Store with a copy of initial. A nil scheduler uses real timers.
func New(d time.Duration, sched delay.Scheduler, initial State) *Store {
	if sched == nil {
		sched = delay.Timer{}
	}
	return &Store{state: initial.Clone(), delay: d, sched: sched}
}

// Update replaces one field. It does not validate.
func (s *Store) Update(field string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[field] = value
}

// Get returns one field.
func (s *Store) Get(field string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state[field]
	return v, ok
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Submitting reports whether a submission is in flight.
func (s *Store) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// Reset replaces the whole state. It is refused while a submission is in
// flight and reports whether the state was replaced.
func (s *Store) Reset(initial State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting || s.closed {
		return false
	}
	s.state = initial.Clone()
	return true
}

// Submit validates the current state. On failure it calls onFailure before
// returning and leaves the store idle. On success it marks the store as
// submitting and calls onSuccess with the state as of this call once the delay
// has elapsed; submitting is cleared after onSuccess returns. While a
// submission is in flight further calls do nothing.
func (s *Store) Submit(validate Validator, onSuccess func(State), onFailure func(*apperr.Error)) Outcome {
	s.mu.Lock()
	if s.closed || s.submitting {
		s.mu.Unlock()
		return OutcomeIgnored
	}
	snap := s.state.Clone()
	var verr *apperr.Error
	if validate != nil {
		verr = validate(snap)
	}
	if verr != nil {
		s.mu.Unlock()
		if onFailure != nil {
			onFailure(verr)
		}
		return OutcomeRejected
	}

	s.submitting = true
	s.gen++
	gen := s.gen
	s.pending = s.sched.AfterFunc(s.delay, func() { s.complete(gen, snap, onSuccess) })
	s.mu.Unlock()
	return OutcomeScheduled
}

func (s *Store) complete(gen uint64, snap State, onSuccess func(State)) {
	s.mu.Lock()
	if gen != s.gen || !s.submitting {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.mu.Unlock()

	if onSuccess != nil {
		onSuccess(snap)
	}

	s.mu.Lock()
	if gen == s.gen {
		s.submitting = false
	}
	s.mu.Unlock()
}

// Cancel abandons an in-flight submission so its onSuccess never runs. It
// reports whether a pending callback was stopped.
func (s *Store) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.submitting || s.pending == nil {
		return false
	}
	stopped := s.pending.Stop()
	s.pending = nil
	s.gen++
	s.submitting = false
	return stopped
}

// Close cancels any pending submission and refuses further submits.
func (s *Store) Close() {
	s.Cancel()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
