package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/jobportal/internal/delay"
	"github.com/kalambet/jobportal/internal/responder"
)

// Registry holds open chat sessions keyed by id.
type Registry struct {
	responder *responder.Responder
	sched     delay.Scheduler
	delay     time.Duration
	clock     Clock

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(r *responder.Responder, sched delay.Scheduler, replyDelay time.Duration, clock Clock) *Registry {
	return &Registry{
		responder: r,
		sched:     sched,
		delay:     replyDelay,
		clock:     clock,
		sessions:  make(map[string]*Session),
	}
}

// Start opens a new session for persona and returns its id.
func (r *Registry) Start(p responder.Persona) (string, *Session) {
	s := NewSession(p, r.responder, r.sched, r.delay, r.clock)
	s.Open()
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return id, s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// End closes and forgets a session.
func (r *Registry) End(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// Sweep closes sessions not used since cutoff and returns how many.
func (r *Registry) Sweep(cutoff time.Time) int {
	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.idleSince(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range idle {
		s.Close()
	}
	return len(idle)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
