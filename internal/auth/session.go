package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionContext is one user's sign-in state. Components that need to know
// who is signed in receive it explicitly.
type SessionContext struct {
	mu            sync.Mutex
	identifier    string
	role          Role
	authenticated bool
	lastSeen      time.Time
	now           func() time.Time
}

// NewSessionContext returns a signed-out session.
func NewSessionContext() *SessionContext {
	return &SessionContext{now: time.Now}
}

// Login marks the session as signed in as identifier with role.
func (s *SessionContext) Login(identifier string, role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identifier = identifier
	s.role = role
	s.authenticated = true
	s.lastSeen = s.now()
}

// Logout signs the session out.
func (s *SessionContext) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identifier = ""
	s.role = ""
	s.authenticated = false
}

func (s *SessionContext) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Role returns the signed-in role, or "" when signed out.
func (s *SessionContext) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *SessionContext) Identifier() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identifier
}

// Has reports whether the session is signed in with role.
func (s *SessionContext) Has(role Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated && s.role == role
}

func (s *SessionContext) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *SessionContext) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(cutoff)
}

// Sessions maps bearer tokens to sessions.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*SessionContext
	now      func() time.Time
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*SessionContext), now: time.Now}
}

// Issue signs in a new session and returns its token.
func (s *Sessions) Issue(identifier string, role Role) (string, *SessionContext) {
	sc := &SessionContext{now: s.now}
	sc.Login(identifier, role)
	token := uuid.NewString()

	s.mu.Lock()
	s.sessions[token] = sc
	s.mu.Unlock()
	return token, sc
}

// Lookup returns the signed-in session for token.
func (s *Sessions) Lookup(token string) (*SessionContext, bool) {
	s.mu.Lock()
	sc, ok := s.sessions[token]
	s.mu.Unlock()
	if !ok || !sc.Authenticated() {
		return nil, false
	}
	sc.touch()
	return sc, true
}

// Revoke logs the session out and forgets the token. It reports whether the token was known.
func (s *Sessions) Revoke(token string) bool {
	s.mu.Lock()
	sc, ok := s.sessions[token]
	delete(s.sessions, token)
	s.mu.Unlock()
	if ok {
		sc.Logout()
	}
	return ok
}

// Sweep revokes sessions not used since cutoff and returns how many it removed.
func (s *Sessions) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, sc := range s.sessions {
		if !sc.Authenticated() || sc.idleSince(cutoff) {
			sc.Logout()
			delete(s.sessions, token)
			n++
		}
	}
	return n
}

// Len returns the number of tracked sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type ctxKey struct{}

// WithSession returns a context carrying sc.
func WithSession(ctx context.Context, sc *SessionContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, sc)
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (*SessionContext, bool) {
	sc, ok := ctx.Value(ctxKey{}).(*SessionContext)
	return sc, ok && sc != nil
}
