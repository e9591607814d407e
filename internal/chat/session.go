package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/jobportal/internal/delay"
	"github.com/kalambet/jobportal/internal/responder"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrClosed       = errors.New("chat is closed")
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry of a chat history.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultReplyDelay is how long the assistant "types" before answering.
const DefaultReplyDelay = time.Second

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Session is a chat window for one persona. A closed session holds no
// history; opening it starts over from the greeting.
type Session struct {
	persona   responder.Persona
	responder *responder.Responder
	sched     delay.Scheduler
	delay     time.Duration
	clock     Clock

	mu       sync.Mutex
	open     bool
	messages []Message
	pending  map[*pendingReply]struct{}
	lastSeen time.Time
}

type pendingReply struct {
	h delay.Handle
}

// NewSession returns a closed session. A nil scheduler uses real timers and a
// nil clock uses the wall clock.
func NewSession(p responder.Persona, r *responder.Responder, sched delay.Scheduler, d time.Duration, clock Clock) *Session {
	if sched == nil {
		sched = delay.Timer{}
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Session{
		persona:   p,
		responder: r,
		sched:     sched,
		delay:     d,
		clock:     clock,
		pending:   make(map[*pendingReply]struct{}),
		lastSeen:  clock.Now(),
	}
}

func (s *Session) Persona() responder.Persona { return s.persona }

// Open starts a fresh history with the persona greeting. Opening an open
// session is a no-op.
func (s *Session) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.clock.Now()
	if s.open {
		return
	}
	s.open = true
	s.messages = []Message{s.newMessage(s.responder.Greeting(s.persona), SenderBot)}
}

// Close cancels every reply still being typed and drops the history.
func (s *Session) Close() {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[*pendingReply]struct{})
	s.open = false
	s.messages = nil
	s.mu.Unlock()

	for p := range pending {
		p.h.Stop()
	}
}

// Toggle opens a closed session or closes an open one and reports the new state.
func (s *Session) Toggle() bool {
	if s.IsOpen() {
		s.Close()
		return false
	}
	s.Open()
	return true
}

func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Send appends the user's message and schedules the assistant's answer.
func (s *Session) Send(text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return Message{}, ErrClosed
	}
	s.lastSeen = s.clock.Now()
	msg := s.newMessage(text, SenderUser)
	s.messages = append(s.messages, msg)

	reply := s.responder.Respond(s.persona, text)
	p := &pendingReply{}
	p.h = s.sched.AfterFunc(s.delay, func() { s.deliver(p, reply) })
	s.pending[p] = struct{}{}
	return msg, nil
}

func (s *Session) deliver(p *pendingReply, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[p]; !ok {
		return
	}
	delete(s.pending, p)
	s.messages = append(s.messages, s.newMessage(text, SenderBot))
}

// Messages returns a copy of the history in order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Typing reports whether any reply is still pending.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(cutoff)
}

func (s *Session) newMessage(text string, from Sender) Message {
	return Message{ID: uuid.NewString(), Text: text, Sender: from, Timestamp: s.clock.Now()}
}
