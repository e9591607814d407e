// Package notify delivers the short toast-style messages that follow a form
// submission or an admin action.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Severity of a notification.
type Severity string

const (
	Default     Severity = "default"
	Destructive Severity = "destructive"
)

// Notification is one transient user-visible message.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Time        time.Time `json:"time"`
}

// Info returns a default-severity notification.
func Info(title, description string) Notification {
	return Notification{Title: title, Description: description, Severity: Default}
}

// Alert returns a destructive notification.
func Alert(title, description string) Notification {
	return Notification{Title: title, Description: description, Severity: Destructive}
}

// Notifier displays or forwards a notification. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Multi fans a notification out to every notifier in order. Nil entries are skipped.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	for _, x := range m {
		if x != nil {
			x.Notify(ctx, n)
		}
	}
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if n.Severity == Destructive {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "notification", "title", n.Title, "description", n.Description)
}

// Feed keeps the most recent notifications in memory so API clients can poll
// them. Nothing is persisted.
type Feed struct {
	mu    sync.Mutex
	items []Notification
	next  int
	full  bool
}

// DefaultFeedSize is the capacity used when NewFeed gets a non-positive size.
const DefaultFeedSize = 50

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Feed{items: make([]Notification, size)}
}

func (f *Feed) Notify(_ context.Context, n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[f.next] = n
	f.next = (f.next + 1) % len(f.items)
	if f.next == 0 {
		f.full = true
	}
}

// List returns the buffered notifications, oldest first.
func (f *Feed) List() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.full {
		out := make([]Notification, f.next)
		copy(out, f.items[:f.next])
		return out
	}
	out := make([]Notification, 0, len(f.items))
	out = append(out, f.items[f.next:]...)
	out = append(out, f.items[:f.next]...)
	return out
}

// Since returns the buffered notifications newer than t, oldest first.
func (f *Feed) Since(t time.Time) []Notification {
	all := f.List()
	out := all[:0]
	for _, n := range all {
		if n.Time.After(t) {
			out = append(out, n)
		}
	}
	return out
}
