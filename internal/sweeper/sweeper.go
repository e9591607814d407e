// Package sweeper periodically closes chat windows, open forms and sign-in
// sessions nobody has touched for a while.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Target is anything holding idle state: chat.Registry, form.Registry, auth.Sessions.
type Target interface {
	Sweep(cutoff time.Time) int
}

// Sweeper wraps robfig/cron and runs every target's Sweep on a fixed interval.
type Sweeper struct {
	cron   *cron.Cron
	spec   string
	idle   time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	targets []named
}

type named struct {
	name string
	t    Target
}

// New creates a Sweeper that fires every interval and closes whatever has been
// idle longer than idle.
func New(interval, idle time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	cronLog := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	return &Sweeper{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		spec:   fmt.Sprintf("@every %s", interval),
		idle:   idle,
		now:    time.Now,
		logger: logger,
	}
}

// Add registers a target under a name used in logs.
func (s *Sweeper) Add(name string, t Target) {
	s.mu.Lock()
	s.targets = append(s.targets, named{name: name, t: t})
	s.mu.Unlock()
}

// Start registers the job and starts the scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce() }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.logger.Debug("sweeper started", "spec", s.spec, "idle", s.idle)
	return nil
}

// Stop halts the schedule and waits for a running sweep, or for ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce sweeps every target now and returns how many items each closed.
func (s *Sweeper) RunOnce() map[string]int {
	cutoff := s.now().Add(-s.idle)
	s.mu.Lock()
	targets := append([]named(nil), s.targets...)
	s.mu.Unlock()

	out := make(map[string]int, len(targets))
	for _, n := range targets {
		closed := n.t.Sweep(cutoff)
		out[n.name] = closed
		if closed > 0 {
			s.logger.Info("swept idle sessions", "target", n.name, "closed", closed)
		}
	}
	return out
}
