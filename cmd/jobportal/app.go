package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kalambet/jobportal/internal/api"
	"github.com/kalambet/jobportal/internal/auth"
	"github.com/kalambet/jobportal/internal/catalog"
	"github.com/kalambet/jobportal/internal/chat"
	"github.com/kalambet/jobportal/internal/config"
	"github.com/kalambet/jobportal/internal/delay"
	"github.com/kalambet/jobportal/internal/form"
	"github.com/kalambet/jobportal/internal/metrics"
	"github.com/kalambet/jobportal/internal/notify"
	"github.com/kalambet/jobportal/internal/responder"
	"github.com/kalambet/jobportal/internal/seed"
	"github.com/kalambet/jobportal/internal/storage"
	"github.com/kalambet/jobportal/internal/sweeper"
)

const sweepInterval = time.Minute

// app is every long-lived component of a running server.
type app struct {
	backend   storage.Backend
	catalog   *catalog.Catalog
	responder *responder.Responder
	forms     *form.Registry
	chats     *chat.Registry
	sessions  *auth.Sessions
	feed      *notify.Feed
	metrics   *metrics.Metrics
	sweeper   *sweeper.Sweeper
	handler   http.Handler

	closers []io.Closer
}

func operatorAccounts(cfg config.Config) []auth.Account {
	return []auth.Account{
		{Email: cfg.Auth.AdminEmail, Role: auth.RoleAdmin, Password: cfg.Auth.AdminPassword},
		{Email: cfg.Auth.SalesEmail, Role: auth.RoleSales, Password: cfg.Auth.SalesPassword},
	}
}

// buildApp opens storage, seeds it and wires the portal together.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	backend, err := storage.OpenBackend(ctx, cfg.Storage.Driver, cfg.Storage.DataDir, cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	a := &app{backend: backend, closers: []io.Closer{backend}}

	filled, err := seed.Apply(ctx, backend, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if len(filled) > 0 {
		logger.Info("seeded collections", "collections", filled)
	}
	n, err := auth.Provision(ctx, backend, operatorAccounts(cfg))
	if err != nil {
		a.Close()
		return nil, err
	}
	if n > 0 {
		logger.Info("operator accounts provisioned", "count", n)
	}

	a.catalog = catalog.NewWithClock(backend, nil, cfg.Catalog.CacheTTL)
	a.responder = responder.New(nil)
	a.sessions = auth.NewSessions()
	a.feed = notify.NewFeed(notify.DefaultFeedSize)
	a.metrics = metrics.New()

	notifiers := notify.Multi{a.feed, notify.LogNotifier{Logger: logger}, a.metrics}
	if cfg.Notify.RedisURL != "" {
		rdb, err := notify.NewRedisClient(ctx, cfg.Notify.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.closers = append(a.closers, rdb)
		notifiers = append(notifiers, notify.NewRedisNotifier(rdb, cfg.Notify.Channel, logger))
		logger.Info("publishing notifications to redis", "channel", cfg.Notify.Channel)
	}

	a.forms = form.NewRegistry(form.Options{
		Scheduler: delay.Timer{},
		Delays:    form.Delays{Standard: cfg.Forms.Delay, Slow: cfg.Forms.CheckoutDelay},
		Notifier:  notifiers,
		Deps: form.Deps{
			Checkers: auth.Checkers(backend),
			Sessions: a.sessions,
			Records:  a.catalog,
			Logger:   logger,
		},
		Logger:   logger,
		OnSubmit: a.metrics.FormSubmitted,
	})
	a.chats = chat.NewRegistry(a.responder, delay.Timer{}, cfg.Chat.ReplyDelay, nil)

	a.metrics.Gauge("open_chats", "Chat windows currently open.", func() float64 { return float64(a.chats.Len()) })
	a.metrics.Gauge("open_forms", "Form sessions currently open.", func() float64 { return float64(a.forms.Len()) })
	a.metrics.Gauge("signed_in_sessions", "Sessions holding a sign-in token.", func() float64 { return float64(a.sessions.Len()) })

	a.sweeper = sweeper.New(sweepInterval, cfg.Chat.IdleTimeout, logger)
	a.sweeper.Add("chats", a.chats)
	a.sweeper.Add("forms", a.forms)
	a.sweeper.Add("sessions", a.sessions)

	a.handler = api.NewHandler(api.Deps{
		Catalog:  a.catalog,
		Forms:    a.forms,
		Chats:    a.chats,
		Sessions: a.sessions,
		Feed:     a.feed,
		Metrics:  a.metrics,
		Logger:   logger,
	})
	return a, nil
}

func (a *app) mcpDeps() api.MCPDeps {
	return api.MCPDeps{Catalog: a.catalog, Responder: a.responder, Feed: a.feed, Version: version}
}

// Close releases storage and connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			slog.Warn("closing resource", "error", err)
		}
	}
	a.closers = nil
}
