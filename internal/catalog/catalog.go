// Package catalog serves the portal's collections through cached, filterable views.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/kalambet/jobportal/internal/apperr"
	"github.com/kalambet/jobportal/internal/filter"
	"github.com/kalambet/jobportal/internal/storage"
)

// RecordStore defines the storage operations the Catalog needs.
// Implemented by storage.Store and storage.PGStore.
type RecordStore interface {
	ListRecords(ctx context.Context, collection string) ([]filter.Record, error)
	GetRecord(ctx context.Context, collection, id string) (filter.Record, error)
	UpdateRecord(ctx context.Context, collection, id string, fields map[string]any) (filter.Record, error)
	DeleteRecord(ctx context.Context, collection, id string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// DefaultTTL is how long a listed collection is served from memory.
const DefaultTTL = 30 * time.Second

type cacheEntry struct {
	records []filter.Record
	at      time.Time
}

// Catalog provides cached access to collections and the mutations the
// dashboards perform on them.
type Catalog struct {
	store  RecordStore
	clock  Clock
	ttl    time.Duration
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// New creates a Catalog with the default cache TTL.
func New(store RecordStore) *Catalog {
	return NewWithClock(store, realClock{}, DefaultTTL)
}

// NewWithClock creates a Catalog with a custom clock and TTL. A TTL of zero
// disables caching.
func NewWithClock(store RecordStore, clock Clock, ttl time.Duration) *Catalog {
	if clock == nil {
		clock = realClock{}
	}
	return &Catalog{
		store:  store,
		clock:  clock,
		ttl:    ttl,
		logger: slog.Default(),
		cache:  make(map[string]cacheEntry),
	}
}

// List returns a copy of collection, from cache when fresh.
func (c *Catalog) List(ctx context.Context, collection string) ([]filter.Record, error) {
	c.mu.RLock()
	if e, ok := c.cache[collection]; ok && c.fresh(e) {
		out := filter.CloneAll(e.records)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.cache[collection]; ok && c.fresh(e) {
		return filter.CloneAll(e.records), nil
	}

	records, err := c.store.ListRecords(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	if c.ttl > 0 {
		c.cache[collection] = cacheEntry{records: records, at: c.clock.Now()}
	}
	return filter.CloneAll(records), nil
}

func (c *Catalog) fresh(e cacheEntry) bool {
	return c.clock.Now().Before(e.at.Add(c.ttl))
}

// Invalidate drops the cached copy of collection.
func (c *Catalog) Invalidate(collection string) {
	c.mu.Lock()
	delete(c.cache, collection)
	c.mu.Unlock()
}

// Source adapts one collection to filter.Source.
func (c *Catalog) Source(collection string) filter.Source {
	return collectionSource{c: c, name: collection}
}

type collectionSource struct {
	c    *Catalog
	name string
}

func (s collectionSource) List(ctx context.Context) ([]filter.Record, error) {
	return s.c.List(ctx, s.name)
}

// Result is one page of a view.
type Result struct {
	Items  []filter.Record `json:"items"`
	Total  int             `json:"total"`
	Counts map[string]int  `json:"counts,omitempty"`
}

// Query filters a view. Without explicit search fields the view's own are
// used. Counts are taken over the whole collection so the tabs of a status
// bar do not change while the user filters.
func (c *Catalog) Query(ctx context.Context, viewName string, criteria filter.Criteria) (Result, error) {
	v, ok := LookupView(viewName)
	if !ok {
		return Result{}, apperr.NotFound(fmt.Sprintf("unknown view %q", viewName)).WithOp("catalog.Query")
	}
	if criteria.Query != "" && len(criteria.SearchFields) == 0 {
		criteria.SearchFields = v.SearchFields
	}
	criteria = v.containsCriteria(criteria)
	if err := filter.Validate(criteria); err != nil {
		return Result{}, err
	}

	base, err := c.List(ctx, v.Collection)
	if err != nil {
		return Result{}, err
	}
	items, err := filter.Apply(base, criteria)
	if err != nil {
		return Result{}, err
	}
	res := Result{Items: items, Total: len(base)}
	if v.CountField != "" {
		res.Counts = filter.CountBy(base, v.CountField)
	}
	return res, nil
}

// Counts tallies field over a view's whole collection.
func (c *Catalog) Counts(ctx context.Context, viewName, field string) (map[string]int, error) {
	v, ok := LookupView(viewName)
	if !ok {
		return nil, apperr.NotFound(fmt.Sprintf("unknown view %q", viewName)).WithOp("catalog.Counts")
	}
	if field == "" {
		field = v.CountField
	}
	if field == "" {
		return nil, apperr.Malformed("count field is required").WithOp("catalog.Counts")
	}
	base, err := c.List(ctx, v.Collection)
	if err != nil {
		return nil, err
	}
	return filter.CountBy(base, field), nil
}

// Get returns a single record.
func (c *Catalog) Get(ctx context.Context, collection, id string) (filter.Record, error) {
	r, err := c.store.GetRecord(ctx, collection, id)
	if err != nil {
		return nil, notFound(err, "catalog.Get", collection, id)
	}
	return r, nil
}

// Update merges fields into a record. It satisfies form.RecordUpdater.
func (c *Catalog) Update(ctx context.Context, collection, id string, fields map[string]any) (filter.Record, error) {
	if len(fields) == 0 {
		return nil, apperr.Validation("no fields to update").WithOp("catalog.Update")
	}
	if v, ok := fields["id"]; ok && fmt.Sprint(v) != id {
		return nil, apperr.Validation("id cannot be changed").WithOp("catalog.Update").WithField("id")
	}
	r, err := c.store.UpdateRecord(ctx, collection, id, fields)
	if err != nil {
		return nil, notFound(err, "catalog.Update", collection, id)
	}
	c.Invalidate(collection)
	c.logger.Debug("record updated", "collection", collection, "id", id)
	return r, nil
}

// Delete removes a record.
func (c *Catalog) Delete(ctx context.Context, collection, id string) error {
	if err := c.store.DeleteRecord(ctx, collection, id); err != nil {
		return notFound(err, "catalog.Delete", collection, id)
	}
	c.Invalidate(collection)
	c.logger.Debug("record deleted", "collection", collection, "id", id)
	return nil
}

// Application statuses a company can move a candidate through.
var ApplicationStatuses = []string{"New", "Under Review", "Interview Scheduled", "Rejected", "Hired"}

// SetApplicationStatus moves an application to status.
func (c *Catalog) SetApplicationStatus(ctx context.Context, id, status string) (filter.Record, error) {
	if !slices.Contains(ApplicationStatuses, status) {
		return nil, apperr.Validation(fmt.Sprintf("unknown application status %q", status)).WithField("status")
	}
	return c.Update(ctx, "applications", id, map[string]any{"status": status})
}

// Company verification states.
const (
	CompanyPending  = "pending"
	CompanyApproved = "approved"
	CompanyRejected = "rejected"
)

// Verify approves or rejects a pending company registration.
func (c *Catalog) Verify(ctx context.Context, companyID string, approve bool) (filter.Record, error) {
	const op = "catalog.Verify"
	company, err := c.Get(ctx, "companies", companyID)
	if err != nil {
		return nil, err
	}
	if status := fmt.Sprint(company["status"]); status != CompanyPending {
		return nil, apperr.Conflict(fmt.Sprintf("company %s is already %s", companyID, status)).WithOp(op)
	}
	status := CompanyRejected
	if approve {
		status = CompanyApproved
	}
	return c.Update(ctx, "companies", companyID, map[string]any{"status": status})
}

// ProspectSummary backs the sales dashboard header tiles.
type ProspectSummary struct {
	Total             int `json:"total"`
	HotLeads          int `json:"hot_leads"`
	WarmLeads         int `json:"warm_leads"`
	PayingSubscribers int `json:"paying_subscribers"`
	AverageLeadScore  int `json:"average_lead_score"`
}

// Prospects summarises the sales pipeline.
func (c *Catalog) Prospects(ctx context.Context) (ProspectSummary, error) {
	prospects, err := c.List(ctx, "prospects")
	if err != nil {
		return ProspectSummary{}, err
	}
	return SummarizeProspects(prospects), nil
}

// SummarizeProspects computes the header tiles over prospects.
func SummarizeProspects(prospects []filter.Record) ProspectSummary {
	s := ProspectSummary{Total: len(prospects)}
	var scoreSum float64
	for _, p := range prospects {
		switch fmt.Sprint(p["status"]) {
		case "Hot Lead":
			s.HotLeads++
		case "Warm Lead":
			s.WarmLeads++
		}
		if sub, ok := p["currentSubscription"].(string); ok && sub != "None" && sub != "" {
			s.PayingSubscribers++
		}
		if score, ok := filter.Number(p["leadScore"]); ok {
			scoreSum += score
		}
	}
	if len(prospects) > 0 {
		s.AverageLeadScore = int(math.Round(scoreSum / float64(len(prospects))))
	}
	return s
}

func notFound(err error, op, collection, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, fmt.Sprintf("%s %s not found", collection, id), err).WithOp(op)
	}
	return fmt.Errorf("%s %s/%s: %w", op, collection, id, err)
}
