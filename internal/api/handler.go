package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/jobportal/internal/apperr"
	"github.com/kalambet/jobportal/internal/auth"
	"github.com/kalambet/jobportal/internal/catalog"
	"github.com/kalambet/jobportal/internal/chat"
	"github.com/kalambet/jobportal/internal/filter"
	"github.com/kalambet/jobportal/internal/form"
	"github.com/kalambet/jobportal/internal/metrics"
	"github.com/kalambet/jobportal/internal/notify"
)

// Deps are the components the HTTP surface serves.
type Deps struct {
	Catalog  *catalog.Catalog
	Forms    *form.Registry
	Chats    *chat.Registry
	Sessions *auth.Sessions
	Feed     *notify.Feed
	Metrics  *metrics.Metrics // optional
	Logger   *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// NewHandler returns the portal's REST API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	r.Get("/health", handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(SessionAuth(deps.Sessions))

		r.Get("/views", handleListViews)
		r.Get("/views/{view}", handleQueryView(deps))
		r.Get("/views/{view}/counts", handleCounts(deps))

		r.Get("/collections/{collection}/{id}", handleGetRecord(deps))
		r.Patch("/collections/{collection}/{id}", handleUpdateRecord(deps))
		r.Delete("/collections/{collection}/{id}", handleDeleteRecord(deps))

		r.With(RequireRole(auth.RoleAdmin)).Post("/companies/{id}/verify", handleVerify(deps))
		r.With(RequireRole(auth.RoleSales)).Get("/prospects/summary", handleProspectSummary(deps))

		r.Post("/chat", handleStartChat(deps))
		r.Get("/chat/{id}/messages", handleChatMessages(deps))
		r.Post("/chat/{id}/messages", handleSendMessage(deps))
		r.Delete("/chat/{id}", handleEndChat(deps))

		r.Get("/forms", handleListForms)
		r.Post("/forms", handleOpenForm(deps))
		r.Get("/forms/{id}", handleFormStatus(deps))
		r.Patch("/forms/{id}", handleUpdateForm(deps))
		r.Post("/forms/{id}/attachment", handleAttach(deps))
		r.Post("/forms/{id}/submit", handleSubmit(deps))
		r.Delete("/forms/{id}", handleCloseForm(deps))

		r.Get("/notifications", handleNotifications(deps))
		r.Get("/session", handleWhoAmI)
		r.Post("/logout", handleLogout(deps))
	})
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleListViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Views())
}

// viewFor resolves the {view} parameter and checks the caller may see it.
func viewFor(w http.ResponseWriter, r *http.Request) (catalog.View, bool) {
	name := chi.URLParam(r, "view")
	v, ok := catalog.LookupView(name)
	if !ok {
		writeErr(w, apperr.NotFound("unknown view "+strconv.Quote(name)))
		return catalog.View{}, false
	}
	return v, authorize(w, r, v.Role)
}

func handleQueryView(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := viewFor(w, r)
		if !ok {
			return
		}
		criteria, err := ParseCriteria(r.URL.Query())
		if err != nil {
			writeErr(w, err)
			return
		}
		res, err := deps.Catalog.Query(r.Context(), v.Name, criteria)
		if err != nil {
			writeErr(w, err)
			return
		}
		if deps.Metrics != nil {
			deps.Metrics.ViewQueried(v.Name)
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleCounts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := viewFor(w, r)
		if !ok {
			return
		}
		counts, err := deps.Catalog.Counts(r.Context(), v.Name, r.URL.Query().Get("field"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

// ParseCriteria reads list criteria from query parameters:
// q, f.<field>, c.<field>, min.<field>, max.<field>, sort and desc.
// Status filters accept slugs, so f.status=under-review selects
// "Under Review".
func ParseCriteria(q url.Values) (filter.Criteria, error) {
	c := filter.Criteria{Query: strings.TrimSpace(q.Get("q"))}
	for key, vals := range q {
		if len(vals) == 0 {
			continue
		}
		val := vals[0]
		switch {
		case strings.HasPrefix(key, "f."):
			if c.FieldFilters == nil {
				c.FieldFilters = make(map[string]any)
			}
			field := strings.TrimPrefix(key, "f.")
			if field == "status" {
				val = strings.ReplaceAll(val, "-", " ")
			}
			c.FieldFilters[field] = val
		case strings.HasPrefix(key, "c."):
			if c.Contains == nil {
				c.Contains = make(map[string]string)
			}
			c.Contains[strings.TrimPrefix(key, "c.")] = val
		case strings.HasPrefix(key, "min."), strings.HasPrefix(key, "max."):
			field := key[4:]
			n, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return filter.Criteria{}, apperr.Malformed("range bound " + key + " must be a number").WithField(field)
			}
			if c.RangeFilters == nil {
				c.RangeFilters = make(map[string]filter.Range)
			}
			rg := c.RangeFilters[field]
			if strings.HasPrefix(key, "min.") {
				rg.Min = &n
			} else {
				rg.Max = &n
			}
			c.RangeFilters[field] = rg
		}
	}
	if s := q.Get("sort"); s != "" {
		desc, _ := strconv.ParseBool(q.Get("desc"))
		c.Sort = &filter.SortKey{Field: s, Desc: desc}
	}
	return c, nil
}

// collectionRole is the role needed to change records of a collection:
// the guarding view's role, its write role, or a company account for other
// public collections.
func collectionRole(collection string) (auth.Role, bool) {
	v, ok := catalog.ViewForCollection(collection)
	if !ok {
		return "", false
	}
	switch {
	case v.Role != "":
		return v.Role, true
	case v.WriteRole != "":
		return v.WriteRole, true
	}
	return auth.RoleCompany, true
}

func handleGetRecord(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection := chi.URLParam(r, "collection")
		v, ok := catalog.ViewForCollection(collection)
		if !ok {
			writeErr(w, apperr.NotFound("unknown collection "+strconv.Quote(collection)))
			return
		}
		if !authorize(w, r, v.Role) {
			return
		}
		rec, err := deps.Catalog.Get(r.Context(), collection, chi.URLParam(r, "id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleUpdateRecord(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection := chi.URLParam(r, "collection")
		role, ok := collectionRole(collection)
		if !ok {
			writeErr(w, apperr.NotFound("unknown collection "+strconv.Quote(collection)))
			return
		}
		if !authorize(w, r, role) {
			return
		}
		var fields map[string]any
		if !decodeBody(w, r, &fields) {
			return
		}
		id := chi.URLParam(r, "id")
		var (
			rec filter.Record
			err error
		)
		if status, isStatus := fields["status"].(string); collection == "applications" && isStatus && len(fields) == 1 {
			rec, err = deps.Catalog.SetApplicationStatus(r.Context(), id, status)
		} else {
			rec, err = deps.Catalog.Update(r.Context(), collection, id, fields)
		}
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleDeleteRecord(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection := chi.URLParam(r, "collection")
		role, ok := collectionRole(collection)
		if !ok {
			writeErr(w, apperr.NotFound("unknown collection "+strconv.Quote(collection)))
			return
		}
		if !authorize(w, r, role) {
			return
		}
		if err := deps.Catalog.Delete(r.Context(), collection, chi.URLParam(r, "id")); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleVerify(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Approve *bool `json:"approve"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Approve == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "approve is required")
			return
		}
		rec, err := deps.Catalog.Verify(r.Context(), chi.URLParam(r, "id"), *req.Approve)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleProspectSummary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Catalog.Prospects(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func handleNotifications(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := []notify.Notification{}
		if s := r.URL.Query().Get("since"); s != "" {
			since, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "since must be an RFC 3339 time: %v", err)
				return
			}
			items = append(items, deps.Feed.Since(since)...)
		} else {
			items = append(items, deps.Feed.List()...)
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	sc, ok := auth.FromContext(r.Context())
	if !ok || !sc.Authenticated() {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"identifier":    sc.Identifier(),
		"role":          sc.Role(),
	})
}

func handleLogout(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "authentication_error", "missing bearer token")
			return
		}
		if sc, found := auth.FromContext(r.Context()); found {
			sc.Logout()
		}
		deps.Sessions.Revoke(tok)
		writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
	}
}
