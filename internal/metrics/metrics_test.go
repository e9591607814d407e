package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kalambet/jobportal/internal/form"
	"github.com/kalambet/jobportal/internal/notify"
)

func TestCounters(t *testing.T) {
	m := New()
	m.FormSubmitted(form.Login, form.OutcomeScheduled)
	m.FormSubmitted(form.Login, form.OutcomeScheduled)
	m.FormSubmitted(form.Apply, form.OutcomeRejected)
	m.ChatMessage("company")
	m.ViewQueried("jobs")
	m.Notify(context.Background(), notify.Alert("Access Denied", "Invalid admin credentials."))

	if got := testutil.ToFloat64(m.formSubmits.WithLabelValues("login", "scheduled")); got != 2 {
		t.Errorf("login scheduled = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.formSubmits.WithLabelValues("apply", "rejected")); got != 1 {
		t.Errorf("apply rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.notices.WithLabelValues("destructive")); got != 1 {
		t.Errorf("destructive notices = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.chatMessages.WithLabelValues("company")); got != 1 {
		t.Errorf("chat messages = %v", got)
	}
}

func TestHandlerAndMiddleware(t *testing.T) {
	m := New()
	m.Gauge("chat_sessions", "Open chat sessions.", func() float64 { return 3 })

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/forms/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/forms/abc", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		"jobportal_chat_sessions 3",
		`jobportal_http_request_duration_seconds_count{method="GET",route="/v1/forms/{id}",status="404"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
	if strings.Contains(text, "/v1/forms/abc") {
		t.Error("raw path leaked into labels")
	}
}
