package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/jobportal/internal/catalog"
	"github.com/kalambet/jobportal/internal/chat"
	"github.com/kalambet/jobportal/internal/config"
	"github.com/kalambet/jobportal/internal/delay"
	"github.com/kalambet/jobportal/internal/filter"
	"github.com/kalambet/jobportal/internal/form"
	"github.com/kalambet/jobportal/internal/responder"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"NotFoundError"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestClient_SendsBearerAndBody(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/forms": `{"id":"f-1","form":"apply"}`,
	})

	st, err := openForm(ctx, ts.client(), "apply", map[string]any{"jobTitle": "Designer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.ID != "f-1" || st.Form != form.Apply {
		t.Errorf("status = %+v", st)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
	var body struct {
		Form   string         `json:"form"`
		Fields map[string]any `json:"fields"`
	}
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body.Form != "apply" || body.Fields["jobTitle"] != "Designer" {
		t.Errorf("body = %+v", body)
	}
}

func TestDecodeJSON_APIError(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client().get(ctx, "/v1/views/nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]any
	err = decodeJSON(resp, &out)

	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apiError, got %T (%v)", err, err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Type != "NotFoundError" || apiErr.Message != "not found" {
		t.Errorf("apiError = %+v", apiErr)
	}
}

func TestDecodeJSON_PlainErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &apiClient{baseURL: srv.URL, httpClient: srv.Client()}
	resp, err := c.get(ctx, "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = decodeJSON(resp, new(map[string]any))
	if err == nil || !strings.Contains(err.Error(), "bad gateway") {
		t.Errorf("err = %v, want body text", err)
	}
}

func TestClient_Unreachable(t *testing.T) {
	c := &apiClient{baseURL: "http://127.0.0.1:1", httpClient: &http.Client{Timeout: time.Second}}
	_, err := c.get(ctx, "/health")
	if err == nil || !strings.Contains(err.Error(), "jobportal serve") {
		t.Errorf("err = %v, want hint to start the server", err)
	}
}

func TestSearchPath(t *testing.T) {
	path, err := searchPath("courses", "go basics", []string{"level=Beginner"}, []string{"rating=4.5"}, []string{"price=100"}, "price", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, err := url.Parse(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Path != "/v1/views/courses" {
		t.Errorf("path = %s", u.Path)
	}
	want := map[string]string{
		"q": "go basics", "f.level": "Beginner", "min.rating": "4.5", "max.price": "100", "sort": "price", "desc": "true",
	}
	q := u.Query()
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, q.Get(k), v)
		}
	}

	if _, err := searchPath("jobs", "", []string{"type"}, nil, nil, "", false); err == nil {
		t.Error("expected error for filter without value")
	}
	if path, _ := searchPath("jobs", "", nil, nil, nil, "", false); path != "/v1/views/jobs" {
		t.Errorf("bare path = %s", path)
	}
}

func TestSearchCommand_MissingView(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"search"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for missing view")
	}
}

func TestRenderResult(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	v, _ := catalog.LookupView("courses")
	res := catalog.Result{
		Items: []filter.Record{
			{"id": "c1", "title": "Go for Teams", "category": "Programming", "price": 1299.0, "rating": 4.75},
			{"id": "c2", "title": "UX Basics", "category": "Design", "price": 49.0},
		},
		Total:  12,
		Counts: map[string]int{"Programming": 1, "Design": 1},
	}

	var buf bytes.Buffer
	renderResult(&buf, v, res, 1)
	out := buf.String()

	for _, want := range []string{"1 of 12 courses", "c1  Go for Teams", "price: 1,299", "rating: 4.75", "Design"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "UX Basics") {
		t.Errorf("limit not applied:\n%s", out)
	}
}

func TestLoginForm(t *testing.T) {
	tests := []struct {
		role     string
		form     string
		userType any
	}{
		{"admin", "admin_login", nil},
		{"Sales", "sales_login", nil},
		{"jobseeker", "login", "jobseeker"},
		{"company", "login", "company"},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			name, fields, err := loginForm(tt.role, "a@b.com", "pw")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tt.form || fields["userType"] != tt.userType {
				t.Errorf("got %s %v", name, fields)
			}
		})
	}
	if _, _, err := loginForm("root", "", ""); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestRunChat(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	r := responder.New(responder.RandomFunc(func() float64 { return 0 }))
	s := chat.NewSession(responder.JobSeeker, r, delay.Timer{}, time.Millisecond, nil)
	s.Open()
	defer s.Close()

	in := strings.NewReader("\nHow do I improve my resume?\n/quit\nnever read\n")
	var out bytes.Buffer
	if err := runChat(ctx, s, in, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "assistant> "+r.Greeting(responder.JobSeeker)) {
		t.Errorf("greeting missing:\n%s", got)
	}
	if !strings.Contains(got, "assistant> For a great resume:") {
		t.Errorf("reply missing:\n%s", got)
	}
	if n := len(s.Messages()); n != 3 {
		t.Errorf("messages = %d, want 3", n)
	}
}

// --- end to end against a wired app ---

func newTestApp(t *testing.T) *apiClient {
	t.Helper()
	var cfg config.Config
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.DataDir = ":memory:"
	cfg.Forms.Delay = 5 * time.Millisecond
	cfg.Forms.CheckoutDelay = 5 * time.Millisecond
	cfg.Chat.ReplyDelay = time.Millisecond
	cfg.Chat.IdleTimeout = time.Hour
	cfg.Auth.AdminEmail = "ops@example.com"
	cfg.Auth.AdminPassword = "s3cret-pass"

	a, err := buildApp(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.handler)
	t.Cleanup(srv.Close)
	return &apiClient{baseURL: srv.URL, httpClient: srv.Client()}
}

func TestApp_SearchCourses(t *testing.T) {
	c := newTestApp(t)

	path, err := searchPath("courses", "", nil, []string{"rating=4.8"}, []string{"price=300"}, "price", false)
	if err != nil {
		t.Fatalf("searchPath: %v", err)
	}
	resp, err := c.get(ctx, path)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var res catalog.Result
	if err := decodeJSON(resp, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Items) != 2 || res.Items[0]["price"] != 249.0 || res.Items[1]["price"] != 299.0 {
		t.Errorf("items = %v", res.Items)
	}
}

func TestApp_AdminLogin(t *testing.T) {
	c := newTestApp(t)

	name, fields, err := loginForm("admin", "OPS@example.com", "s3cret-pass")
	if err != nil {
		t.Fatal(err)
	}
	st, err := openForm(ctx, c, name, fields)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	done, err := submitForm(ctx, c, st.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var out bytes.Buffer
	if err := reportResult(&out, done); err != nil {
		t.Fatalf("result: %v", err)
	}
	if done.Result.Token == "" {
		t.Fatal("no token issued")
	}
	if done.Result.Destination != "/admin-dashboard" {
		t.Errorf("destination = %s", done.Result.Destination)
	}

	c.token = done.Result.Token
	resp, err := c.get(ctx, "/v1/views/users")
	if err != nil {
		t.Fatal(err)
	}
	var res catalog.Result
	if err := decodeJSON(resp, &res); err != nil {
		t.Fatalf("admin view with token: %v", err)
	}
}

func TestApp_AdminLoginWrongPassword(t *testing.T) {
	c := newTestApp(t)

	name, fields, _ := loginForm("admin", "ops@example.com", "nope")
	st, err := openForm(ctx, c, name, fields)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	done, err := submitForm(ctx, c, st.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var out bytes.Buffer
	if err := reportResult(&out, done); err == nil {
		t.Fatal("expected error for wrong password")
	}
	if !strings.Contains(out.String(), "Access Denied") {
		t.Errorf("notification = %q", out.String())
	}
}

func TestApp_SubmitRejected(t *testing.T) {
	c := newTestApp(t)

	st, err := openForm(ctx, c, string(form.Apply), map[string]any{"jobTitle": "Designer", "companyName": "Acme"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = submitForm(ctx, c, st.ID)
	if err == nil || !strings.Contains(err.Error(), "resume") {
		t.Errorf("err = %v, want resume rejection", err)
	}
}

func TestApp_ApplyWithResume(t *testing.T) {
	c := newTestApp(t)

	st, err := openForm(ctx, c, string(form.Apply), map[string]any{"jobTitle": "Designer", "companyName": "Acme"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	resp, err := c.upload(ctx, "/v1/forms/"+st.ID+"/attachment", "resume", "/tmp/cv.docx", []byte("PK fake docx"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var info map[string]any
	if err := decodeJSON(resp, &info); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if info["name"] != "cv.docx" {
		t.Errorf("attachment name = %v", info["name"])
	}

	done, err := submitForm(ctx, c, st.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var out bytes.Buffer
	if err := reportResult(&out, done); err != nil {
		t.Fatalf("result: %v", err)
	}
	if !strings.Contains(out.String(), "Application Submitted") {
		t.Errorf("notification = %q", out.String())
	}
}
