package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kalambet/jobportal/internal/storage"
)

func init() {
	HashCost = bcrypt.MinCost
}

type memOperators struct {
	ops map[string]storage.Operator
	err error
}

func (m *memOperators) GetOperator(_ context.Context, email string) (storage.Operator, error) {
	if m.err != nil {
		return storage.Operator{}, m.err
	}
	op, ok := m.ops[email]
	if !ok {
		return storage.Operator{}, storage.ErrNotFound
	}
	return op, nil
}

func (m *memOperators) UpsertOperator(_ context.Context, op storage.Operator) error {
	if m.ops == nil {
		m.ops = make(map[string]storage.Operator)
	}
	m.ops[op.Email] = op
	return nil
}

func provisioned(t *testing.T) *memOperators {
	t.Helper()
	store := &memOperators{}
	n, err := Provision(context.Background(), store, []Account{
		{Email: " Ops@Example.com ", Role: RoleAdmin, Password: "s3cret"},
		{Email: "sales@example.com", Role: RoleSales, Password: "pipeline"},
		{Email: "", Role: RoleSales, Password: "ignored"},
		{Email: "nopass@example.com", Role: RoleAdmin},
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if n != 2 {
		t.Fatalf("provisioned %d accounts, want 2", n)
	}
	return store
}

func TestStoreChecker(t *testing.T) {
	store := provisioned(t)
	admin := NewStoreChecker(store, RoleAdmin)
	ctx := context.Background()

	cases := []struct {
		name       string
		id, secret string
		want       bool
	}{
		{"valid", "ops@example.com", "s3cret", true},
		{"email case and spaces", "  OPS@example.COM", "s3cret", true},
		{"wrong password", "ops@example.com", "nope", false},
		{"unknown account", "who@example.com", "s3cret", false},
		{"empty secret", "ops@example.com", "", false},
		{"other role", "sales@example.com", "pipeline", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := admin.Check(ctx, c.id, c.secret)
			if err != nil {
				t.Fatalf("Check error: %v", err)
			}
			if got != c.want {
				t.Errorf("Check = %v, want %v", got, c.want)
			}
		})
	}

	ok, err := Checkers(store)[RoleSales].Check(ctx, "sales@example.com", "pipeline")
	if err != nil || !ok {
		t.Errorf("sales checker = %v, %v", ok, err)
	}
}

func TestStoreChecker_StorageError(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewStoreChecker(&memOperators{err: boom}, RoleAdmin).Check(context.Background(), "a@b.c", "x")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped storage error", err)
	}
}

func TestProvision_RejectsNonOperatorRole(t *testing.T) {
	_, err := Provision(context.Background(), &memOperators{}, []Account{{Email: "a@b.c", Role: RoleJobSeeker, Password: "x"}})
	if err == nil {
		t.Error("expected error for job seeker account")
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole(" Sales "); err != nil || r != RoleSales {
		t.Errorf("ParseRole = %q, %v", r, err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Error("expected error")
	}
}

func TestSessionContext_Lifecycle(t *testing.T) {
	sc := NewSessionContext()
	if sc.Authenticated() {
		t.Fatal("new session should be signed out")
	}
	sc.Login("sales@example.com", RoleSales)
	if !sc.Has(RoleSales) || sc.Has(RoleAdmin) || sc.Identifier() != "sales@example.com" {
		t.Errorf("after login: role=%q id=%q", sc.Role(), sc.Identifier())
	}
	sc.Logout()
	if sc.Authenticated() || sc.Role() != "" {
		t.Error("logout should clear the session")
	}
}

func TestSessions_IssueLookupRevoke(t *testing.T) {
	s := NewSessions()
	token, sc := s.Issue("ops@example.com", RoleAdmin)

	got, ok := s.Lookup(token)
	if !ok || got != sc {
		t.Fatal("Lookup did not return the issued session")
	}
	if _, ok := s.Lookup("bogus"); ok {
		t.Error("unknown token resolved")
	}
	if !s.Revoke(token) {
		t.Error("Revoke reported unknown token")
	}
	if _, ok := s.Lookup(token); ok {
		t.Error("revoked token still resolves")
	}
	if sc.Authenticated() {
		t.Error("revoked session still authenticated")
	}
}

func TestSessions_Sweep(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	s := NewSessions()
	s.now = func() time.Time { return now }

	stale, _ := s.Issue("a@example.com", RoleAdmin)
	now = now.Add(time.Hour)
	fresh, _ := s.Issue("b@example.com", RoleSales)

	if n := s.Sweep(now.Add(-30 * time.Minute)); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if _, ok := s.Lookup(stale); ok {
		t.Error("stale session survived the sweep")
	}
	if _, ok := s.Lookup(fresh); !ok {
		t.Error("fresh session was swept")
	}
}

func TestContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context carried a session")
	}
	sc := NewSessionContext()
	got, ok := FromContext(WithSession(context.Background(), sc))
	if !ok || got != sc {
		t.Error("session not carried by context")
	}
}
