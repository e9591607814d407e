package storage

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kalambet/jobportal/internal/filter"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleApplications() []filter.Record {
	return []filter.Record{
		{"id": 1, "candidateName": "Sarah Johnson", "status": "New", "skills": []string{"React", "TypeScript"}},
		{"id": 2, "candidateName": "Michael Chen", "status": "Under Review", "skills": []string{"Go"}},
		{"id": 3, "candidateName": "Emily Davis", "status": "Hired"},
	}
}

// TestMigrationsIdempotent opens the same database twice and verifies no
// migration is re-applied.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()
	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) == 0 || len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestTablesExist(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{"records", "operators"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master: %v", err)
		}
		if count != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestSeedCollection_OnlyWhenEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seeded, err := s.SeedCollection(ctx, "applications", sampleApplications())
	if err != nil || !seeded {
		t.Fatalf("first seed = %v, %v", seeded, err)
	}
	seeded, err = s.SeedCollection(ctx, "applications", sampleApplications()[:1])
	if err != nil || seeded {
		t.Fatalf("second seed = %v, %v; want false, nil", seeded, err)
	}

	got, err := s.ListRecords(ctx, "applications")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got[i].ID() != want {
			t.Errorf("record %d id = %q, want %q (seed order)", i, got[i].ID(), want)
		}
	}
}

func TestSeedCollection_RejectsMissingID(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SeedCollection(context.Background(), "jobs", []filter.Record{{"title": "no id"}})
	if err == nil {
		t.Fatal("expected error for record without id")
	}
	if got, _ := s.ListRecords(context.Background(), "jobs"); len(got) != 0 {
		t.Error("failed seed should leave the collection empty")
	}
}

func TestListRecords_DecodesValues(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.SeedCollection(ctx, "applications", sampleApplications())

	got, _ := s.ListRecords(ctx, "applications")
	if id, ok := got[0]["id"].(json.Number); !ok || id.String() != "1" {
		t.Errorf("id = %#v, want json.Number 1", got[0]["id"])
	}
	if skills, ok := got[0]["skills"].([]any); !ok || len(skills) != 2 || skills[0] != "React" {
		t.Errorf("skills = %#v", got[0]["skills"])
	}

	// Values must stay filterable after the round trip.
	hired, err := filter.Apply(got, filter.Criteria{FieldFilters: map[string]any{"status": "hired"}})
	if err != nil || len(hired) != 1 || hired[0].ID() != "3" {
		t.Errorf("filter after decode = %v, %v", hired, err)
	}
}

func TestListRecords_UnknownCollectionEmpty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.ListRecords(context.Background(), "nothing")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty non-nil slice", got)
	}
}

func TestGetRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.SeedCollection(ctx, "applications", sampleApplications())

	r, err := s.GetRecord(ctx, "applications", "2")
	if err != nil {
		t.Fatal(err)
	}
	if r["candidateName"] != "Michael Chen" {
		t.Errorf("candidateName = %v", r["candidateName"])
	}
	if _, err := s.GetRecord(ctx, "applications", "99"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.SeedCollection(ctx, "applications", sampleApplications())

	got, err := s.UpdateRecord(ctx, "applications", "1", map[string]any{"status": "Interview Scheduled", "id": "hijack"})
	if err != nil {
		t.Fatal(err)
	}
	if got["status"] != "Interview Scheduled" || got.ID() != "1" {
		t.Errorf("updated = %v", got)
	}

	again, _ := s.GetRecord(ctx, "applications", "1")
	if again["status"] != "Interview Scheduled" || again["candidateName"] != "Sarah Johnson" {
		t.Errorf("persisted = %v", again)
	}

	list, _ := s.ListRecords(ctx, "applications")
	if list[0].ID() != "1" {
		t.Error("update changed record position")
	}

	if _, err := s.UpdateRecord(ctx, "applications", "99", map[string]any{"status": "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.SeedCollection(ctx, "applications", sampleApplications())

	if err := s.DeleteRecord(ctx, "applications", "2"); err != nil {
		t.Fatal(err)
	}
	list, _ := s.ListRecords(ctx, "applications")
	var ids []string
	for _, r := range list {
		ids = append(ids, r.ID())
	}
	if !reflect.DeepEqual(ids, []string{"1", "3"}) {
		t.Errorf("ids = %v", ids)
	}
	if err := s.DeleteRecord(ctx, "applications", "2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestCollections(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.SeedCollection(ctx, "jobs", []filter.Record{{"id": "a"}})
	s.SeedCollection(ctx, "applications", sampleApplications())

	got, err := s.Collections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"applications", "jobs"}) {
		t.Errorf("Collections = %v", got)
	}
}

func TestCollectionSource(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.SeedCollection(ctx, "applications", sampleApplications())

	got, err := Collection(s, "applications").List(ctx)
	if err != nil || len(got) != 3 {
		t.Errorf("List = %d records, %v", len(got), err)
	}
}

func TestOperators(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	if err := s.UpsertOperator(ctx, Operator{Email: "ops@example.com", Role: "admin", PasswordHash: "h1", CreatedAt: created}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertOperator(ctx, Operator{Email: "ops@example.com", Role: "sales", PasswordHash: "h2"}); err != nil {
		t.Fatal(err)
	}

	op, err := s.GetOperator(ctx, "ops@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if op.Role != "sales" || op.PasswordHash != "h2" || !op.CreatedAt.Equal(created) {
		t.Errorf("operator = %+v; upsert should replace role and hash but keep created_at", op)
	}

	if _, err := s.GetOperator(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	all, err := s.ListOperators(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("ListOperators = %v, %v", all, err)
	}
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	b, err := OpenBackend(ctx, "sqlite", ":memory:", "")
	if err != nil {
		t.Fatal(err)
	}
	b.Close()

	if _, err := OpenBackend(ctx, "postgres", "", ""); err == nil {
		t.Error("postgres without a database url should fail")
	}
	if _, err := OpenBackend(ctx, "mongo", "", ""); err == nil {
		t.Error("unknown driver should fail")
	}
}
