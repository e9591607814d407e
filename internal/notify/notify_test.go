package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestFeed_RingOrder(t *testing.T) {
	f := NewFeed(3)
	for _, title := range []string{"a", "b", "c", "d"} {
		f.Notify(context.Background(), Info(title, ""))
	}
	got := f.List()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"b", "c", "d"} {
		if got[i].Title != want {
			t.Errorf("item %d = %q, want %q", i, got[i].Title, want)
		}
	}
}

func TestFeed_Since(t *testing.T) {
	f := NewFeed(10)
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	f.Notify(context.Background(), Notification{Title: "old", Time: base})
	f.Notify(context.Background(), Notification{Title: "new", Time: base.Add(time.Minute)})

	got := f.Since(base)
	if len(got) != 1 || got[0].Title != "new" {
		t.Errorf("Since = %+v", got)
	}
}

func TestMulti_StampsTimeAndFansOut(t *testing.T) {
	a, b := NewFeed(2), NewFeed(2)
	Multi{a, nil, b}.Notify(context.Background(), Alert("Access Denied", "Invalid admin credentials."))

	for _, f := range []*Feed{a, b} {
		items := f.List()
		if len(items) != 1 || items[0].Severity != Destructive || items[0].Time.IsZero() {
			t.Errorf("feed items = %+v", items)
		}
	}
}

func TestLogNotifier_LevelBySeverity(t *testing.T) {
	var buf bytes.Buffer
	l := LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	l.Notify(context.Background(), Alert("Job Deleted", "Job posting has been removed."))

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, `title="Job Deleted"`) {
		t.Errorf("log output = %q", out)
	}
}

func TestRedisNotifier_Publishes(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rdb, err := NewRedisClient(ctx, "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer rdb.Close()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()}).Subscribe(ctx, "jobportal:notifications")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	n := NewRedisNotifier(rdb, "jobportal:notifications", nil)
	if err := n.Publish(ctx, Info("Job Posted Successfully", "live")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(rctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	var got Notification
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatal(err)
	}
	if got.Title != "Job Posted Successfully" || got.Severity != Default {
		t.Errorf("payload = %+v", got)
	}
}

func TestNewRedisClient_BadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "not a url"); err == nil {
		t.Error("expected error")
	}
}
