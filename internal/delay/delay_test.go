package delay

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManual_RunsInDueOrder(t *testing.T) {
	m := NewManual()
	var order []int
	m.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	m.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	m.AfterFunc(3*time.Second, func() { order = append(order, 3) })

	m.Advance(2 * time.Second)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("after 2s order = %v, want [1 2]", order)
	}
	if m.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", m.Pending())
	}

	m.Advance(time.Second)
	if len(order) != 3 || order[2] != 3 {
		t.Fatalf("after 3s order = %v, want [1 2 3]", order)
	}
}

func TestManual_Stop(t *testing.T) {
	m := NewManual()
	fired := false
	h := m.AfterFunc(time.Second, func() { fired = true })

	if !h.Stop() {
		t.Fatal("first Stop should report true")
	}
	if h.Stop() {
		t.Error("second Stop should report false")
	}
	m.Advance(2 * time.Second)
	if fired {
		t.Error("stopped callback ran")
	}
}

func TestManual_StopAfterFire(t *testing.T) {
	m := NewManual()
	h := m.AfterFunc(time.Millisecond, func() {})
	m.Advance(time.Millisecond)
	if h.Stop() {
		t.Error("Stop after the callback ran should report false")
	}
}

func TestManual_NestedScheduling(t *testing.T) {
	m := NewManual()
	var count int
	m.AfterFunc(time.Second, func() {
		count++
		m.AfterFunc(time.Second, func() { count++ })
	})

	m.Advance(3 * time.Second)
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestTimer_Fires(t *testing.T) {
	var fired atomic.Bool
	done := make(chan struct{})
	Timer{}.AfterFunc(5*time.Millisecond, func() {
		fired.Store(true)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer callback did not run")
	}
	if !fired.Load() {
		t.Error("fired = false")
	}
}
