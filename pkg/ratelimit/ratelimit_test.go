package ratelimit

import (
	"testing"
	"time"
)

func TestMemory_DeniesSixthCall(t *testing.T) {
	t.Parallel()

	m := NewMemory(5, time.Minute)

	for i := 0; i < 5; i++ {
		ok, _ := m.Check("1.2.3.4")
		if !ok {
			t.Fatalf("call %d unexpectedly denied", i+1)
		}
	}

	ok, retryAfter := m.Check("1.2.3.4")
	if ok {
		t.Fatal("6th call within the window was allowed")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("retryAfter out of range: %v", retryAfter)
	}
}

func TestMemory_WindowReset(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(2, time.Minute)
	m.now = func() time.Time { return now }

	m.Check("client")
	m.Check("client")
	if ok, _ := m.Check("client"); ok {
		t.Fatal("over-limit call allowed")
	}

	now = now.Add(time.Minute)
	if ok, _ := m.Check("client"); !ok {
		t.Fatal("call after window reset denied")
	}

	// counter restarted at 1, so one more fits
	if ok, _ := m.Check("client"); !ok {
		t.Fatal("second call of new window denied")
	}
	if ok, _ := m.Check("client"); ok {
		t.Fatal("third call of new window allowed")
	}
}

func TestMemory_ClientsIsolated(t *testing.T) {
	t.Parallel()

	m := NewMemory(1, time.Minute)

	if ok, _ := m.Check("a"); !ok {
		t.Fatal("first call for a denied")
	}
	if ok, _ := m.Check("a"); ok {
		t.Fatal("second call for a allowed")
	}
	if ok, _ := m.Check("b"); !ok {
		t.Fatal("b throttled by a's window")
	}
}

func TestMemory_Reset(t *testing.T) {
	t.Parallel()

	m := NewMemory(1, time.Minute)
	m.Check("a")
	m.Reset("a")
	if ok, _ := m.Check("a"); !ok {
		t.Fatal("call after Reset denied")
	}
}
