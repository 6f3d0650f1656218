package chat

import (
	"sync"
	"testing"
	"time"
)

// manualTimer fires only when the test calls fire().
type manualTimer struct {
	mu      sync.Mutex
	stopped bool
	f       func()
}

func (m *manualTimer) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.stopped
	m.stopped = true
	return !was
}

func (m *manualTimer) fire() {
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	if !stopped {
		m.f()
	}
}

// newManualScheduler returns a scheduler whose timers never fire on
// their own, plus access to the created timers in order.
func newManualScheduler() (*ReceiptScheduler, *[]*manualTimer) {
	s := NewReceiptScheduler(time.Hour)
	var timers []*manualTimer
	var mu sync.Mutex
	s.afterFunc = func(_ time.Duration, f func()) receiptTimer {
		t := &manualTimer{f: f}
		mu.Lock()
		timers = append(timers, t)
		mu.Unlock()
		return t
	}
	return s, &timers
}

func TestScheduleFires(t *testing.T) {
	s, timers := newManualScheduler()

	fired := false
	s.Schedule("m1", "alice", "bob", func() { fired = true })
	if s.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", s.Pending())
	}

	(*timers)[0].fire()
	if !fired {
		t.Error("expected receipt to fire")
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d after fire, want 0", s.Pending())
	}
}

func TestCancelPreventsFire(t *testing.T) {
	s, timers := newManualScheduler()

	fired := false
	s.Schedule("m1", "alice", "bob", func() { fired = true })

	if !s.Cancel("m1") {
		t.Fatal("Cancel should report a pending timer")
	}
	(*timers)[0].fire()
	if fired {
		t.Error("cancelled receipt must not fire")
	}
	if s.Cancel("m1") {
		t.Error("second Cancel should report nothing pending")
	}
}

func TestCancelPair(t *testing.T) {
	s, timers := newManualScheduler()

	var fired []string
	s.Schedule("m1", "alice", "bob", func() { fired = append(fired, "m1") })
	s.Schedule("m2", "alice", "bob", func() { fired = append(fired, "m2") })
	s.Schedule("m3", "carol", "bob", func() { fired = append(fired, "m3") })

	if n := s.CancelPair("alice", "bob"); n != 2 {
		t.Fatalf("CancelPair = %d, want 2", n)
	}

	for _, tm := range *timers {
		tm.fire()
	}
	if len(fired) != 1 || fired[0] != "m3" {
		t.Errorf("fired = %v, want [m3]", fired)
	}
}

func TestCancelRecipient(t *testing.T) {
	s, timers := newManualScheduler()

	var fired []string
	s.Schedule("m1", "alice", "bob", func() { fired = append(fired, "m1") })
	s.Schedule("m2", "carol", "bob", func() { fired = append(fired, "m2") })
	s.Schedule("m3", "alice", "dave", func() { fired = append(fired, "m3") })

	if n := s.CancelRecipient("bob"); n != 2 {
		t.Fatalf("CancelRecipient = %d, want 2", n)
	}

	for _, tm := range *timers {
		tm.fire()
	}
	if len(fired) != 1 || fired[0] != "m3" {
		t.Errorf("fired = %v, want [m3]", fired)
	}
}

func TestRescheduleResetsTimer(t *testing.T) {
	s, timers := newManualScheduler()

	count := 0
	s.Schedule("m1", "alice", "bob", func() { count++ })
	s.Schedule("m1", "alice", "bob", func() { count++ })

	if s.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", s.Pending())
	}
	for _, tm := range *timers {
		tm.fire()
	}
	if count != 1 {
		t.Errorf("fired %d times, want 1", count)
	}
}

func TestRealTimerFires(t *testing.T) {
	s := NewReceiptScheduler(10 * time.Millisecond)

	done := make(chan struct{})
	s.Schedule("m1", "alice", "bob", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("receipt did not fire")
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d after fire, want 0", s.Pending())
	}
}
