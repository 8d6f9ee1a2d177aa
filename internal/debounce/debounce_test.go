package debounce

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) add(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestDebouncer_CoalescesRapidUpdates(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.add)
	defer d.Stop()

	d.Update("a")
	d.Update("ab")
	d.Update("abc")

	time.Sleep(80 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("fn called %d times, want 1 (got %v)", len(got), got)
	}
	if got[0] != "abc" {
		t.Errorf("delivered %q, want latest value abc", got[0])
	}
}

func TestDebouncer_DeliversAfterSettle(t *testing.T) {
	rec := &recorder{}
	d := New(10*time.Millisecond, rec.add)
	defer d.Stop()

	d.Update("first")
	time.Sleep(50 * time.Millisecond)
	d.Update("second")
	time.Sleep(50 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 2 {
		t.Fatalf("fn called %d times, want 2 (got %v)", len(got), got)
	}
	if got[0] != "first" || got[1] != "second" {
		t.Errorf("delivered %v", got)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.add)

	d.Update("doomed")
	d.Stop()

	time.Sleep(60 * time.Millisecond)

	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("fn called after Stop: %v", got)
	}

	// Updates after Stop are rejected.
	d.Update("late")
	time.Sleep(60 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("fn called for post-Stop update: %v", got)
	}
}

func TestDebouncer_Flush(t *testing.T) {
	rec := &recorder{}
	d := New(time.Hour, rec.add)
	defer d.Stop()

	d.Update("now")
	d.Flush()

	if got := rec.snapshot(); len(got) != 1 || got[0] != "now" {
		t.Fatalf("Flush() delivered %v, want [now]", got)
	}

	// Nothing pending: Flush is a no-op.
	d.Flush()
	if got := rec.snapshot(); len(got) != 1 {
		t.Errorf("second Flush() delivered again: %v", got)
	}
}

func TestDebouncer_ZeroDelayIsSynchronous(t *testing.T) {
	rec := &recorder{}
	d := New[string](0, rec.add)
	defer d.Stop()

	d.Update("sync")
	if got := rec.snapshot(); len(got) != 1 || got[0] != "sync" {
		t.Fatalf("zero-delay Update delivered %v", got)
	}
}
