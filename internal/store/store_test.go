package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/templar-app/templar/internal/backend"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLister serves canned responses and lets a test hold a fetch in flight.
type fakeLister struct {
	mu        sync.Mutex
	templates []backend.Template
	err       error
	calls     int
	block     chan struct{} // when set, ListTemplates waits on it
}

func (f *fakeLister) ListTemplates(ctx context.Context) ([]backend.Template, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	templates, err := f.templates, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return append([]backend.Template(nil), templates...), nil
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestStore_FetchAllSortsByID(t *testing.T) {
	lister := &fakeLister{templates: []backend.Template{
		{ID: 3, DisplayName: "C"},
		{ID: 1, DisplayName: "A"},
		{ID: 2, DisplayName: "B"},
	}}
	s := New(lister, testLogger())
	defer s.Close()

	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	got := s.Snapshot()
	wantIDs := []int64{1, 2, 3}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("position %d: ID = %d, want %d", i, got[i].ID, id)
		}
	}
	if s.Loading() {
		t.Error("Loading() should be false after fetch completes")
	}
	if s.Err() != "" {
		t.Errorf("Err() = %q, want empty", s.Err())
	}
}

func TestStore_FailureKeepsPreviousCollection(t *testing.T) {
	lister := &fakeLister{templates: []backend.Template{{ID: 1, DisplayName: "Keep me"}}}
	s := New(lister, testLogger())
	defer s.Close()

	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	lister.mu.Lock()
	lister.err = errors.New("backend down")
	lister.mu.Unlock()

	if err := s.FetchAll(context.Background()); err == nil {
		t.Fatal("FetchAll() should report the failure")
	}

	got := s.Snapshot()
	if len(got) != 1 || got[0].DisplayName != "Keep me" {
		t.Errorf("previous collection was not preserved: %+v", got)
	}
	if s.Err() == "" {
		t.Error("Err() should carry the failure message")
	}
}

func TestStore_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	lister := &fakeLister{
		templates: []backend.Template{{ID: 99, DisplayName: "stale"}},
		block:     release,
	}
	s := New(lister, testLogger())
	defer s.Close()

	// First fetch parks inside the client.
	done := make(chan error, 1)
	go func() { done <- s.FetchAll(context.Background()) }()

	// Wait for the first call to be issued.
	for lister.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	// Second fetch supersedes it and completes immediately.
	lister.mu.Lock()
	lister.block = nil
	lister.templates = []backend.Template{{ID: 1, DisplayName: "fresh"}}
	lister.mu.Unlock()

	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	// Now let the stale response land; it must be discarded.
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("stale FetchAll() returned error %v, want nil", err)
	}

	got := s.Snapshot()
	want := []backend.Template{{ID: 1, DisplayName: "fresh"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stale response overwrote fresh data (-want +got):\n%s", diff)
	}
}

func TestStore_RequestRefreshCoalesces(t *testing.T) {
	lister := &fakeLister{}
	s := New(lister, testLogger(), WithRefreshDelay(20*time.Millisecond))
	defer s.Close()

	s.RequestRefresh()
	s.RequestRefresh()
	s.RequestRefresh()

	time.Sleep(100 * time.Millisecond)

	if got := lister.callCount(); got != 1 {
		t.Errorf("backend called %d times, want 1", got)
	}
}

func TestStore_ApplyHook(t *testing.T) {
	lister := &fakeLister{templates: []backend.Template{{ID: 1}, {ID: 2}}}

	var counts []int
	s := New(lister, testLogger(), WithApplyHook(func(n int) { counts = append(counts, n) }))
	defer s.Close()

	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	if len(counts) != 1 || counts[0] != 2 {
		t.Errorf("apply hook saw %v, want [2]", counts)
	}
}

func TestStore_Get(t *testing.T) {
	lister := &fakeLister{templates: []backend.Template{{ID: 5, DisplayName: "Five"}}}
	s := New(lister, testLogger())
	defer s.Close()

	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	got, ok := s.Get(5)
	if !ok || got.DisplayName != "Five" {
		t.Errorf("Get(5) = %+v, %v", got, ok)
	}
	if _, ok := s.Get(6); ok {
		t.Error("Get(6) should report not found")
	}
}
