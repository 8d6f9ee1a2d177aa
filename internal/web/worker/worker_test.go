package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/templar-app/templar/internal/backend"
)

type fakeHealth struct {
	mu      sync.Mutex
	status  string
	err     error
	calls   int
}

func (f *fakeHealth) Health(ctx context.Context) (*backend.HealthStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &backend.HealthStatus{Status: f.status}, nil
}

func (f *fakeHealth) set(status string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.err = err
}

type fakeStore struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeStore) FetchAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPollRecordsHealthyStatus(t *testing.T) {
	client := &fakeHealth{status: "ok"}
	store := &fakeStore{}
	w := New(client, store, discard(), time.Hour)

	w.poll()

	st := w.Status()
	if !st.Healthy {
		t.Errorf("status = %+v, want healthy", st)
	}
	if st.CheckedAt.IsZero() {
		t.Error("CheckedAt not set")
	}
	if store.callCount() != 1 {
		t.Errorf("store refreshed %d times, want 1", store.callCount())
	}
}

func TestPollRecordsFailure(t *testing.T) {
	client := &fakeHealth{err: &backend.NetworkError{Err: errors.New("refused")}}
	store := &fakeStore{}
	w := New(client, store, discard(), time.Hour)

	w.poll()

	st := w.Status()
	if st.Healthy {
		t.Error("unreachable backend reported healthy")
	}
	if st.Err == "" {
		t.Error("no error message recorded")
	}
	if store.callCount() != 0 {
		t.Error("store refreshed while backend down")
	}
}

func TestPollTransition(t *testing.T) {
	client := &fakeHealth{err: &backend.NetworkError{Err: errors.New("refused")}}
	w := New(client, &fakeStore{}, discard(), time.Hour)

	w.poll()
	if w.Status().Healthy {
		t.Fatal("expected unhealthy")
	}

	client.set("ok", nil)
	w.poll()
	if !w.Status().Healthy {
		t.Fatal("expected recovery to healthy")
	}
}

func TestStartStop(t *testing.T) {
	client := &fakeHealth{status: "ok"}
	w := New(client, &fakeStore{}, discard(), 10*time.Millisecond)

	w.Start()
	time.Sleep(50 * time.Millisecond)
	w.Stop()

	client.mu.Lock()
	calls := client.calls
	client.mu.Unlock()
	if calls < 2 {
		t.Errorf("health checked %d times, want at least 2", calls)
	}
}
