// Package store holds the in-memory template collection for the current
// session. The collection is a transient, refetchable cache of backend state,
// not a source of truth: all mutation happens server-side and lands here via
// FetchAll.
package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/templar-app/templar/internal/backend"
	"github.com/templar-app/templar/internal/debounce"
)

// DefaultRefreshDelay coalesces refresh requests fired in quick succession
// (upload then delete, say) into a single backend fetch.
const DefaultRefreshDelay = 300 * time.Millisecond

// Lister is the slice of the backend client the store needs.
type Lister interface {
	ListTemplates(ctx context.Context) ([]backend.Template, error)
}

// Store owns the template collection. Every successful fetch replaces the
// whole collection; a failed fetch leaves the previous collection intact and
// records the error. Each FetchAll call takes a monotonically increasing
// sequence number, and a response is applied only if it belongs to the
// latest issued fetch, so overlapping fetches resolve deterministically
// instead of racing on arrival order.
type Store struct {
	client  Lister
	logger  *slog.Logger
	onApply func(count int)

	mu        sync.Mutex
	seq       uint64
	templates []backend.Template
	loading   bool
	lastErr   string
	fetchedAt time.Time

	refresh *debounce.Debouncer[struct{}]
}

// Option configures a Store.
type Option func(*Store)

// WithApplyHook installs a hook called with the collection size after every
// applied fetch, used for metrics.
func WithApplyHook(fn func(count int)) Option {
	return func(s *Store) { s.onApply = fn }
}

// WithRefreshDelay overrides the refresh coalescing window.
func WithRefreshDelay(d time.Duration) Option {
	return func(s *Store) {
		s.refresh = debounce.New(d, func(struct{}) { s.backgroundFetch() })
	}
}

// New creates a store backed by client.
func New(client Lister, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		client: client,
		logger: logger,
	}
	s.refresh = debounce.New(DefaultRefreshDelay, func(struct{}) { s.backgroundFetch() })
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchAll reloads the collection from the backend. The result of a fetch
// that has been superseded by a newer one is discarded entirely and FetchAll
// returns nil for it; only the latest fetch reports its outcome.
func (s *Store) FetchAll(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	token := s.seq
	s.loading = true
	s.mu.Unlock()

	templates, err := s.client.ListTemplates(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.seq {
		// A newer fetch was issued while this one was in flight.
		s.logger.Debug("discarding stale template fetch", "seq", token, "latest", s.seq)
		return nil
	}
	s.loading = false

	if err != nil {
		s.lastErr = err.Error()
		return err
	}

	// Deterministic display order regardless of backend return order.
	sort.SliceStable(templates, func(i, j int) bool {
		return templates[i].ID < templates[j].ID
	})

	s.templates = templates
	s.lastErr = ""
	s.fetchedAt = time.Now()
	if s.onApply != nil {
		s.onApply(len(templates))
	}
	return nil
}

// RequestRefresh schedules a debounced background fetch. Bursts of requests
// inside the coalescing window collapse into one backend call.
func (s *Store) RequestRefresh() {
	s.refresh.Update(struct{}{})
}

func (s *Store) backgroundFetch() {
	ctx, cancel := context.WithTimeout(context.Background(), backend.DefaultTimeout)
	defer cancel()
	if err := s.FetchAll(ctx); err != nil {
		s.logger.Warn("background template refresh failed", "error", err)
	}
}

// Snapshot returns a copy of the current collection.
func (s *Store) Snapshot() []backend.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]backend.Template, len(s.templates))
	copy(out, s.templates)
	return out
}

// Get returns the template with the given id from the current collection.
func (s *Store) Get(id int64) (backend.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.templates {
		if t.ID == id {
			return t, true
		}
	}
	return backend.Template{}, false
}

// Len returns the current collection size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.templates)
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the message of the last failed fetch, empty after a success.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// FetchedAt returns when the collection was last replaced.
func (s *Store) FetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchedAt
}

// Close stops the refresh debouncer.
func (s *Store) Close() {
	s.refresh.Stop()
}
