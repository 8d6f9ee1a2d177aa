package forms

import (
	"context"
	"strings"
	"sync"

	"github.com/templar-app/templar/internal/backend"
)

// EditClient is the slice of the backend client the edit session needs.
type EditClient interface {
	UpdateTemplate(ctx context.Context, id int64, upd backend.TemplateUpdate) (string, error)
	DeleteTemplate(ctx context.Context, id int64) error
}

// Refresher re-fetches the template collection after a mutation.
type Refresher interface {
	FetchAll(ctx context.Context) error
}

// EditDraft is the working copy of a template being edited.
type EditDraft struct {
	ID          int64
	DisplayName string
	Fields      []string
}

// EditSession holds at most one edit draft at a time. Starting an edit on
// another template silently discards the previous draft without touching the
// backend. Saves and deletes go through the backend and re-fetch the
// collection, so the list always reflects server truth.
type EditSession struct {
	client EditClient
	store  Refresher
	notify Notifier

	mu     sync.Mutex
	active bool
	draft  EditDraft
}

// NewEditSession creates a session with no active draft.
func NewEditSession(client EditClient, store Refresher, notify Notifier) *EditSession {
	return &EditSession{client: client, store: store, notify: notify}
}

// BeginEdit seeds a draft from the template. Any previous draft is dropped.
// Fields stored as a single comma-joined string are split back into
// individual names.
func (s *EditSession) BeginEdit(t backend.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.draft = EditDraft{
		ID:          t.ID,
		DisplayName: t.DisplayName,
		Fields:      NormalizeFields(t.Fields),
	}
}

// Active reports whether a draft is open, and for which template.
func (s *EditSession) Active() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.ID, s.active
}

// Draft returns a copy of the open draft.
func (s *EditSession) Draft() (EditDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return EditDraft{}, false
	}
	d := s.draft
	d.Fields = append([]string(nil), s.draft.Fields...)
	return d, true
}

// SetDisplayName updates the draft's name. No-op without an active draft.
func (s *EditSession) SetDisplayName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.draft.DisplayName = name
}

// AddField adds fields to the draft with the same trim/split/dedupe rules
// as the upload form.
func (s *EditSession) AddField(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	for _, segment := range splitFieldInput(raw) {
		s.draft.Fields = appendField(s.draft.Fields, segment)
	}
}

// RemoveField removes the first exact match from the draft.
func (s *EditSession) RemoveField(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.draft.Fields = removeField(s.draft.Fields, name)
}

// Cancel discards the draft without contacting the backend.
func (s *EditSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.draft = EditDraft{}
}

// Save validates and persists the draft, then refreshes the collection and
// closes the draft. On failure the draft stays open for retry.
func (s *EditSession) Save(ctx context.Context) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	name := strings.TrimSpace(s.draft.DisplayName)
	if name == "" {
		s.mu.Unlock()
		verr := &ValidationError{Rule: RuleDisplayName, Message: "display name must not be empty"}
		s.notify.Error(verr.Message)
		return verr
	}
	id := s.draft.ID
	fields := append([]string(nil), s.draft.Fields...)
	s.mu.Unlock()

	upd := backend.TemplateUpdate{DisplayName: &name, Fields: &fields}
	msg, err := s.client.UpdateTemplate(ctx, id, upd)
	if err != nil {
		s.notify.Error(backend.UserMessage(err))
		return err
	}

	s.mu.Lock()
	s.active = false
	s.draft = EditDraft{}
	s.mu.Unlock()

	if msg == "" {
		msg = "template updated"
	}
	s.notify.Success(msg)
	return s.store.FetchAll(ctx)
}

// Delete removes a template. It is independent of the edit draft, except
// that deleting the template currently being edited also closes the draft.
// The collection is re-fetched afterwards rather than patched locally.
func (s *EditSession) Delete(ctx context.Context, id int64) error {
	if err := s.client.DeleteTemplate(ctx, id); err != nil {
		s.notify.Error(backend.UserMessage(err))
		return err
	}

	s.mu.Lock()
	if s.active && s.draft.ID == id {
		s.active = false
		s.draft = EditDraft{}
	}
	s.mu.Unlock()

	s.notify.Success("template deleted")
	return s.store.FetchAll(ctx)
}
