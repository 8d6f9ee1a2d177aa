package handlers

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/templar-app/templar/internal/backend"
	"github.com/templar-app/templar/internal/forms"
	"github.com/templar-app/templar/internal/journal"
	"github.com/templar-app/templar/internal/metrics"
	"github.com/templar-app/templar/internal/store"
	"github.com/templar-app/templar/internal/web/config"
	"github.com/templar-app/templar/internal/web/flash"
	"github.com/templar-app/templar/internal/web/views"
	"github.com/templar-app/templar/internal/web/worker"
)

// BackendStatus reports the last observed backend state.
type BackendStatus interface {
	Status() worker.Status
}

type Handlers struct {
	cfg     *config.Config
	logger  *slog.Logger
	views   *views.Engine
	client  *backend.Client
	store   *store.Store
	journal *journal.Journal
	metrics *metrics.Metrics
	backend BackendStatus

	notices *flash.Recorder
	upload  *forms.UploadForm
	edit    *forms.EditSession

	mu       sync.Mutex
	lastFile *cachedFile
}

// cachedFile keeps the bytes of the file selected in the upload form, so
// field edits that round-trip through a redirect do not lose the selection.
type cachedFile struct {
	name string
	size int64
	mime string
	data []byte
}

func New(cfg *config.Config, logger *slog.Logger, v *views.Engine, client *backend.Client, st *store.Store, j *journal.Journal, m *metrics.Metrics, backendStatus BackendStatus) *Handlers {
	h := &Handlers{
		cfg:     cfg,
		logger:  logger,
		views:   v,
		client:  client,
		store:   st,
		journal: j,
		metrics: m,
		backend: backendStatus,
		notices: &flash.Recorder{},
	}
	h.upload = forms.NewUploadForm(client, h.notices)
	h.edit = forms.NewEditSession(client, st, h.notices)
	return h
}

// flushNotices moves collected notifications into the flash cookie.
func (h *Handlers) flushNotices(w http.ResponseWriter) {
	h.notices.Flush(w)
}

// Health is the web app's own liveness endpoint.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// render executes a page template with the layout.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["Flashes"] = flash.Pop(w, r)
	data["BackendUp"] = h.backend.Status().Healthy

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.views.Render(w, name, data); err != nil {
		h.logger.Error("render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// renderError shows the error page with a user-facing message.
func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.views.Render(w, "error", map[string]any{"Message": message}); err != nil {
		http.Error(w, message, status)
	}
}

// recordActivity appends to the journal, logging but not failing on error.
func (h *Handlers) recordActivity(r *http.Request, level, action, message string) {
	if h.journal == nil {
		return
	}
	err := h.journal.Append(r.Context(), journal.Entry{
		Level:   level,
		Action:  action,
		Message: message,
	})
	if err != nil {
		h.logger.Warn("journal append failed", "error", err)
	}
}
