package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/templar-app/templar/internal/backend"
)

// Admin endpoints expose operational state as JSON, mirroring the shape of
// the backend's own admin surface.

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encode response failed", "error", err)
	}
}

// AdminHealth reports the last observed backend state alongside this app's
// own status.
func (h *Handlers) AdminHealth(w http.ResponseWriter, r *http.Request) {
	status := h.backend.Status()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"backend_healthy": status.Healthy,
		"backend_checked": status.CheckedAt,
		"backend_error":   status.Err,
		"templates":       h.store.Len(),
	})
}

// AdminJournal returns recent activity entries.
func (h *Handlers) AdminJournal(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if h.journal == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"entries": nil})
		return
	}
	entries, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// AdminBackendLogs proxies the backend's recent log lines.
func (h *Handlers) AdminBackendLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.client.RecentLogs(r.Context())
	if err != nil {
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": backend.UserMessage(err)})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

// AdminBackendConfig proxies the backend's reported configuration.
func (h *Handlers) AdminBackendConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.client.ServerConfig(r.Context())
	if err != nil {
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": backend.UserMessage(err)})
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// AdminDBStatus proxies the backend's database status.
func (h *Handlers) AdminDBStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.client.DatabaseStatus(r.Context())
	if err != nil {
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": backend.UserMessage(err)})
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}
