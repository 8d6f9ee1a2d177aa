package handlers

import (
	"net/http"
)

// Dashboard shows collection stats, backend health and recent activity.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	status := h.backend.Status()

	data := map[string]any{
		"TemplateCount": h.store.Len(),
		"FetchedAt":     h.store.FetchedAt(),
		"FetchErr":      h.store.Err(),
	}

	if status.Healthy {
		// Backend detail endpoints are best-effort dashboard garnish.
		if db, err := h.client.DatabaseStatus(r.Context()); err == nil && db.Error == "" {
			data["DBName"] = db.Database
			data["DBConnections"] = db.ActiveConnections
		}
		if logs, err := h.client.RecentLogs(r.Context()); err == nil {
			data["BackendLogs"] = logs
		}
	}

	if h.journal != nil {
		if entries, err := h.journal.Recent(r.Context(), 15); err == nil {
			data["Journal"] = entries
		}
	}

	h.render(w, r, "dashboard", data)
}
