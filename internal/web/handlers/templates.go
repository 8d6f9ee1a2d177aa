package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/templar-app/templar/internal/backend"
	"github.com/templar-app/templar/internal/forms"
	"github.com/templar-app/templar/internal/viewmodel"
)

// maxUploadMemory bounds multipart parsing; oversize files still reach the
// form controller so its size rule produces the user-facing message.
const maxUploadMemory = 8 << 20

func (h *Handlers) TemplateList(w http.ResponseWriter, r *http.Request) {
	// First page load may beat the background worker to the collection.
	if h.store.FetchedAt().IsZero() {
		if err := h.store.FetchAll(r.Context()); err != nil {
			h.logger.Warn("initial fetch failed", "error", err)
		}
	}

	query := r.URL.Query().Get("q")
	sortKey := h.sortKey(r)
	templates := viewmodel.Derive(h.store.Snapshot(), query, sortKey)

	data := map[string]any{
		"Templates":      templates,
		"Query":          query,
		"Sort":           string(sortKey),
		"SearchDebounce": h.cfg.UI.SearchDebounce,
		"FetchErr":       h.store.Err(),
	}
	if draft, ok := h.edit.Draft(); ok {
		data["Edit"] = draft
	}
	h.render(w, r, "templates", data)
}

// TemplateRows serves just the table body for the debounced search.
func (h *Handlers) TemplateRows(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	templates := viewmodel.Derive(h.store.Snapshot(), query, h.sortKey(r))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := h.views.RenderPartial(w, "template_rows", map[string]any{"Templates": templates})
	if err != nil {
		h.logger.Error("render rows failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handlers) sortKey(r *http.Request) viewmodel.SortKey {
	raw := r.URL.Query().Get("sort")
	if raw == "" {
		raw = h.cfg.UI.DefaultSort
	}
	return viewmodel.ParseSortKey(raw)
}

func (h *Handlers) UploadPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "upload", map[string]any{
		"Draft":         h.upload.Draft(),
		"TemplateTypes": backend.TemplateTypes,
		"Submitting":    h.upload.State() == forms.StateSubmitting,
	})
}

// applyUploadValues folds the posted form values into the upload draft,
// caching a newly selected file so it survives the redirect after field
// edits.
func (h *Handlers) applyUploadValues(r *http.Request) error {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && err != http.ErrNotMultipart {
		return fmt.Errorf("parse form: %w", err)
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return fmt.Errorf("read upload: %w", err)
		}
		cached := &cachedFile{
			name: header.Filename,
			size: header.Size,
			mime: forms.DetectMIME(header.Filename, data),
			data: data,
		}
		h.mu.Lock()
		h.lastFile = cached
		h.mu.Unlock()
	}

	h.setFileFromCache()

	if v := r.FormValue("template_type"); v != "" {
		h.upload.SetTemplateType(v)
	}
	if vs, ok := r.Form["display_name"]; ok && len(vs) > 0 {
		h.upload.SetDisplayName(vs[0])
	}
	return nil
}

// setFileFromCache points the draft at a fresh reader over the cached file
// bytes. Needed before every submit since a reader is consumed once.
func (h *Handlers) setFileFromCache() {
	h.mu.Lock()
	cached := h.lastFile
	h.mu.Unlock()
	if cached == nil {
		return
	}
	h.upload.SetFile(&forms.FileRef{
		Name:    cached.name,
		Size:    cached.size,
		MIME:    cached.mime,
		Content: bytes.NewReader(cached.data),
	})
}

func (h *Handlers) clearFileCache() {
	h.mu.Lock()
	h.lastFile = nil
	h.mu.Unlock()
}

func (h *Handlers) UploadSubmit(w http.ResponseWriter, r *http.Request) {
	if err := h.applyUploadValues(r); err != nil {
		h.notices.Error("could not read the submitted form")
		h.flushNotices(w)
		http.Redirect(w, r, "/templates/upload", http.StatusSeeOther)
		return
	}

	err := h.upload.Submit(r.Context())
	if h.metrics != nil && !forms.IsValidationError(err) {
		h.metrics.RecordUpload(err)
	}
	h.flushNotices(w)

	if err != nil {
		http.Redirect(w, r, "/templates/upload", http.StatusSeeOther)
		return
	}

	h.clearFileCache()
	h.recordActivity(r, "INFO", "upload", "template uploaded")
	if err := h.store.FetchAll(r.Context()); err != nil {
		h.logger.Warn("refresh after upload failed", "error", err)
	}
	http.Redirect(w, r, "/templates", http.StatusSeeOther)
}

func (h *Handlers) UploadFieldAdd(w http.ResponseWriter, r *http.Request) {
	if err := h.applyUploadValues(r); err == nil {
		h.upload.AddField(r.FormValue("new_field"))
	}
	h.flushNotices(w)
	http.Redirect(w, r, "/templates/upload", http.StatusSeeOther)
}

func (h *Handlers) UploadFieldRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.applyUploadValues(r); err == nil {
		h.upload.RemoveField(r.FormValue("remove_field"))
	}
	h.flushNotices(w)
	http.Redirect(w, r, "/templates/upload", http.StatusSeeOther)
}

// UploadExtract asks the backend to suggest field names from the selected
// file and merges them into the draft.
func (h *Handlers) UploadExtract(w http.ResponseWriter, r *http.Request) {
	if err := h.applyUploadValues(r); err != nil {
		h.notices.Error("could not read the submitted form")
		h.flushNotices(w)
		http.Redirect(w, r, "/templates/upload", http.StatusSeeOther)
		return
	}

	h.mu.Lock()
	cached := h.lastFile
	h.mu.Unlock()
	if cached == nil {
		h.notices.Error("select a file before extracting fields")
		h.flushNotices(w)
		http.Redirect(w, r, "/templates/upload", http.StatusSeeOther)
		return
	}

	fields, err := h.client.ExtractFields(r.Context(), cached.name, bytes.NewReader(cached.data))
	if err != nil {
		h.notices.Error(backend.UserMessage(err))
	} else {
		for _, f := range fields {
			h.upload.AddField(f)
		}
		h.notices.Success(fmt.Sprintf("found %d field(s) in %s", len(fields), cached.name))
		h.recordActivity(r, "INFO", "extract", fmt.Sprintf("extracted %d fields from %s", len(fields), cached.name))
	}
	h.flushNotices(w)
	http.Redirect(w, r, "/templates/upload", http.StatusSeeOther)
}

func (h *Handlers) templateID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// EditBegin opens the edit draft for a template. Any draft already open for
// another template is discarded.
func (h *Handlers) EditBegin(w http.ResponseWriter, r *http.Request) {
	id, err := h.templateID(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid template id")
		return
	}
	t, ok := h.store.Get(id)
	if !ok {
		h.renderError(w, r, http.StatusNotFound, "template not found")
		return
	}
	h.edit.BeginEdit(t)
	http.Redirect(w, r, "/templates", http.StatusSeeOther)
}

func (h *Handlers) EditSave(w http.ResponseWriter, r *http.Request) {
	if v := r.FormValue("display_name"); v != "" || r.Form.Has("display_name") {
		h.edit.SetDisplayName(v)
	}
	if err := h.edit.Save(r.Context()); err == nil {
		h.recordActivity(r, "INFO", "edit", "template updated")
	}
	h.flushNotices(w)
	http.Redirect(w, r, "/templates", http.StatusSeeOther)
}

func (h *Handlers) EditFieldAdd(w http.ResponseWriter, r *http.Request) {
	if r.Form == nil {
		r.ParseForm()
	}
	if r.Form.Has("display_name") {
		h.edit.SetDisplayName(r.FormValue("display_name"))
	}
	h.edit.AddField(r.FormValue("new_field"))
	http.Redirect(w, r, "/templates", http.StatusSeeOther)
}

func (h *Handlers) EditFieldRemove(w http.ResponseWriter, r *http.Request) {
	if r.Form == nil {
		r.ParseForm()
	}
	if r.Form.Has("display_name") {
		h.edit.SetDisplayName(r.FormValue("display_name"))
	}
	h.edit.RemoveField(r.FormValue("remove_field"))
	http.Redirect(w, r, "/templates", http.StatusSeeOther)
}

func (h *Handlers) EditCancel(w http.ResponseWriter, r *http.Request) {
	h.edit.Cancel()
	http.Redirect(w, r, "/templates", http.StatusSeeOther)
}

// TemplateDelete removes a template after browser-side confirmation, then
// re-fetches the collection rather than patching it locally.
func (h *Handlers) TemplateDelete(w http.ResponseWriter, r *http.Request) {
	id, err := h.templateID(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "invalid template id")
		return
	}

	err = h.edit.Delete(r.Context(), id)
	if h.metrics != nil {
		h.metrics.RecordDelete(err)
	}
	if err == nil {
		h.recordActivity(r, "INFO", "delete", fmt.Sprintf("template %d deleted", id))
	} else {
		h.recordActivity(r, "WARN", "delete", fmt.Sprintf("delete of template %d failed", id))
	}
	h.flushNotices(w)
	http.Redirect(w, r, "/templates", http.StatusSeeOther)
}
