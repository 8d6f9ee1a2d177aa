// Package forms owns the template form drafts: the upload form's
// validation/submission pipeline and the exclusive per-template edit
// session. Drafts are transient local state, distinct from persisted
// templates.
package forms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/templar-app/templar/internal/backend"
)

// MaxFileSize is the client-side upload cap, enforced before any network
// call.
const MaxFileSize = 5 << 20 // 5 MiB

// MIME types the backend accepts for template files.
const (
	MIMEPDF  = "application/pdf"
	MIMEDoc  = "application/msword"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var allowedMIMETypes = map[string]bool{
	MIMEPDF:  true,
	MIMEDoc:  true,
	MIMEDocx: true,
}

// DetectMIME resolves a file's MIME type from its extension, falling back
// to content sniffing. Extension wins because DOCX sniffs as a plain zip.
func DetectMIME(name string, sniff []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MIMEPDF
	case ".doc":
		return MIMEDoc
	case ".docx":
		return MIMEDocx
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	if len(sniff) > 0 {
		mt, _, err := mime.ParseMediaType(http.DetectContentType(sniff))
		if err == nil {
			return mt
		}
	}
	return "application/octet-stream"
}

// Notifier surfaces one-shot user-facing notifications.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// UploadClient is the slice of the backend client the upload form needs.
type UploadClient interface {
	UploadTemplate(ctx context.Context, up backend.UploadRequest) (*backend.UploadResult, error)
}

// State is the upload form lifecycle.
type State int

const (
	StateEmpty State = iota
	StateFilling
	StateValidating
	StateSubmitting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFilling:
		return "filling"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Validation rule identifiers, in enforcement order.
const (
	RuleFileRequired = "file_required"
	RuleFileType     = "file_type"
	RuleFileSize     = "file_size"
	RuleDisplayName  = "display_name"
)

// ValidationError is a client-side pre-flight failure. It never reaches the
// network.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidationError reports whether err is a pre-flight validation failure.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission has not finished; the submit control is disabled for the
// duration, so hitting this means a duplicate-submit race was stopped.
var ErrSubmitInFlight = errors.New("submission already in progress")

// FileRef is a handle on a selected file: enough metadata to validate it
// client-side plus a reader for the eventual upload.
type FileRef struct {
	Name    string
	Size    int64
	MIME    string
	Content io.Reader
}

// UploadDraft is the upload form's working state. It exists only while the
// form is open and is reset on successful submission.
type UploadDraft struct {
	File         *FileRef
	TemplateType string
	DisplayName  string
	Fields       []string
}

// UploadForm drives the template upload pipeline:
// Empty → Filling → Validating → Submitting → Success | Failed.
// Validation failures abort before any network call; a failed submission
// preserves the draft so the user can retry without re-entering data.
type UploadForm struct {
	client UploadClient
	notify Notifier

	mu    sync.Mutex
	state State
	draft UploadDraft
}

// NewUploadForm creates an empty upload form with the default template type.
func NewUploadForm(client UploadClient, notify Notifier) *UploadForm {
	return &UploadForm{
		client: client,
		notify: notify,
		state:  StateEmpty,
		draft:  UploadDraft{TemplateType: backend.TypeContract},
	}
}

// State returns the current lifecycle state.
func (f *UploadForm) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Draft returns a copy of the working draft.
func (f *UploadForm) Draft() UploadDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.draft
	d.Fields = append([]string(nil), f.draft.Fields...)
	return d
}

// SetFile selects (or clears) the file.
func (f *UploadForm) SetFile(file *FileRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.File = file
	f.touch()
}

// SetTemplateType selects the template type; unknown types are ignored.
func (f *UploadForm) SetTemplateType(t string) {
	if !backend.ValidType(t) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.TemplateType = t
	f.touch()
}

// SetDisplayName sets the display name as typed; trimming happens at
// validation time.
func (f *UploadForm) SetDisplayName(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.DisplayName = name
	f.touch()
}

// AddField adds one or more dynamic fields. Comma-containing input is split
// and each segment added independently; empty and duplicate names are
// silently dropped.
func (f *UploadForm) AddField(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, segment := range splitFieldInput(raw) {
		f.draft.Fields = appendField(f.draft.Fields, segment)
	}
	f.touch()
}

// RemoveField removes the first exact match.
func (f *UploadForm) RemoveField(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Fields = removeField(f.draft.Fields, name)
	f.touch()
}

// touch marks the form as being filled. Caller holds the lock.
func (f *UploadForm) touch() {
	if f.state != StateSubmitting {
		f.state = StateFilling
	}
}

// validate enforces the pre-flight rules in order; the first violation
// wins. Caller holds the lock.
func (f *UploadForm) validate() *ValidationError {
	if f.draft.File == nil {
		return &ValidationError{Rule: RuleFileRequired, Message: "select a file to upload"}
	}
	if !allowedMIMETypes[f.draft.File.MIME] {
		return &ValidationError{
			Rule:    RuleFileType,
			Message: fmt.Sprintf("file type %q is not allowed: use PDF, DOC or DOCX", f.draft.File.MIME),
		}
	}
	if f.draft.File.Size > MaxFileSize {
		return &ValidationError{Rule: RuleFileSize, Message: "file exceeds the 5 MiB size limit"}
	}
	if strings.TrimSpace(f.draft.DisplayName) == "" {
		return &ValidationError{Rule: RuleDisplayName, Message: "display name must not be empty"}
	}
	return nil
}

// Submit validates the draft and uploads it. On success the draft resets
// and the server message is surfaced; on failure the draft is preserved for
// retry. A context cancelled before the response lands suppresses draft
// mutation and notifications but still releases the submit lock.
func (f *UploadForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	f.state = StateValidating
	if verr := f.validate(); verr != nil {
		f.state = StateFilling
		f.mu.Unlock()
		f.notify.Error(verr.Message)
		return verr
	}

	req := backend.UploadRequest{
		FileName:     f.draft.File.Name,
		File:         f.draft.File.Content,
		TemplateType: f.draft.TemplateType,
		DisplayName:  strings.TrimSpace(f.draft.DisplayName),
		Fields:       append([]string(nil), f.draft.Fields...),
	}
	f.state = StateSubmitting
	f.mu.Unlock()

	result, err := f.client.UploadTemplate(ctx, req)

	if ctx.Err() != nil {
		// The request is gone; a late response must not touch the draft
		// and nobody is listening for notifications. The submit lock
		// still has to release or the form could never retry.
		f.mu.Lock()
		f.state = StateFailed
		f.mu.Unlock()
		return ctx.Err()
	}

	f.mu.Lock()
	if err != nil {
		f.state = StateFailed
		f.mu.Unlock()
		f.notify.Error(backend.UserMessage(err))
		return err
	}

	f.draft = UploadDraft{TemplateType: backend.TypeContract}
	f.state = StateSuccess
	f.mu.Unlock()

	f.notify.Success(result.Message)
	return nil
}
