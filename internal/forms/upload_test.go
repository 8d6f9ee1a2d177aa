package forms

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/templar-app/templar/internal/backend"
)

type fakeUploader struct {
	mu    sync.Mutex
	calls int
	last  backend.UploadRequest
	err   error
	msg   string
}

func (f *fakeUploader) UploadTemplate(ctx context.Context, up backend.UploadRequest) (*backend.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = up
	if f.err != nil {
		return nil, f.err
	}
	return &backend.UploadResult{ID: 1, Message: f.msg}, nil
}

func (f *fakeUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *fakeNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *fakeNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func pdfFile(size int64) *FileRef {
	return &FileRef{Name: "contract.pdf", Size: size, MIME: MIMEPDF, Content: bytes.NewReader([]byte("%PDF-1.4"))}
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	uploader := &fakeUploader{}
	notify := &fakeNotifier{}
	form := NewUploadForm(uploader, notify)

	form.SetFile(pdfFile(6 << 20))
	form.SetDisplayName("Big contract")

	err := form.Submit(context.Background())
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var verr *ValidationError
	errors.As(err, &verr)
	if verr.Rule != RuleFileSize {
		t.Errorf("rule = %q, want %q", verr.Rule, RuleFileSize)
	}
	if uploader.callCount() != 0 {
		t.Errorf("backend called %d times for invalid draft, want 0", uploader.callCount())
	}
	if got := form.State(); got != StateFilling {
		t.Errorf("state = %v, want %v", got, StateFilling)
	}
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	uploader := &fakeUploader{}
	notify := &fakeNotifier{}
	form := NewUploadForm(uploader, notify)

	form.SetFile(&FileRef{Name: "notes.txt", Size: 10, MIME: "text/plain", Content: strings.NewReader("hi")})
	form.SetDisplayName("Notes")

	err := form.Submit(context.Background())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Rule != RuleFileType {
		t.Errorf("rule = %q, want %q", verr.Rule, RuleFileType)
	}
	if uploader.callCount() != 0 {
		t.Errorf("backend called for disallowed file type")
	}
}

func TestUploadValidationOrder(t *testing.T) {
	// An oversize .txt with a blank name must report the type rule first,
	// then size once the type is fixed, then the name.
	uploader := &fakeUploader{}
	form := NewUploadForm(uploader, &fakeNotifier{})

	err := form.Submit(context.Background())
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Rule != RuleFileRequired {
		t.Fatalf("no file: got %v, want rule %q", err, RuleFileRequired)
	}

	form.SetFile(&FileRef{Name: "big.txt", Size: 6 << 20, MIME: "text/plain"})
	err = form.Submit(context.Background())
	if !errors.As(err, &verr) || verr.Rule != RuleFileType {
		t.Fatalf("bad type: got %v, want rule %q", err, RuleFileType)
	}

	form.SetFile(pdfFile(6 << 20))
	err = form.Submit(context.Background())
	if !errors.As(err, &verr) || verr.Rule != RuleFileSize {
		t.Fatalf("oversize: got %v, want rule %q", err, RuleFileSize)
	}

	form.SetFile(pdfFile(100))
	form.SetDisplayName("   ")
	err = form.Submit(context.Background())
	if !errors.As(err, &verr) || verr.Rule != RuleDisplayName {
		t.Fatalf("blank name: got %v, want rule %q", err, RuleDisplayName)
	}

	if uploader.callCount() != 0 {
		t.Errorf("backend called during validation failures")
	}
}

func TestUploadSuccessResetsDraft(t *testing.T) {
	uploader := &fakeUploader{msg: "Template uploaded successfully"}
	notify := &fakeNotifier{}
	form := NewUploadForm(uploader, notify)

	form.SetFile(pdfFile(100))
	form.SetTemplateType(backend.TypeSpecification)
	form.SetDisplayName("  Service Agreement  ")
	form.AddField("client_name")
	form.AddField("date")

	if err := form.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if uploader.last.DisplayName != "Service Agreement" {
		t.Errorf("display name sent = %q, want trimmed", uploader.last.DisplayName)
	}
	if diff := cmp.Diff([]string{"client_name", "date"}, uploader.last.Fields); diff != "" {
		t.Errorf("fields sent mismatch (-want +got):\n%s", diff)
	}
	if got := form.State(); got != StateSuccess {
		t.Errorf("state = %v, want %v", got, StateSuccess)
	}

	d := form.Draft()
	if d.File != nil || d.DisplayName != "" || len(d.Fields) != 0 {
		t.Errorf("draft not reset after success: %+v", d)
	}
	if d.TemplateType != backend.TypeContract {
		t.Errorf("template type = %q after reset, want default", d.TemplateType)
	}
	if len(notify.successes) != 1 || notify.successes[0] != "Template uploaded successfully" {
		t.Errorf("success notifications = %v", notify.successes)
	}
}

func TestUploadFailurePreservesDraft(t *testing.T) {
	uploader := &fakeUploader{err: &backend.RequestError{Status: 500, Message: "boom"}}
	notify := &fakeNotifier{}
	form := NewUploadForm(uploader, notify)

	form.SetFile(pdfFile(100))
	form.SetDisplayName("Keep me")
	form.AddField("amount")

	if err := form.Submit(context.Background()); err == nil {
		t.Fatal("expected submit failure")
	}
	if got := form.State(); got != StateFailed {
		t.Errorf("state = %v, want %v", got, StateFailed)
	}
	d := form.Draft()
	if d.File == nil || d.DisplayName != "Keep me" {
		t.Errorf("draft lost after failure: %+v", d)
	}
	if diff := cmp.Diff([]string{"amount"}, d.Fields); diff != "" {
		t.Errorf("draft fields mismatch (-want +got):\n%s", diff)
	}
	if len(notify.errors) != 1 {
		t.Errorf("error notifications = %v, want exactly one", notify.errors)
	}
}

func TestUploadCancelledContextLeavesDraftAlone(t *testing.T) {
	uploader := &fakeUploader{msg: "ok"}
	notify := &fakeNotifier{}
	form := NewUploadForm(uploader, notify)

	form.SetFile(pdfFile(100))
	form.SetDisplayName("Torn down")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := form.Submit(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(notify.successes) != 0 || len(notify.errors) != 0 {
		t.Errorf("notifications fired after teardown: %v %v", notify.successes, notify.errors)
	}
	if d := form.Draft(); d.DisplayName != "Torn down" {
		t.Errorf("draft mutated after teardown: %+v", d)
	}
}

// A cancelled submit must release the in-flight lock, otherwise the
// long-lived form can never upload again.
func TestUploadRetriesAfterCancelledSubmit(t *testing.T) {
	uploader := &fakeUploader{msg: "stored"}
	notify := &fakeNotifier{}
	form := NewUploadForm(uploader, notify)

	form.SetFile(pdfFile(100))
	form.SetDisplayName("Interrupted")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := form.Submit(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("first submit err = %v, want context.Canceled", err)
	}
	if form.State() == StateSubmitting {
		t.Fatalf("state stuck at %v after cancelled submit", form.State())
	}

	form.SetFile(pdfFile(100))
	if err := form.Submit(context.Background()); err != nil {
		t.Fatalf("second submit err = %v, want nil", err)
	}
	if uploader.callCount() != 2 {
		t.Errorf("backend calls = %d, want 2", uploader.callCount())
	}
	if form.State() != StateSuccess {
		t.Errorf("state = %v, want %v", form.State(), StateSuccess)
	}
	if len(notify.successes) != 1 {
		t.Errorf("success notifications = %v, want one", notify.successes)
	}
}

func TestAddFieldRules(t *testing.T) {
	form := NewUploadForm(&fakeUploader{}, &fakeNotifier{})

	form.AddField("  client_name  ")
	form.AddField("client_name") // duplicate
	form.AddField("")
	form.AddField("   ")
	form.AddField("date, amount ,client_name, ")

	want := []string{"client_name", "date", "amount"}
	if diff := cmp.Diff(want, form.Draft().Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveFieldFirstMatchOnly(t *testing.T) {
	form := NewUploadForm(&fakeUploader{}, &fakeNotifier{})
	form.AddField("a")
	form.AddField("b")
	form.AddField("c")

	form.RemoveField("b")
	form.RemoveField("missing")

	if diff := cmp.Diff([]string{"a", "c"}, form.Draft().Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"contract.pdf", MIMEPDF},
		{"CONTRACT.PDF", MIMEPDF},
		{"old.doc", MIMEDoc},
		{"modern.docx", MIMEDocx},
	}
	for _, tt := range tests {
		if got := DetectMIME(tt.name, nil); got != tt.want {
			t.Errorf("DetectMIME(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
	if got := DetectMIME("unknown.bin", []byte("%PDF-1.4\n")); got != MIMEPDF {
		t.Errorf("sniffed PDF = %q, want %q", got, MIMEPDF)
	}
}
