package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultTimeout is the per-request timeout when none is configured.
const DefaultTimeout = 10 * time.Second

// Client is the contract service API client. Every operation returns the
// parsed response body on a 2xx status and fails with a RequestError,
// NetworkError or ParseError otherwise. Failures are reported to the
// configured error observer before being returned to the caller; user-facing
// presentation stays with the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observer   func(error)
	record     func(op string, err error, elapsed time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithErrorObserver installs the centralized failure observer. Exactly one
// observer exists per client; the last one installed wins.
func WithErrorObserver(fn func(error)) Option {
	return func(c *Client) { c.observer = fn }
}

// WithRequestRecorder installs a hook called after every operation, used for
// metrics. The hook must not block.
func WithRequestRecorder(fn func(op string, err error, elapsed time.Duration)) Option {
	return func(c *Client) { c.record = fn }
}

// WithRetries wraps the transport with retry logic for transient failures.
func WithRetries(max int, logger *slog.Logger) Option {
	return func(c *Client) {
		if max <= 0 {
			return
		}
		rc := retryablehttp.NewClient()
		rc.HTTPClient = &http.Client{Timeout: c.httpClient.Timeout}
		rc.RetryMax = max
		rc.RetryWaitMin = 500 * time.Millisecond
		rc.RetryWaitMax = 5 * time.Second
		rc.Logger = &retryLogger{logger: logger}
		c.httpClient = rc.StandardClient()
	}
}

// NewClient creates a client for the contract service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// retryLogger adapts retryablehttp's leveled logger to slog. Info and debug
// chatter is dropped; only retry-worthy conditions surface.
type retryLogger struct {
	logger *slog.Logger
}

func (l *retryLogger) Error(msg string, kv ...interface{}) {
	if l.logger != nil {
		l.logger.Error("backend retry: "+msg, kv...)
	}
}

func (l *retryLogger) Warn(msg string, kv ...interface{}) {
	if l.logger != nil {
		l.logger.Warn("backend retry: "+msg, kv...)
	}
}

func (l *retryLogger) Info(msg string, kv ...interface{})  {}
func (l *retryLogger) Debug(msg string, kv ...interface{}) {}

// fail reports err to the observer and returns it.
func (c *Client) fail(err error) error {
	if c.observer != nil {
		c.observer(err)
	}
	return err
}

// do performs a request and decodes the response body into result when
// result is non-nil. A nil body on 2xx (204 etc.) is fine.
func (c *Client) do(req *http.Request, result any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(&NetworkError{Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(&RequestError{
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		})
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return c.fail(&ParseError{Err: err})
	}
	return nil
}

// readErrorMessage pulls the server-provided message out of an error body.
// The backend uses "detail"; older variants used "error" or "message".
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var body struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	switch {
	case body.Detail != "":
		return body.Detail
	case body.Error != "":
		return body.Error
	default:
		return body.Message
	}
}

// Get performs a GET request against path and decodes the JSON body into
// result.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return c.fail(fmt.Errorf("create request: %w", err))
	}
	return c.do(req, result)
}

// PostJSON performs a POST with a JSON body.
func (c *Client) PostJSON(ctx context.Context, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return c.fail(fmt.Errorf("marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return c.fail(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

// PostForm performs a POST with a prebuilt multipart body.
func (c *Client) PostForm(ctx context.Context, path string, body io.Reader, contentType string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return c.fail(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, result)
}

// Delete performs a DELETE request against path.
func (c *Client) Delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return c.fail(fmt.Errorf("create request: %w", err))
	}
	return c.do(req, nil)
}

func (c *Client) finish(op string, start time.Time, err error) {
	if c.record != nil {
		c.record(op, err, time.Since(start))
	}
}

// ListTemplates fetches all templates and maps them into the UI shape,
// preserving backend return order. Sorting is the collection store's job.
func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	start := time.Now()
	var records []templateRecord
	err := c.Get(ctx, "/templates", &records)
	c.finish("list", start, err)
	if err != nil {
		return nil, err
	}
	templates := make([]Template, 0, len(records))
	for _, rec := range records {
		templates = append(templates, toTemplate(rec))
	}
	return templates, nil
}

// UploadTemplate uploads a new template file together with its metadata. The
// field list travels as a JSON-encoded string inside the multipart form.
func (c *Client) UploadTemplate(ctx context.Context, up UploadRequest) (*UploadResult, error) {
	start := time.Now()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("file", up.FileName)
	if err != nil {
		return nil, c.fail(fmt.Errorf("create file part: %w", err))
	}
	if _, err := io.Copy(part, up.File); err != nil {
		return nil, c.fail(fmt.Errorf("copy file: %w", err))
	}
	if err := w.WriteField("template_type", up.TemplateType); err != nil {
		return nil, c.fail(fmt.Errorf("write template_type: %w", err))
	}
	if err := w.WriteField("display_name", up.DisplayName); err != nil {
		return nil, c.fail(fmt.Errorf("write display_name: %w", err))
	}
	encoded, err := encodeFields(up.Fields)
	if err != nil {
		return nil, c.fail(err)
	}
	if err := w.WriteField("fields", encoded); err != nil {
		return nil, c.fail(fmt.Errorf("write fields: %w", err))
	}
	if err := w.Close(); err != nil {
		return nil, c.fail(err)
	}

	var result UploadResult
	err = c.PostForm(ctx, "/templates/upload", body, w.FormDataContentType(), &result)
	c.finish("upload", start, err)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateTemplate applies a partial update and returns the server message.
func (c *Client) UpdateTemplate(ctx context.Context, id int64, upd TemplateUpdate) (string, error) {
	start := time.Now()
	body, contentType, err := encodeUpdateForm(id, upd)
	if err != nil {
		return "", c.fail(err)
	}
	var result updateResponse
	err = c.PostForm(ctx, "/templates/update", body, contentType, &result)
	c.finish("update", start, err)
	if err != nil {
		return "", err
	}
	return result.Message, nil
}

// DeleteTemplate removes a template by id.
func (c *Client) DeleteTemplate(ctx context.Context, id int64) error {
	start := time.Now()
	err := c.Delete(ctx, fmt.Sprintf("/templates/%d", id))
	c.finish("delete", start, err)
	return err
}

// ExtractFields sends a file to the extraction endpoint and returns the
// placeholder names it found.
func (c *Client) ExtractFields(ctx context.Context, fileName string, file io.Reader) ([]string, error) {
	start := time.Now()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, c.fail(fmt.Errorf("create file part: %w", err))
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, c.fail(fmt.Errorf("copy file: %w", err))
	}
	if err := w.Close(); err != nil {
		return nil, c.fail(err)
	}

	var raw json.RawMessage
	err = c.PostForm(ctx, "/templates/extract", body, w.FormDataContentType(), &raw)
	c.finish("extract", start, err)
	if err != nil {
		return nil, err
	}
	fields, err := decodeFieldNames(raw)
	if err != nil {
		return nil, c.fail(err)
	}
	return fields, nil
}

// Health fetches the backend health summary.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.Get(ctx, "/admin/health", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// DatabaseStatus fetches the backend database status.
func (c *Client) DatabaseStatus(ctx context.Context) (*DBStatus, error) {
	var status DBStatus
	if err := c.Get(ctx, "/admin/db/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ServerConfig fetches the backend's reported configuration surface.
func (c *Client) ServerConfig(ctx context.Context) (map[string]string, error) {
	var cfg map[string]string
	if err := c.Get(ctx, "/admin/config", &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RecentLogs fetches the backend's last log lines.
func (c *Client) RecentLogs(ctx context.Context) ([]string, error) {
	var resp logsResponse
	if err := c.Get(ctx, "/admin/logs", &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}
