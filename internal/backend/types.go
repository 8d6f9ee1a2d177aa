package backend

import (
	"io"
	"time"
)

// Template types accepted by the backend.
const (
	TypeContract      = "contract"
	TypeSpecification = "specification"
	TypeAddendum      = "addendum"
)

// TemplateTypes lists all valid template types in display order.
var TemplateTypes = []string{TypeContract, TypeSpecification, TypeAddendum}

// ValidType reports whether t is a known template type.
func ValidType(t string) bool {
	for _, known := range TemplateTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Template is the UI-side representation of a stored document template.
// ID, CreatedAt, UpdatedAt and FilePath are assigned by the backend and
// read-only from this side.
type Template struct {
	ID           int64
	TemplateType string
	DisplayName  string
	Fields       []string
	FilePath     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// templateRecord is the wire shape returned by the backend (snake_case keys).
// Timestamps stay strings here; the mapper parses them tolerantly.
type templateRecord struct {
	ID           int64    `json:"id"`
	TemplateType string   `json:"template_type"`
	DisplayName  string   `json:"display_name"`
	Fields       []string `json:"fields"`
	FilePath     string   `json:"file_path"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// UploadRequest carries everything the upload endpoint needs.
type UploadRequest struct {
	FileName     string
	File         io.Reader
	TemplateType string
	DisplayName  string
	Fields       []string
}

// UploadResult is the upload endpoint response.
type UploadResult struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// TemplateUpdate is a partial update: nil means "leave unchanged"
// server-side, so the encoded form omits the key entirely.
type TemplateUpdate struct {
	DisplayName *string
	Fields      *[]string
}

// HealthStatus is the backend /admin/health response.
type HealthStatus struct {
	Status      string  `json:"status"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	DiskUsage   float64 `json:"disk_usage"`
	Uptime      string  `json:"uptime"`
}

// DBStatus is the backend /admin/db/status response.
type DBStatus struct {
	Database          string `json:"database"`
	ActiveConnections int    `json:"active_connections"`
	Error             string `json:"error,omitempty"`
}

type logsResponse struct {
	Logs  []string `json:"logs"`
	Error string   `json:"error,omitempty"`
}

type updateResponse struct {
	Message string `json:"message"`
}
