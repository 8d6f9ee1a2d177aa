package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"time"
)

// Timestamp layouts the backend has been observed to emit. The first is what
// a well-behaved deployment sends; the rest cover older installations.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// toTemplate converts a wire record into the UI representation. Missing or
// unparseable values map to zero values, never to an error: the mapper is a
// pure structural transform and callers treat absent fields as unknown.
func toTemplate(rec templateRecord) Template {
	return Template{
		ID:           rec.ID,
		TemplateType: rec.TemplateType,
		DisplayName:  rec.DisplayName,
		Fields:       rec.Fields,
		FilePath:     rec.FilePath,
		CreatedAt:    parseTimestamp(rec.CreatedAt),
		UpdatedAt:    parseTimestamp(rec.UpdatedAt),
	}
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// encodeFields serializes a field list the way the backend expects it: a
// JSON-encoded array inside a single form value, never a native array field.
func encodeFields(fields []string) (string, error) {
	if fields == nil {
		fields = []string{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(data), nil
}

// encodeUpdateForm builds the multipart body for a partial template update.
// Keys whose corresponding update member is nil are omitted entirely, which
// the backend reads as "leave unchanged".
func encodeUpdateForm(id int64, upd TemplateUpdate) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField("template_id", fmt.Sprintf("%d", id)); err != nil {
		return nil, "", fmt.Errorf("write template_id: %w", err)
	}
	if upd.DisplayName != nil {
		if err := w.WriteField("display_name", *upd.DisplayName); err != nil {
			return nil, "", fmt.Errorf("write display_name: %w", err)
		}
	}
	if upd.Fields != nil {
		encoded, err := encodeFields(*upd.Fields)
		if err != nil {
			return nil, "", err
		}
		if err := w.WriteField("fields", encoded); err != nil {
			return nil, "", fmt.Errorf("write fields: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

// decodeFieldNames accepts the two shapes the extract endpoint has shipped
// with: a bare JSON array and an object wrapping it under "fields".
func decodeFieldNames(data []byte) ([]string, error) {
	var bare []string
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}
	var wrapped struct {
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, &ParseError{Err: err}
	}
	return wrapped.Fields, nil
}
