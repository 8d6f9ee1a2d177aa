// Package flash carries one-shot notifications across the redirect after a
// form post, using short-lived cookies.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const cookieName = "templar_flash"

// Message is a single notification shown once on the next page load.
type Message struct {
	ID    string `json:"id"`
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Levels for Message.Level.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Set queues messages for the next request. Existing queued messages are
// replaced, so callers should collect before setting.
func Set(w http.ResponseWriter, msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    base64.URLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns queued messages and clears the cookie. A malformed cookie is
// discarded silently.
func Pop(w http.ResponseWriter, r *http.Request) []Message {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	data, err := base64.URLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil
	}
	return msgs
}

// Recorder collects notifications so they can be flushed into the flash
// cookie before the redirect. It satisfies the form controllers' notifier
// contract and is safe for concurrent use, since the form controllers
// outlive any single request.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

func (r *Recorder) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Message{ID: uuid.New().String(), Level: level, Text: msg})
}

// Messages returns a copy of what was recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Drain returns the recorded messages and clears the recorder.
func (r *Recorder) Drain() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.msgs
	r.msgs = nil
	return msgs
}

// Flush drains the recorded messages into the flash cookie.
func (r *Recorder) Flush(w http.ResponseWriter) {
	Set(w, r.Drain())
}
