// Package journal persists recent application activity (uploads, edits,
// deletes, backend errors) to a local BoltDB file so operators can inspect
// what happened without scraping process logs. It also plugs into slog as a
// handler that tees warning-and-above records into the journal.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketJournal = []byte("journal")

// DefaultMaxEntries bounds the journal size; older entries are pruned as
// new ones arrive.
const DefaultMaxEntries = 500

// Entry is one recorded activity event.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Action    string    `json:"action"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
}

// Journal is a bounded append-only activity log backed by BoltDB.
type Journal struct {
	db  *bolt.DB
	max int
}

// Open opens (or creates) the journal database at path.
func Open(path string, maxEntries int) (*Journal, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketJournal)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal bucket: %w", err)
	}

	return &Journal{db: db, max: maxEntries}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records an event. Missing ID, timestamp and level are filled in,
// and the oldest entries are pruned when the journal exceeds its cap.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Level == "" {
		e.Level = slog.LevelInfo.String()
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketJournal)

		// Prune oldest entries to keep the journal within its cap.
		excess := bucket.Stats().KeyN + 1 - j.max
		if excess > 0 {
			c := bucket.Cursor()
			for k, _ := c.First(); k != nil && excess > 0; k, _ = c.Next() {
				if err := c.Delete(); err != nil {
					return err
				}
				excess--
			}
		}

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal journal entry: %w", err)
		}
		return bucket.Put(makeIndexKey(e.Timestamp, e.ID), data)
	})
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketJournal)
		c := bucket.Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			entries = append(entries, e)
			if len(entries) >= limit {
				break
			}
		}
		return nil
	})

	return entries, err
}

// Len returns the number of stored entries.
func (j *Journal) Len() (int, error) {
	var n int
	err := j.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketJournal).Stats().KeyN
		return nil
	})
	return n, err
}

// makeIndexKey builds a byte-sortable key. Fixed-width nanoseconds keep
// ordering strictly chronological; RFC3339Nano would sort whole seconds
// after fractional ones within the same second.
func makeIndexKey(t time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%020d:%s", t.UTC().UnixNano(), id))
}
