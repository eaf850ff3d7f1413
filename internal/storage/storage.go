// Package storage persists delivery statistics of webhooks.
package storage

import (
	"bytes"
	"encoding/gob"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	bucketWebhooks = "webhooks"
)

var ErrNotFound = errors.New("not found")

// WebhookStats represents the delivery statistics for a webhook.
type WebhookStats struct {
	Name       string
	ErrorCount int
	ErrorLast  string
	SentCount  int
	SentLast   time.Time
	// StatusLast is the HTTP status code of the last failed delivery.
	StatusLast int
}

type Storage struct {
	db *bolt.DB
}

func New(db *bolt.DB) *Storage {
	st := &Storage{
		db: db,
	}
	return st
}

// Init creates all required buckets.
func (st *Storage) Init() error {
	err := st.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketWebhooks))
		return err
	})
	return err
}

// UpdateWebhookStats updates the stats for a webhook in a transaction.
// Stats are created when they do not yet exist.
func (st *Storage) UpdateWebhookStats(name string, f func(ws *WebhookStats) error) error {
	err := st.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketWebhooks))
		ws := &WebhookStats{Name: name}
		if v := b.Get([]byte(name)); v != nil {
			var err error
			ws, err = webhookStatsFromDB(v)
			if err != nil {
				return err
			}
		}
		if err := f(ws); err != nil {
			return err
		}
		v, err := dbFromWebhookStats(ws)
		if err != nil {
			return err
		}
		return b.Put([]byte(name), v)
	})
	return err
}

// GetWebhookStats returns the stats for a webhook or [ErrNotFound].
func (st *Storage) GetWebhookStats(name string) (*WebhookStats, error) {
	var ws *WebhookStats
	err := st.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketWebhooks))
		v := b.Get([]byte(name))
		if v == nil {
			return ErrNotFound
		}
		var err error
		ws, err = webhookStatsFromDB(v)
		return err
	})
	return ws, err
}

// ListWebhookStats returns the stats of all webhooks ordered by name.
func (st *Storage) ListWebhookStats() ([]*WebhookStats, error) {
	s := make([]*WebhookStats, 0)
	err := st.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketWebhooks))
		return b.ForEach(func(k, v []byte) error {
			ws, err := webhookStatsFromDB(v)
			if err != nil {
				return err
			}
			s = append(s, ws)
			return nil
		})
	})
	return s, err
}

func (st *Storage) ClearWebhookStats() error {
	err := st.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketWebhooks)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketWebhooks))
		return err
	})
	return err
}

func webhookStatsFromDB(v []byte) (*WebhookStats, error) {
	buf := bytes.NewBuffer(v)
	dec := gob.NewDecoder(buf)
	var o WebhookStats
	if err := dec.Decode(&o); err != nil {
		return nil, err
	}
	return &o, nil
}

func dbFromWebhookStats(ws *WebhookStats) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(*ws); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
