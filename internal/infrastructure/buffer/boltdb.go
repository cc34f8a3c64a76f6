package buffer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store persists deferred writes in a single bbolt bucket. Keys sort by
// priority, then enqueue time, so a cursor walk yields replay order.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open creates the file (and its directory) when missing.
func Open(path, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = "pending_writes"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	name := []byte(bucket)
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(name)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, bucket: name}, nil
}

func (s *Store) open() error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return nil
}

// Enqueue writes item under a fresh ordering key.
func (s *Store) Enqueue(item Item) error {
	if err := s.open(); err != nil {
		return err
	}
	item.prepare()
	item.key = itemKey(item)

	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(item.key, payload)
	})
}

// Peek returns up to limit items in replay order without removing them.
func (s *Store) Peek(limit int) ([]Item, error) {
	if err := s.open(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	items := make([]Item, 0, limit)
	err := s.db.View(func(tx *bolt.Tx) error {
		return s.walk(tx, func(k []byte, item Item) (bool, error) {
			item.key = append([]byte(nil), k...)
			items = append(items, item)
			return len(items) < limit, nil
		})
	})
	return items, err
}

// Remove deletes item, falling back to an id scan for items built by hand.
func (s *Store) Remove(item Item) error {
	if err := s.open(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if len(item.key) > 0 {
			return b.Delete(item.key)
		}
		if item.ID == "" {
			return nil
		}
		var match []byte
		err := s.walk(tx, func(k []byte, stored Item) (bool, error) {
			if stored.ID == item.ID {
				match = append([]byte(nil), k...)
				return false, nil
			}
			return true, nil
		})
		if err != nil || match == nil {
			return err
		}
		return b.Delete(match)
	})
}

// Requeue moves item to the back of its priority band.
func (s *Store) Requeue(item Item) error {
	if err := s.Remove(item); err != nil {
		return err
	}
	item.key = nil
	item.Timestamp = time.Now()
	return s.Enqueue(item)
}

// Size counts buffered items.
func (s *Store) Size() (int, error) {
	if err := s.open(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return n, err
}

// CountByEntity groups buffered items by entity.
func (s *Store) CountByEntity() (map[string]int, error) {
	if err := s.open(); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	err := s.db.View(func(tx *bolt.Tx) error {
		return s.walk(tx, func(_ []byte, item Item) (bool, error) {
			counts[item.Entity]++
			return true, nil
		})
	})
	return counts, err
}

// Cleanup drops items enqueued before cutoff and reports how many went.
func (s *Store) Cleanup(cutoff time.Time) (int, error) {
	if err := s.open(); err != nil {
		return 0, err
	}
	var removed int
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var item Item
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			if item.Timestamp.Before(cutoff) {
				if err := c.Delete(); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	return removed, err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) walk(tx *bolt.Tx, fn func(k []byte, item Item) (bool, error)) error {
	c := tx.Bucket(s.bucket).Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var item Item
		if err := json.Unmarshal(v, &item); err != nil {
			continue
		}
		more, err := fn(k, item)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

func itemKey(item Item) []byte {
	return []byte(fmt.Sprintf("%d_%020d_%s", item.Priority, item.Timestamp.UnixNano(), item.ID))
}
