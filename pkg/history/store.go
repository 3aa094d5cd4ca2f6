// Package history records downloaded files in a bbolt database so later
// runs and the history command can list them.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/huanfeng/apkcrawler/pkg/models"
	bolt "go.etcd.io/bbolt"
)

var downloadsBucket = []byte("downloads")

// ErrNotFound is returned by Get for unknown file names.
var ErrNotFound = errors.New("no history entry")

// Store is the download history database.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(downloadsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// DefaultPath is the history file under the user's data directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "apkcrawler", "history.db")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores entry under its file name, replacing an older entry.
func (s *Store) Record(entry models.DownloadEntry) error {
	if entry.FileName == "" {
		return errors.New("history entry without file name")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(downloadsBucket).Put([]byte(entry.FileName), data)
	})
}

// Get returns the entry for a file name.
func (s *Store) Get(fileName string) (*models.DownloadEntry, error) {
	var entry models.DownloadEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(downloadsBucket).Get([]byte(fileName))
		if data == nil {
			return fmt.Errorf("%s: %w", fileName, ErrNotFound)
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns entries, newest first. A non-empty packageID keeps only
// that package; limit <= 0 means all.
func (s *Store) List(packageID string, limit int) ([]models.DownloadEntry, error) {
	var entries []models.DownloadEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(downloadsBucket).ForEach(func(k, v []byte) error {
			var entry models.DownloadEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			if packageID == "" || strings.EqualFold(entry.PackageID, packageID) {
				entries = append(entries, entry)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DownloadedAt.After(entries[j].DownloadedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Delete removes the entry for a file name.
func (s *Store) Delete(fileName string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(downloadsBucket).Delete([]byte(fileName))
	})
}

// Prune removes entries downloaded before cutoff and returns how many.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(downloadsBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var entry models.DownloadEntry
			if err := json.Unmarshal(v, &entry); err != nil || entry.DownloadedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Count returns the number of entries.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(downloadsBucket).Stats().KeyN
		return nil
	})
	return n, err
}
