package scrape

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	ErrCacheClosed = errors.New("link cache is closed")

	linksBucket  = []byte("links")
	pathsKey     = []byte("paths")
	fetchedAtKey = []byte("fetched_at")
)

// LinkCache persists the extracted tool-link set between discovery runs so
// a fresh run can skip the index fetch while the cached set is inside its
// TTL. Never a source of truth for catalog contents.
type LinkCache struct {
	mu     sync.Mutex
	db     *bolt.DB
	closed bool
}

func OpenLinkCache(path string) (*LinkCache, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("link cache path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}
	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open link cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(linksBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init link cache: %w", err)
	}
	return &LinkCache{db: db}, nil
}

func (c *LinkCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// Get returns the cached link set when it is younger than ttl.
func (c *LinkCache) Get(ttl time.Duration) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false, ErrCacheClosed
	}

	var paths []string
	var fetchedAt time.Time
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(linksBucket)
		if bucket == nil {
			return nil
		}
		if raw := bucket.Get(fetchedAtKey); raw != nil {
			if t, err := time.Parse(time.RFC3339, string(raw)); err == nil {
				fetchedAt = t
			}
		}
		if raw := bucket.Get(pathsKey); raw != nil {
			return json.Unmarshal(raw, &paths)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("read link cache: %w", err)
	}
	if len(paths) == 0 || fetchedAt.IsZero() || time.Since(fetchedAt) > ttl {
		return nil, false, nil
	}
	return paths, true, nil
}

// Put replaces the cached link set and stamps it with the current time.
func (c *LinkCache) Put(paths []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}

	raw, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("encode link cache: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(linksBucket)
		if err := bucket.Put(pathsKey, raw); err != nil {
			return err
		}
		return bucket.Put(fetchedAtKey, []byte(time.Now().Format(time.RFC3339)))
	})
}
