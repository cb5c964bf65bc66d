// Package cache implements a content-addressed response cache on disk.
//
// Entries are keyed by a fingerprint of the request (method, URL and body)
// and age out by file modification time. The cache never invalidates on its
// own: a stale or unreadable entry is simply a miss, and the caller decides
// whether to refetch.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const fileExt = ".cache"

// Store is a directory of cached response bodies.
type Store struct {
	dir string
}

// New creates the cache directory if needed and returns a Store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Fingerprint derives the cache key for a request. Two requests share an
// entry only when method, URL and body all match byte for byte; callers
// canonicalize the body (e.g. sorted JSON keys) before fingerprinting.
func Fingerprint(method, url string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(url))
	h.Write([]byte{'\n'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached body for fingerprint fp if an entry exists and its
// modification time is within ttl of now. Any other state, including a
// partially written or unreadable file, is reported as a miss.
func (s *Store) Get(fp string, ttl time.Duration) ([]byte, bool) {
	path := s.path(fp)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > ttl {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores body under fingerprint fp, replacing any previous entry. The
// write goes through a temp file and a rename so readers never observe a
// half-written entry.
func (s *Store) Put(fp string, body []byte) error {
	tmp, err := os.CreateTemp(s.dir, fp+".tmp*")
	if err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(fp)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// Remove deletes the entry for fp. Removing a missing entry is not an error.
func (s *Store) Remove(fp string) error {
	if err := os.Remove(s.path(fp)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache entry: %w", err)
	}
	return nil
}

func (s *Store) path(fp string) string {
	return filepath.Join(s.dir, fp+fileExt)
}
