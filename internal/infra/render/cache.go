package render

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrCacheMiss is returned when no fresh artifact exists for a token.
var ErrCacheMiss = errors.New("no cached artifact")

// Cache stores rendered PDFs on disk, one <token>.pdf file per token.
// Freshness is decided by file modification time against the TTL.
type Cache struct {
	dir string
	ttl time.Duration
}

func NewCache(dir string, ttl time.Duration) *Cache {
	return &Cache{dir: dir, ttl: ttl}
}

func (c *Cache) path(token string) string {
	return filepath.Join(c.dir, token+".pdf")
}

// Get returns the cached artifact or ErrCacheMiss. A stale entry is
// deleted as a side effect of the miss.
func (c *Cache) Get(token string) ([]byte, error) {
	path := c.path(token)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	if time.Since(info.ModTime()) > c.ttl {
		if err := c.Remove(token); err != nil {
			slog.Error("error deleting stale artifact", "token", token, "err", err)
		}
		return nil, ErrCacheMiss
	}

	return os.ReadFile(path)
}

// Put writes the artifact for a token. Callers must only cache artifacts
// of locked submissions, their content cannot change anymore.
func (c *Cache) Put(token string, pdf []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	slog.Info("caching rendered artifact", "token", token, "bytes", len(pdf))
	return os.WriteFile(c.path(token), pdf, 0o644)
}

// Remove deletes an entry. It tolerates "already gone": the sweep and a
// lazy stale-miss may race to delete the same file.
func (c *Cache) Remove(token string) error {
	err := os.Remove(c.path(token))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SweepExpired scans the cache directory and deletes every entry older
// than the TTL. Returns the number of deleted entries.
func (c *Cache) SweepExpired() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	deleted := 0
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= c.ttl {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			slog.Error("error sweeping artifact", "file", entry.Name(), "err", err)
			continue
		}
		deleted++
	}

	return deleted, nil
}
