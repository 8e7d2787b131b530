// Package cache stores embedding vectors on disk keyed by model and a
// BLAKE3 hash of the embedded text.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
)

// Cache is a file-based vector cache. A disabled cache never hits and
// discards writes. Safe for concurrent use; entries are whole files.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry is one cached vector.
type Entry struct {
	Model     string    `json:"model"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
	Vector    []float64 `json:"vector"`
}

// New creates a cache rooted at dir. A ttlHours of 0 means entries never
// expire.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache reads and writes entries.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// HashText computes a BLAKE3 hash of text and returns it as a hex string.
func HashText(text string) string {
	hash := blake3.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// Get returns the vector cached for text under model.
func (c *Cache) Get(model, text string) ([]float64, bool) {
	if !c.enabled {
		return nil, false
	}

	hash := HashText(text)
	path := c.keyPath(model, hash)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if entry.Model != model || entry.Hash != hash || len(entry.Vector) == 0 {
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.Timestamp) > c.ttl {
		os.Remove(path)
		return nil, false
	}

	return entry.Vector, true
}

// Put stores vector for text under model.
func (c *Cache) Put(model, text string, vector []float64) error {
	if !c.enabled {
		return nil
	}

	hash := HashText(text)
	data, err := json.Marshal(Entry{
		Model:     model,
		Hash:      hash,
		Timestamp: time.Now(),
		Vector:    vector,
	})
	if err != nil {
		return err
	}

	// write-then-rename so concurrent readers never see a partial entry
	path := c.keyPath(model, hash)
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath names the entry file after the hash of model and text hash.
func (c *Cache) keyPath(model, textHash string) string {
	hash := blake3.Sum256([]byte(model + "\x00" + textHash))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}

// Stats returns cache statistics.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
}

// GetStats walks the cache directory.
func (c *Cache) GetStats() (*Stats, error) {
	if !c.enabled {
		return &Stats{}, nil
	}

	stats := &Stats{}
	var oldest, newest time.Time

	err := filepath.WalkDir(c.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		stats.Entries++
		stats.TotalSize += info.Size()

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}
	return stats, nil
}
