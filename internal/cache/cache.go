// Package cache stores analysis results on disk, keyed by a BLAKE3
// fingerprint of the analyzed content and settings.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

const entryExt = ".entry"

// Cache is a directory of result entries. A nil *Cache is valid and stores
// nothing.
type Cache struct {
	dir string
	ttl time.Duration
}

// record is the on-disk form of one entry.
type record struct {
	Fingerprint string          `json:"fingerprint"`
	Stored      time.Time       `json:"stored"`
	Payload     json.RawMessage `json:"payload"`
}

// Open creates dir if needed. Entries older than ttl are ignored and
// removed on lookup; a zero ttl keeps them forever.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

// Enabled reports whether c stores entries.
func (c *Cache) Enabled() bool {
	return c != nil
}

// Dir is the cache directory.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Fingerprint identifies one analysis input: the settings string and every
// file path with its content hash, in order. Reordering files, editing any
// file or changing a setting yields a different fingerprint.
func Fingerprint(settings string, files []string, read func(path string) ([]byte, error)) (string, error) {
	h := blake3.New()
	fmt.Fprintf(h, "settings\x00%s\x00", settings)
	for _, f := range files {
		content, err := read(f)
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", f, err)
		}
		sum := blake3.Sum256(content)
		fmt.Fprintf(h, "file\x00%s\x00%x\x00", f, sum)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Lookup returns the payload stored under key when its fingerprint matches.
// Unreadable, corrupt and expired entries are misses.
func (c *Cache) Lookup(key, fingerprint string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	path := c.path(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	if c.ttl > 0 && time.Since(rec.Stored) > c.ttl {
		_ = os.Remove(path)
		return nil, false
	}
	if rec.Fingerprint != fingerprint {
		return nil, false
	}
	return rec.Payload, true
}

// Store writes payload, which must be JSON, under key. The entry replaces
// any previous one atomically.
func (c *Cache) Store(key, fingerprint string, payload []byte) error {
	if c == nil {
		return nil
	}
	if !json.Valid(payload) {
		return errors.New("cache payload is not JSON")
	}
	raw, err := json.Marshal(record{Fingerprint: fingerprint, Stored: time.Now(), Payload: payload})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(raw)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path(key))
}

// Drop removes the entry for key, if any.
func (c *Cache) Drop(key string) error {
	if c == nil {
		return nil
	}
	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Purge removes every entry and returns how many were removed.
func (c *Cache) Purge() (int, error) {
	var removed int
	err := c.each(func(path string, _ fs.FileInfo) error {
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

// Stats summarizes the entries on disk.
type Stats struct {
	Dir     string    `json:"dir"`
	Entries int       `json:"entries"`
	Bytes   int64     `json:"bytes"`
	Oldest  time.Time `json:"oldest,omitzero"`
	Newest  time.Time `json:"newest,omitzero"`
}

// Stats walks the cache directory.
func (c *Cache) Stats() (Stats, error) {
	st := Stats{Dir: c.Dir()}
	err := c.each(func(_ string, info fs.FileInfo) error {
		st.Entries++
		st.Bytes += info.Size()
		if mod := info.ModTime(); st.Oldest.IsZero() || mod.Before(st.Oldest) {
			st.Oldest = mod
		}
		if mod := info.ModTime(); mod.After(st.Newest) {
			st.Newest = mod
		}
		return nil
	})
	return st, err
}

func (c *Cache) each(fn func(path string, info fs.FileInfo) error) error {
	if c == nil {
		return nil
	}
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), entryExt) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := fn(filepath.Join(c.dir, d.Name()), info); err != nil {
			return err
		}
	}
	return nil
}

// path names the entry file for key with the first 16 bytes of its hash.
func (c *Cache) path(key string) string {
	sum := blake3.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:16])+entryExt)
}
