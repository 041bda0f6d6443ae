package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// entryMagic opens every file cache entry; the 8 bytes after it hold the
// expiry in Unix nanoseconds (0 for none), then the raw artifact bytes.
var entryMagic = []byte("xtc1")

const entryHeader = 4 + 8

// FileCache keeps one file per entry under a directory. Keys are hashed into
// two-level paths so no single directory grows too large.
type FileCache struct {
	dir string
	now func() time.Time
}

// NewFileCache creates a file-based cache rooted at dir, creating it if
// needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, now: time.Now}, nil
}

// Dir returns the cache root.
func (c *FileCache) Dir() string { return c.dir }

// Get returns the entry for key. Corrupt or expired entries are removed and
// reported as misses.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	data, expires, ok := decodeEntry(raw)
	if !ok || c.expired(expires) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores data under key. The entry is written to a temporary file and
// renamed into place, so concurrent readers never see a partial entry.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}

	path := c.path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".entry-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(encodeEntry(data, expires)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes the entry for key; a missing entry is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes every entry, recreates the empty root and reports how many
// entries were removed.
func (c *FileCache) Clear() (int, error) {
	n, err := c.walk(func(string, []byte) bool { return true })
	if err != nil {
		return 0, err
	}
	if err := os.RemoveAll(c.dir); err != nil {
		return 0, err
	}
	return n, os.MkdirAll(c.dir, 0o755)
}

// Prune removes expired and corrupt entries and reports how many it removed.
func (c *FileCache) Prune() (int, error) {
	return c.walk(func(_ string, raw []byte) bool {
		_, expires, ok := decodeEntry(raw)
		return !ok || c.expired(expires)
	})
}

// walk visits every entry file and removes those for which drop reports
// true. A nil raw slice means the file could not be read.
func (c *FileCache) walk(drop func(path string, raw []byte) bool) (int, error) {
	n := 0
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		raw, _ := os.ReadFile(path)
		if drop(path, raw) {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func (c *FileCache) Close() error {
	return nil
}

func (c *FileCache) expired(expires time.Time) bool {
	return !expires.IsZero() && c.now().After(expires)
}

func (c *FileCache) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(c.dir, hash[:2], hash[2:])
}

func encodeEntry(data []byte, expires time.Time) []byte {
	out := make([]byte, entryHeader, entryHeader+len(data))
	copy(out, entryMagic)
	if !expires.IsZero() {
		binary.BigEndian.PutUint64(out[4:entryHeader], uint64(expires.UnixNano()))
	}
	return append(out, data...)
}

func decodeEntry(raw []byte) (data []byte, expires time.Time, ok bool) {
	if len(raw) < entryHeader || !bytes.Equal(raw[:4], entryMagic) {
		return nil, time.Time{}, false
	}
	if ns := binary.BigEndian.Uint64(raw[4:entryHeader]); ns != 0 {
		expires = time.Unix(0, int64(ns))
	}
	return raw[entryHeader:], expires, true
}

var _ Cache = (*FileCache)(nil)
