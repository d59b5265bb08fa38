package captions

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	// DefaultCacheDir is where downloaded images and their descriptions
	// live between runs.
	DefaultCacheDir = "media_cache"

	cacheFileName = "cache.json"
)

// Entry pairs a downloaded image with its generated description.
type Entry struct {
	LocalPath   string `json:"local_path"`
	Description string `json:"description"`
}

// Cache is the on-disk store of image descriptions, keyed by resolved image
// URL. Every Put rewrites the whole file atomically; runs are not expected
// to share a cache concurrently.
type Cache struct {
	dir     string
	entries map[string]Entry
}

// OpenCache loads the cache under dir, creating the directory when missing.
// An empty dir selects DefaultCacheDir.
func OpenCache(dir string) (*Cache, error) {
	if dir == "" {
		dir = DefaultCacheDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &Error{Path: dir, Message: "failed to create cache directory", Cause: err}
	}

	c := &Cache{dir: dir, entries: make(map[string]Entry)}
	data, err := os.ReadFile(c.file())
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, &Error{Path: c.file(), Message: "failed to read cache", Cause: err}
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, &Error{Path: c.file(), Message: "failed to parse cache", Cause: err}
	}
	return c, nil
}

func (c *Cache) file() string { return filepath.Join(c.dir, cacheFileName) }

// Dir returns the directory downloaded images are stored in.
func (c *Cache) Dir() string { return c.dir }

// Len returns the number of cached descriptions.
func (c *Cache) Len() int { return len(c.entries) }

// Get looks up the entry for a resolved image URL.
func (c *Cache) Get(url string) (Entry, bool) {
	entry, ok := c.entries[url]
	return entry, ok
}

// Put stores an entry and persists the cache. The write goes through a temp
// file and rename so a crash never leaves a half-written cache behind.
func (c *Cache) Put(url string, entry Entry) error {
	c.entries[url] = entry

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return &Error{Path: c.file(), Message: "failed to encode cache", Cause: err}
	}
	tmp, err := os.CreateTemp(c.dir, "cache-*.json")
	if err != nil {
		return &Error{Path: c.dir, Message: "failed to create temp cache file", Cause: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &Error{Path: tmp.Name(), Message: "failed to write cache", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &Error{Path: tmp.Name(), Message: "failed to close cache file", Cause: err}
	}
	if err := os.Rename(tmp.Name(), c.file()); err != nil {
		os.Remove(tmp.Name())
		return &Error{Path: c.file(), Message: "failed to replace cache file", Cause: err}
	}
	return nil
}
