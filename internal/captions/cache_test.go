package captions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCache_FreshDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "media_cache")

	cache, err := OpenCache(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())
	assert.DirExists(t, dir)
}

func TestCache_PutAndGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenCache(dir)
	require.NoError(t, err)

	entry := Entry{LocalPath: filepath.Join(dir, "abc.png"), Description: "A company logo."}
	require.NoError(t, cache.Put("https://example.com/logo.png", entry))

	got, ok := cache.Get("https://example.com/logo.png")
	require.True(t, ok)
	assert.Equal(t, entry, got)

	_, ok = cache.Get("https://example.com/other.png")
	assert.False(t, ok)
}

func TestCache_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	first, err := OpenCache(dir)
	require.NoError(t, err)
	require.NoError(t, first.Put("https://example.com/a.png", Entry{Description: "first"}))
	require.NoError(t, first.Put("https://example.com/b.png", Entry{Description: "second"}))

	reopened, err := OpenCache(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())
	got, ok := reopened.Get("https://example.com/b.png")
	require.True(t, ok)
	assert.Equal(t, "second", got.Description)
}

func TestCache_PutLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenCache(dir)
	require.NoError(t, err)
	require.NoError(t, cache.Put("https://example.com/a.png", Entry{Description: "x"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cache.json", entries[0].Name())

	// The file on disk is plain JSON, readable by other tooling.
	data, err := os.ReadFile(filepath.Join(dir, "cache.json"))
	require.NoError(t, err)
	var decoded map[string]Entry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "x", decoded["https://example.com/a.png"].Description)
}

func TestOpenCache_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cache.json"), []byte("{broken"), 0644))

	_, err := OpenCache(dir)
	require.Error(t, err)
	var captionErr *Error
	assert.ErrorAs(t, err, &captionErr)
}
