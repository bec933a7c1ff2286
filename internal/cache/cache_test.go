package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageKey(t *testing.T) {
	a := PageKey("https://example.com/a")
	b := PageKey("https://example.com/b")

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, PageKey("https://example.com/a"))
	assert.Regexp(t, `^brevis:v2:page:[0-9a-f]{64}$`, a)
}

func TestPage_KeepsFinalURL(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	page := Page{FinalURL: "https://example.com/news/", HTML: "<a href=\"story.html\">s</a>"}

	require.NoError(t, SetPage(c, "https://example.com/", page))

	got, ok := GetPage(c, "https://example.com/")
	require.True(t, ok)
	assert.Equal(t, page, got)

	_, ok = GetPage(c, "https://example.com/other")
	assert.False(t, ok)
}

func TestGetPage_UndecodableEntryMisses(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set(PageKey("https://example.com/"), []byte("<html>raw body</html>"), 0))

	_, ok := GetPage(c, "https://example.com/")
	assert.False(t, ok)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set("k", []byte("v"), 0))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok, "miss after Delete")

	require.NoError(t, c.Set("short", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok = c.Get("short")
	assert.False(t, ok, "expired entry")
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewDiskCache(dir, time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := PageKey("https://example.com")
	require.NoError(t, c.Set(key, []byte("<html></html>"), 0))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "<html></html>", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), ":")

	now = now.Add(2 * time.Hour)
	_, ok = c.Get(key)
	assert.False(t, ok, "expired entry")
	_, err = os.Stat(c.path(key))
	assert.True(t, os.IsNotExist(err), "expired entry file should be removed")
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	require.NoError(t, os.WriteFile(c.path("k"), []byte("{not json"), 0644))

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.NoError(t, c.Delete("k"))
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	fast := NewMemoryCache(time.Minute, time.Minute)
	slow := NewDiskCache(t.TempDir(), time.Hour)
	c := NewLayers(fast, slow)

	require.NoError(t, slow.Set("k", []byte("disk"), 0))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "disk", string(got))
	_, ok = fast.Get("k")
	assert.True(t, ok, "disk hit should be promoted to memory")

	require.NoError(t, c.Set("both", []byte("x"), 0))
	_, ok = slow.Get("both")
	assert.True(t, ok, "Set should write the disk layer")

	require.NoError(t, c.Clear())
	_, ok = c.Get("k")
	assert.False(t, ok, "miss after Clear")
}
