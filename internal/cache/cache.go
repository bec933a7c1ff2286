// Package cache stores fetched pages so that repeated crawls and summaries of
// the same URL do not hit the network again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache is a byte store with per-entry expiry. A zero ttl means the store's
// default.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Page is a cached page body together with the URL it was served from after
// redirects.
type Page struct {
	FinalURL string `json:"final_url"`
	HTML     string `json:"html"`
}

// PageKey returns the cache key for the page fetched from url.
func PageKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "brevis:v2:page:" + hex.EncodeToString(hash[:])
}

// GetPage looks up the page cached for url. Entries that do not decode are
// treated as misses.
func GetPage(c Cache, url string) (Page, bool) {
	raw, ok := c.Get(PageKey(url))
	if !ok {
		return Page{}, false
	}
	var p Page
	if err := json.Unmarshal(raw, &p); err != nil {
		return Page{}, false
	}
	if p.FinalURL == "" {
		p.FinalURL = url
	}
	return p, true
}

// SetPage stores p under url with the cache's default expiry.
func SetPage(c Cache, url string, p Page) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.Set(PageKey(url), raw, 0)
}
