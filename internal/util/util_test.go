package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotsChecker_CanFetch(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			_, _ = fmt.Fprint(w, "User-agent: Brevis\nDisallow: /private/\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Brevis/0.1 (+https://example.com)", 5*time.Second)
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/news/story")
	require.NoError(t, err)
	assert.True(t, allowed, "/news/story")
	assert.Equal(t, 2*time.Second, delay)

	allowed, _, err = checker.CanFetch(ctx, server.URL+"/private/page")
	require.NoError(t, err)
	assert.False(t, allowed, "/private/page")

	assert.Equal(t, int32(1), robotsHits.Load(), "robots.txt is fetched once per host")
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	allowed, _, err := NewRobotsChecker("Brevis/0.1", 5*time.Second).CanFetch(context.Background(), server.URL+"/anything")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	allowed, _, err := NewRobotsChecker("Brevis/0.1", time.Second).CanFetch(context.Background(), addr+"/page")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRobotsChecker_BadURL(t *testing.T) {
	_, _, err := NewRobotsChecker("Brevis/0.1", time.Second).CanFetch(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Brevis/0.1 (+https://github.com/ppiankov/brevis)", "Brevis"},
		{"curl/8.0", "curl"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeUserAgent(tt.in), "NormalizeUserAgent(%q)", tt.in)
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:8080", "http://secure.local:8443", "internal.example")

	tests := []struct {
		target string
		want   string
	}{
		{"http://news.example/a", "http://proxy.local:8080"},
		{"https://news.example/a", "http://secure.local:8443"},
		{"https://internal.example/a", ""},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.target)
		require.NoError(t, err)
		got, err := proxy(&http.Request{URL: u})
		require.NoError(t, err, tt.target)
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		assert.Equal(t, tt.want, gotStr, tt.target)
	}
}
