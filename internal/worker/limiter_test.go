package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitBriefly reports whether rawURL may be requested within a few
// milliseconds.
func waitBriefly(l *Limiter, rawURL string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	return l.Wait(ctx, rawURL, 0) == nil
}

func TestNewLimiter_Defaults(t *testing.T) {
	l := NewLimiter(10, -1)
	assert.Equal(t, 1, l.burst)

	unlimited := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		require.True(t, waitBriefly(unlimited, "http://example.com"), "zero rate means unlimited, denied at %d", i)
	}
}

func TestLimiter_PerHost(t *testing.T) {
	l := NewLimiter(1, 1)

	assert.True(t, waitBriefly(l, "http://example.com/a"), "first request passes")
	assert.False(t, waitBriefly(l, "http://example.com/b"), "second request to the same host waits")
	assert.True(t, waitBriefly(l, "http://other.com/"), "other host has its own bucket")
}

func TestLimiter_WaitHonoursCrawlDelay(t *testing.T) {
	l := NewLimiter(100, 1)
	var waited time.Duration
	l.after = func(d time.Duration) <-chan time.Time {
		waited = d
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	require.NoError(t, l.Wait(context.Background(), "http://example.com", 3*time.Second))
	assert.Equal(t, 3*time.Second, waited)
}

func TestLimiter_WaitCancelled(t *testing.T) {
	l := NewLimiter(100, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, l.Wait(ctx, "http://example.com", time.Hour))
}

func TestLimiter_WaitRejectsURLWithoutHost(t *testing.T) {
	assert.Error(t, NewLimiter(0, 1).Wait(context.Background(), "/relative", 0))
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("http://example.com:8080/foo")
	require.NoError(t, err)
	assert.Equal(t, "example.com:8080", host)

	_, err = hostOf("::invalid")
	assert.Error(t, err)
	_, err = hostOf("/relative/path")
	assert.Error(t, err)
}
