package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"toolcrib/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	l, err := newRateLimiter(config.RateLimitConfig{RPS: 1})
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/items", nil)
	r.RemoteAddr = "203.0.113.9:5123"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, "203.0.113.9", l.clientIP(r))
}

func TestClientIP_TrustedProxyChain(t *testing.T) {
	l, err := newRateLimiter(config.RateLimitConfig{RPS: 1, TrustedProxies: []string{"10.0.0.0/8", "192.0.2.7"}})
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/items", nil)
	r.RemoteAddr = "10.1.2.3:443"
	// the leftmost hop is client supplied; the rightmost untrusted one is the real peer
	r.Header.Set("X-Forwarded-For", "1.1.1.1, 198.51.100.4, 192.0.2.7")
	assert.Equal(t, "198.51.100.4", l.clientIP(r))

	r.Header.Set("X-Forwarded-For", "10.9.9.9")
	assert.Equal(t, "10.1.2.3", l.clientIP(r))

	r.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.1.2.3", l.clientIP(r))
}

func TestNewRateLimiter_RejectsBadProxy(t *testing.T) {
	_, err := newRateLimiter(config.RateLimitConfig{TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)
	_, err = newRateLimiter(config.RateLimitConfig{TrustedProxies: []string{"10.0.0.0/99"}})
	assert.Error(t, err)
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	l, err := newRateLimiter(config.RateLimitConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})
	require.NoError(t, err)

	now := time.Date(2025, 6, 7, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.size())

	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.size())

	now = now.Add(45 * time.Second)
	assert.True(t, l.Allow("c"))
	assert.Equal(t, 2, l.size(), "a idle for 75s is dropped, b seen 45s ago is kept")
}

func TestRateLimiter_Disabled(t *testing.T) {
	l, err := newRateLimiter(config.RateLimitConfig{})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("a"))
	}
	assert.Zero(t, l.size())
}
