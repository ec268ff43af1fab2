package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFromURL(t *testing.T) {
	url := "http://panel.example/player_api.php?username=u&password=secret&action=get_live_streams"
	key := KeyFromURL(url)

	assert.True(t, strings.HasPrefix(key, "iptvplayer:body:"))
	assert.NotContains(t, key, "secret")
	assert.Equal(t, key, KeyFromURL(url))
	assert.NotEqual(t, key, KeyFromURL(url+"&x=1"))
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", []byte("#EXTM3U"), time.Minute))
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("#EXTM3U"), got)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	now = now.Add(2 * time.Minute)

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis("http://not-redis")
	assert.Error(t, err)

	r, err := NewRedis("redis://localhost:6379/0")
	require.NoError(t, err)
	assert.NoError(t, r.Close())
}

func TestMemoryExpiryKeepsConcurrentSet(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()

	// The clock read inside Get runs between the read and write locks; a Set
	// issued from it lands exactly in that window.
	refresh := false
	m.now = func() time.Time {
		if refresh {
			refresh = false
			require.NoError(t, m.Set(ctx, "k", []byte("fresh"), time.Minute))
		}
		return now
	}

	require.NoError(t, m.Set(ctx, "k", []byte("stale"), time.Minute))
	now = now.Add(2 * time.Minute)
	refresh = true

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("fresh"), got)
}
