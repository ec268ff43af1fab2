package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glefebvre/iptvplayer/internal/cache"
	apperrors "github.com/glefebvre/iptvplayer/internal/errors"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1,Test Channel
http://example.com/stream.m3u8
`

func newTestFetcher(cfg Config, c cache.Cache) *Fetcher {
	f := New(cfg, c, logger.Discard())
	f.retry.InitialBackoff = time.Millisecond
	f.retry.MaxBackoff = 2 * time.Millisecond
	return f
}

func TestGet_Success(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Write([]byte(samplePlaylist))
	}))
	defer server.Close()

	f := newTestFetcher(Config{UserAgent: "test-agent"}, nil)
	body, err := f.Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, samplePlaylist, string(body))
	assert.Equal(t, "test-agent", userAgent)
}

func TestGet_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		code   apperrors.ErrorCode
		calls  int32
	}{
		{http.StatusUnauthorized, apperrors.CodeUnauthorized, 1},
		{http.StatusNotFound, apperrors.CodeUpstreamStatus, 1},
		{http.StatusBadGateway, apperrors.CodeServiceUnavailable, 3},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			f := newTestFetcher(Config{RetryAttempts: 3}, nil)
			_, err := f.Get(context.Background(), server.URL)

			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetErrorCode(err))
			assert.Equal(t, tt.calls, atomic.LoadInt32(&calls))
		})
	}
}

func TestGet_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	f := newTestFetcher(Config{RetryAttempts: 2}, nil)
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, f.GetJSON(context.Background(), server.URL, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGet_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	f := newTestFetcher(Config{Timeout: 50 * time.Millisecond}, nil)
	_, err := f.Get(context.Background(), server.URL)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeServiceTimeout, apperrors.GetErrorCode(err))
}

func TestGet_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("A", 2048)))
	}))
	defer server.Close()

	f := newTestFetcher(Config{MaxBodyBytes: 1024}, nil)
	_, err := f.Get(context.Background(), server.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBodyTooLarge))
}

func TestGet_UsesCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(samplePlaylist))
	}))
	defer server.Close()

	mem := cache.NewMemory()
	f := newTestFetcher(Config{CacheTTL: time.Minute}, mem)

	for i := 0; i < 3; i++ {
		body, err := f.Get(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, samplePlaylist, string(body))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, mem.Len())
}

func TestGet_BreakerOpensPerHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := newTestFetcher(Config{RetryAttempts: 1}, nil)
	for i := 0; i < 5; i++ {
		_, _ = f.Get(context.Background(), server.URL)
	}

	_, err := f.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeServiceUnavailable, apperrors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "temporarily disabled")
}

func TestGetUnguarded_BypassesBreaker(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	f := newTestFetcher(Config{RetryAttempts: 1}, nil)
	for i := 0; i < 10; i++ {
		_, err := f.GetUnguarded(context.Background(), server.URL)
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "temporarily disabled")
	}

	healthy.Store(true)
	var out struct{ OK bool }
	require.NoError(t, f.GetJSON(context.Background(), server.URL, &out), "unguarded failures must not open the breaker")
	assert.True(t, out.OK)

	healthy.Store(false)
	for i := 0; i < 5; i++ {
		_, _ = f.Get(context.Background(), server.URL)
	}
	_, err := f.Get(context.Background(), server.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "temporarily disabled")

	healthy.Store(true)
	require.NoError(t, f.GetJSONUnguarded(context.Background(), server.URL, &out), "an open breaker must not refuse unguarded calls")
}

func TestProbe_SuccessClosesBreaker(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := newTestFetcher(Config{RetryAttempts: 1}, nil)
	for i := 0; i < 5; i++ {
		_, _ = f.Get(context.Background(), server.URL)
	}
	_, err := f.Get(context.Background(), server.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "temporarily disabled")

	healthy.Store(true)
	_, err = f.Probe(context.Background(), server.URL)
	require.NoError(t, err)

	body, err := f.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestGetPlaylist(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", samplePlaylist, false},
		{"headerless is tolerated", "#EXTINF:-1,X\nhttp://x\n", false},
		{"empty", "   \n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			text, err := newTestFetcher(Config{}, nil).GetPlaylist(context.Background(), server.URL)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.CodeParse, apperrors.GetErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.body, text)
		})
	}
}

func TestProbe_NoRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := newTestFetcher(Config{RetryAttempts: 5}, nil)
	_, err := f.Probe(context.Background(), server.URL)

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestValidatePlaylist(t *testing.T) {
	assert.NoError(t, ValidatePlaylist([]byte("\n\n#EXTM3U\n")))
	assert.NoError(t, ValidatePlaylist([]byte("\ufeff#EXTM3U x-tvg-url=\"a\"\n")))
	assert.ErrorIs(t, ValidatePlaylist([]byte("<html>")), ErrInvalidPlaylist)
	assert.ErrorIs(t, ValidatePlaylist(nil), ErrEmptyPlaylist)
}

func TestRedactURL(t *testing.T) {
	got := RedactURL("http://user:pw@panel.example/player_api.php?username=u&password=secret")
	assert.NotContains(t, got, "secret")
	assert.NotContains(t, got, "pw@")
	assert.Contains(t, got, "username=u")
}
