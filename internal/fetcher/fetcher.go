package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/glefebvre/iptvplayer/internal/cache"
	"github.com/glefebvre/iptvplayer/internal/circuitbreaker"
	apperrors "github.com/glefebvre/iptvplayer/internal/errors"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/glefebvre/iptvplayer/internal/retry"
)

var (
	// ErrInvalidPlaylist is returned when a body is not an M3U playlist
	ErrInvalidPlaylist = errors.New("invalid M3U playlist")

	// ErrEmptyPlaylist is returned when a playlist body is blank
	ErrEmptyPlaylist = fmt.Errorf("%w: empty body", ErrInvalidPlaylist)

	// ErrBodyTooLarge is returned when a response exceeds the size limit
	ErrBodyTooLarge = errors.New("response body exceeds maximum size")
)

const defaultMaxBodyBytes = 200 << 20

// Config holds fetcher settings
type Config struct {
	Timeout       time.Duration
	UserAgent     string
	RetryAttempts int
	MaxBodyBytes  int64
	CacheTTL      time.Duration
}

// Fetcher performs upstream GETs for both provider kinds with a per-request
// timeout, retry with backoff, a per-host circuit breaker and an optional
// body cache
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	retry      retry.Config
	breakers   *circuitbreaker.Registry
	cache      cache.Cache
	logger     *logger.Logger
}

// New creates a fetcher. c may be nil to disable caching.
func New(cfg Config, c cache.Cache, log *logger.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "iptvplayer/1.0"
	}
	if log == nil {
		log = logger.AppLogger()
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	retryConfig := retry.WithAttempts(cfg.RetryAttempts)
	retryConfig.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.WithFields(map[string]interface{}{
			"attempt": attempt,
			"wait_ms": wait.Milliseconds(),
			"code":    apperrors.GetErrorCode(err),
		}).Warn("retrying upstream request")
	}

	cbConfig := circuitbreaker.DefaultConfig()
	cbConfig.IsFailure = apperrors.IsRetryable

	return &Fetcher{
		cfg:        cfg,
		httpClient: httpClient,
		retry:      retryConfig,
		breakers:   circuitbreaker.NewRegistry(cbConfig, log),
		cache:      c,
		logger:     log,
	}
}

// Breakers exposes the per-host breakers for health reporting
func (f *Fetcher) Breakers() *circuitbreaker.Registry {
	return f.breakers
}

// Get returns the body of a 2xx response to rawURL
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return f.get(ctx, rawURL, true)
}

// GetUnguarded is Get without the host circuit breaker: the call is neither
// refused by an open breaker nor counted against it. Used for per-item
// lookups whose failures must stay local to that item.
func (f *Fetcher) GetUnguarded(ctx context.Context, rawURL string) ([]byte, error) {
	return f.get(ctx, rawURL, false)
}

func (f *Fetcher) get(ctx context.Context, rawURL string, guarded bool) ([]byte, error) {
	host := hostOf(rawURL)
	key := cache.KeyFromURL(rawURL)

	if f.cache != nil {
		body, ok, err := f.cache.Get(ctx, key)
		if err != nil {
			f.logger.WithFields(map[string]interface{}{"host": host}).Warn("cache read failed, going upstream")
		} else if ok {
			return body, nil
		}
	}

	fetch := func() ([]byte, error) {
		return retry.DoWithResult(ctx, f.retry, func() ([]byte, error) {
			return f.fetchOnce(ctx, rawURL, host)
		}, retry.Upstream)
	}

	var body []byte
	var err error
	if guarded {
		err = f.breakers.For(host).Execute(func() error {
			var err error
			body, err = fetch()
			return err
		})
	} else {
		body, err = fetch()
	}
	if errors.Is(err, circuitbreaker.ErrOpenState) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return nil, apperrors.Wrap(err, apperrors.CodeServiceUnavailable, "upstream temporarily disabled").WithContext("service", host)
	}
	if err != nil {
		return nil, err
	}

	if f.cache != nil && f.cfg.CacheTTL > 0 {
		if err := f.cache.Set(ctx, key, body, f.cfg.CacheTTL); err != nil {
			f.logger.WithFields(map[string]interface{}{"host": host}).Warn("cache write failed")
		}
	}
	return body, nil
}

// Probe performs a single uncached attempt, bypassing retry and the breaker.
// Used for connection tests where a quick yes/no is wanted. A successful
// probe closes the host's breaker.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) ([]byte, error) {
	host := hostOf(rawURL)
	body, err := f.fetchOnce(ctx, rawURL, host)
	if err != nil {
		return nil, err
	}
	f.breakers.Reset(host)
	return body, nil
}

// GetJSON decodes a JSON response into dst
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, dst interface{}) error {
	body, err := f.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	return decodeJSON(body, rawURL, dst)
}

// GetJSONUnguarded is GetJSON without the host circuit breaker
func (f *Fetcher) GetJSONUnguarded(ctx context.Context, rawURL string, dst interface{}) error {
	body, err := f.GetUnguarded(ctx, rawURL)
	if err != nil {
		return err
	}
	return decodeJSON(body, rawURL, dst)
}

func decodeJSON(body []byte, rawURL string, dst interface{}) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.Wrap(err, apperrors.CodeMalformedData, "decode upstream JSON").WithContext("service", hostOf(rawURL))
	}
	return nil
}

// GetPlaylist downloads an M3U playlist. A missing header is logged but the
// text is still returned: the parser tolerates headerless playlists.
func (f *Fetcher) GetPlaylist(ctx context.Context, rawURL string) (string, error) {
	body, err := f.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if err := ValidatePlaylist(body); err != nil {
		if errors.Is(err, ErrEmptyPlaylist) {
			return "", apperrors.Wrap(err, apperrors.CodeParse, "playlist rejected").WithContext("service", hostOf(rawURL))
		}
		f.logger.WithFields(map[string]interface{}{
			"url": RedactURL(rawURL),
		}).Warn("playlist has no #EXTM3U header")
	}
	return string(body), nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL, host string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.ValidationError(fmt.Sprintf("invalid upstream URL: %v", err))
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.UpstreamError(host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, apperrors.StatusError(host, resp.StatusCode)
	}

	if resp.ContentLength > f.cfg.MaxBodyBytes {
		return nil, apperrors.Wrap(ErrBodyTooLarge, apperrors.CodeMalformedData,
			fmt.Sprintf("%d bytes exceeds %d byte limit", resp.ContentLength, f.cfg.MaxBodyBytes))
	}

	var buf bytes.Buffer
	written, err := io.Copy(&buf, io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, apperrors.UpstreamError(host, err)
	}
	if written > f.cfg.MaxBodyBytes {
		return nil, apperrors.Wrap(ErrBodyTooLarge, apperrors.CodeMalformedData,
			fmt.Sprintf("download exceeds %d byte limit", f.cfg.MaxBodyBytes))
	}

	f.logger.WithFields(map[string]interface{}{
		"host":        host,
		"status":      resp.StatusCode,
		"bytes":       written,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("upstream request completed")

	return buf.Bytes(), nil
}

// ValidatePlaylist checks that the first non-empty line is the #EXTM3U header
func ValidatePlaylist(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyPlaylist
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#EXTM3U") {
			return fmt.Errorf("%w: missing #EXTM3U header", ErrInvalidPlaylist)
		}
		break
	}

	return nil
}

// RedactURL strips credentials from a URL for logging
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	for _, k := range []string{"password", "pass", "token"} {
		if q.Has(k) {
			q.Set(k, "xxx")
		}
	}
	u.RawQuery = q.Encode()
	u.User = nil
	return u.String()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
