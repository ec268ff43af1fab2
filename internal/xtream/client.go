package xtream

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/glefebvre/iptvplayer/internal/errors"
	"github.com/glefebvre/iptvplayer/internal/fetcher"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/glefebvre/iptvplayer/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSeriesInfoConcurrency = 8
	defaultNewWindow             = 14 * 24 * time.Hour
	connectionTestTimeout        = 10 * time.Second
	defaultContainerExtension    = "mp4"
)

// Player API actions
const (
	actionLiveCategories   = "get_live_categories"
	actionLiveStreams      = "get_live_streams"
	actionVODCategories    = "get_vod_categories"
	actionVODStreams       = "get_vod_streams"
	actionSeriesCategories = "get_series_categories"
	actionSeries           = "get_series"
	actionSeriesInfo       = "get_series_info"
)

// Config holds Xtream client settings
type Config struct {
	SeriesInfoConcurrency int
	NewWindow             time.Duration
	Now                   func() time.Time
}

// Client talks to an Xtream Codes player API and normalizes its payloads
// into content models
type Client struct {
	cfg     Config
	fetcher *fetcher.Fetcher
	logger  *logger.Logger
}

// AccountInfo is the decoded login payload of an Xtream account
type AccountInfo struct {
	Authenticated        bool       `json:"authenticated"`
	Status               string     `json:"status"`
	Username             string     `json:"username"`
	Message              string     `json:"message,omitempty"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
	CreatedAt            *time.Time `json:"created_at,omitempty"`
	IsTrial              bool       `json:"is_trial"`
	ActiveConnections    int        `json:"active_connections"`
	MaxConnections       int        `json:"max_connections"`
	AllowedOutputFormats []string   `json:"allowed_output_formats,omitempty"`
	ServerURL            string     `json:"server_url,omitempty"`
	Port                 string     `json:"port,omitempty"`
	HTTPSPort            string     `json:"https_port,omitempty"`
	Protocol             string     `json:"protocol,omitempty"`
	Timezone             string     `json:"timezone,omitempty"`
}

// NewClient creates an Xtream client on top of a shared fetcher
func NewClient(cfg Config, f *fetcher.Fetcher, log *logger.Logger) *Client {
	if cfg.SeriesInfoConcurrency <= 0 {
		cfg.SeriesInfoConcurrency = defaultSeriesInfoConcurrency
	}
	if cfg.NewWindow <= 0 {
		cfg.NewWindow = defaultNewWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.AppLogger()
	}

	return &Client{
		cfg:     cfg,
		fetcher: f,
		logger:  log.Named("xtream"),
	}
}

// NormalizeServerURL prepends http:// when the URL has no scheme and strips
// trailing slashes
func NormalizeServerURL(raw string) string {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "http://" + s
	}
	return strings.TrimRight(s, "/")
}

// endpoint is one account's resolved API base
type endpoint struct {
	base     string
	username string
	password string
}

func endpointFor(acct models.Account) (endpoint, error) {
	if acct.Type != models.AccountTypeXtream || acct.Xtream == nil {
		return endpoint{}, apperrors.InvalidAccountError(acct.ID, "not an xtream account")
	}
	return newEndpoint(acct.Xtream.ServerURL, acct.Xtream.Username, acct.Xtream.Password), nil
}

func newEndpoint(server, username, password string) endpoint {
	return endpoint{
		base:     NormalizeServerURL(server),
		username: username,
		password: password,
	}
}

func (e endpoint) apiURL(action string, extra url.Values) string {
	params := url.Values{}
	params.Set("username", e.username)
	params.Set("password", e.password)
	if action != "" {
		params.Set("action", action)
	}
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	return e.base + "/player_api.php?" + params.Encode()
}

func (e endpoint) streamURL(kind, id, ext string) string {
	name := id
	if ext != "" {
		name = id + "." + ext
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s", e.base, kind,
		url.PathEscape(e.username), url.PathEscape(e.password), name)
}

// FetchLive returns the live channels of an account joined with their
// categories. A failed category call leaves channels uncategorized.
func (c *Client) FetchLive(ctx context.Context, acct models.Account) ([]models.LiveChannel, error) {
	ep, err := endpointFor(acct)
	if err != nil {
		return []models.LiveChannel{}, err
	}

	categories := c.loadCategories(ctx, ep, actionLiveCategories)

	streams, err := fetchList[liveStream](ctx, c, ep, actionLiveStreams)
	if err != nil {
		return []models.LiveChannel{}, err
	}

	channels := make([]models.LiveChannel, 0, len(streams))
	for _, s := range streams {
		id := s.StreamID.String()
		channels = append(channels, models.LiveChannel{
			ID:        id,
			Name:      s.Name.String(),
			StreamURL: ep.streamURL("live", id, "ts"),
			LogoURL:   models.StringOrNil(s.StreamIcon),
			EPGID:     models.StringOrNil(s.EPGChannelID.String()),
			Category:  categories.lookup(s.CategoryID),
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"account_id": acct.ID,
		"channels":   len(channels),
	}).Debug("live channels fetched")

	return channels, nil
}

// FetchMovies returns the VOD catalog of an account
func (c *Client) FetchMovies(ctx context.Context, acct models.Account) ([]models.Movie, error) {
	ep, err := endpointFor(acct)
	if err != nil {
		return []models.Movie{}, err
	}

	categories := c.loadCategories(ctx, ep, actionVODCategories)

	streams, err := fetchList[vodStream](ctx, c, ep, actionVODStreams)
	if err != nil {
		return []models.Movie{}, err
	}

	now := c.cfg.Now()
	movies := make([]models.Movie, 0, len(streams))
	for _, s := range streams {
		id := s.StreamID.String()
		ext := s.ContainerExtension
		if ext == "" {
			ext = defaultContainerExtension
		}

		movie := models.Movie{
			ID:          id,
			Name:        s.Name.String(),
			StreamURL:   ep.streamURL("movie", id, ext),
			PosterURL:   models.StringOrNil(s.StreamIcon),
			Description: models.StringOrNil(s.Plot),
			ReleaseDate: models.StringOrNil(s.ReleaseDate),
			Genre:       models.StringOrNil(s.Genre),
			Language:    models.StringOrNil(s.Language),
			Year:        models.StringOrNil(s.Year.String()),
			Category:    categories.lookup(s.CategoryID),
			IsNew:       models.Ptr(c.isNew(s.Added, now)),
		}
		if rating, ok := s.Rating.Float(); ok {
			movie.Rating = models.Ptr(rating)
		}
		if minutes, ok := parseDuration(s.Duration); ok {
			movie.Duration = models.Ptr(minutes)
		}
		movies = append(movies, movie)
	}

	c.logger.WithFields(map[string]interface{}{
		"account_id": acct.ID,
		"movies":     len(movies),
	}).Debug("movies fetched")

	return movies, nil
}

// FetchSeries returns every series of an account with its episodes. Episode
// lists are fetched with one get_series_info call per series, bounded by
// SeriesInfoConcurrency. A failed or slow info call leaves that series without
// episodes and does not affect the others: info calls bypass the host
// breaker so they can neither trip it nor be refused by it.
func (c *Client) FetchSeries(ctx context.Context, acct models.Account) ([]models.Series, error) {
	ep, err := endpointFor(acct)
	if err != nil {
		return []models.Series{}, err
	}

	categories := c.loadCategories(ctx, ep, actionSeriesCategories)

	entries, err := fetchList[seriesEntry](ctx, c, ep, actionSeries)
	if err != nil {
		return []models.Series{}, err
	}

	now := c.cfg.Now()
	out := make([]models.Series, len(entries))

	var failedMu sync.Mutex
	failed := 0

	var g errgroup.Group
	g.SetLimit(c.cfg.SeriesInfoConcurrency)
	for i, entry := range entries {
		out[i] = c.seriesFromEntry(entry, categories, now)
		g.Go(func() error {
			info, err := c.fetchSeriesInfo(ctx, ep, entry.SeriesID.String())
			if err != nil {
				failedMu.Lock()
				failed++
				failedMu.Unlock()
				c.logger.WithFields(map[string]interface{}{
					"series_id": entry.SeriesID.String(),
					"code":      apperrors.GetErrorCode(err),
				}).Warn("series info unavailable, listing without episodes")
				return nil
			}
			attachEpisodes(&out[i], ep, entry.SeriesID.String(), entry.Cover, info.Episodes)
			return nil
		})
	}
	_ = g.Wait()

	c.logger.WithFields(map[string]interface{}{
		"account_id":   acct.ID,
		"series":       len(out),
		"info_failed":  failed,
		"info_workers": c.cfg.SeriesInfoConcurrency,
	}).Debug("series fetched")

	return out, nil
}

// FetchSeriesInfo returns a single series with its episodes, built from the
// get_series_info payload
func (c *Client) FetchSeriesInfo(ctx context.Context, acct models.Account, seriesID string) (models.Series, error) {
	ep, err := endpointFor(acct)
	if err != nil {
		return models.Series{}, err
	}
	if strings.TrimSpace(seriesID) == "" {
		return models.Series{}, apperrors.ValidationError("series id is required")
	}

	info, err := c.fetchSeriesInfo(ctx, ep, seriesID)
	if err != nil {
		return models.Series{}, err
	}

	categories := c.loadCategories(ctx, ep, actionSeriesCategories)

	series := models.Series{
		ID:          seriesID,
		Name:        info.Info.Name.String(),
		PosterURL:   models.StringOrNil(info.Info.Cover),
		Description: models.StringOrNil(info.Info.Plot),
		Genre:       models.StringOrNil(info.Info.Genre),
		ReleaseDate: models.StringOrNil(info.Info.ReleaseDate),
		Category:    categories.lookup(info.Info.CategoryID),
		Seasons:     models.Ptr(0),
		Episodes:    models.Ptr(0),
		Items:       []models.SeriesItem{},
	}
	if rating, ok := info.Info.Rating.Float(); ok {
		series.Rating = models.Ptr(rating)
	}
	attachEpisodes(&series, ep, seriesID, info.Info.Cover, info.Episodes)

	return series, nil
}

// FetchCategories returns the distinct category names of one content kind,
// sorted ascending
func (c *Client) FetchCategories(ctx context.Context, acct models.Account, kind models.ContentKind) ([]string, error) {
	ep, err := endpointFor(acct)
	if err != nil {
		return []string{}, err
	}

	var action string
	switch kind {
	case models.ContentKindLive:
		action = actionLiveCategories
	case models.ContentKindMovie:
		action = actionVODCategories
	case models.ContentKindSeries:
		action = actionSeriesCategories
	default:
		return []string{}, apperrors.ValidationError(fmt.Sprintf("unknown content kind %q", kind))
	}

	list, err := fetchList[category](ctx, c, ep, action)
	if err != nil {
		return []string{}, err
	}

	seen := make(map[string]struct{}, len(list))
	names := make([]string, 0, len(list))
	for _, cat := range list {
		name := strings.TrimSpace(cat.CategoryName)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// TestConnection reports whether the credentials authenticate. Any failure,
// including timeouts and undecodable bodies, yields false.
func (c *Client) TestConnection(ctx context.Context, server, username, password string) bool {
	ctx, cancel := context.WithTimeout(ctx, connectionTestTimeout)
	defer cancel()

	info, err := c.login(ctx, newEndpoint(server, username, password), true)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"server": fetcher.RedactURL(NormalizeServerURL(server)),
			"code":   apperrors.GetErrorCode(err),
		}).Debug("xtream connection test failed")
		return false
	}
	return info.Authenticated
}

// AccountInfo returns the login payload of an account
func (c *Client) AccountInfo(ctx context.Context, acct models.Account) (*AccountInfo, error) {
	ep, err := endpointFor(acct)
	if err != nil {
		return nil, err
	}
	return c.login(ctx, ep, false)
}

// ContentCounts counts live, movie and series entries with the three stream
// list calls issued concurrently. A failed call leaves its count nil.
func (c *Client) ContentCounts(ctx context.Context, acct models.Account) (models.ContentCounts, error) {
	ep, err := endpointFor(acct)
	if err != nil {
		return models.ContentCounts{}, err
	}

	var counts models.ContentCounts
	targets := []struct {
		action string
		dst    **int
	}{
		{actionLiveStreams, &counts.Live},
		{actionVODStreams, &counts.Movies},
		{actionSeries, &counts.Series},
	}

	var g errgroup.Group
	for _, target := range targets {
		g.Go(func() error {
			list, err := fetchList[struct{}](ctx, c, ep, target.action)
			if err != nil {
				return nil
			}
			*target.dst = models.Ptr(len(list))
			return nil
		})
	}
	_ = g.Wait()

	return counts, nil
}

func (c *Client) login(ctx context.Context, ep endpoint, probe bool) (*AccountInfo, error) {
	rawURL := ep.apiURL("", nil)

	var resp loginResponse
	if probe {
		body, err := c.fetcher.Probe(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeMalformedData, "decode login response")
		}
	} else if err := c.fetcher.GetJSON(ctx, rawURL, &resp); err != nil {
		return nil, err
	}

	auth, _ := resp.UserInfo.Auth.Int()
	info := &AccountInfo{
		Authenticated:        auth == 1,
		Status:               resp.UserInfo.Status,
		Username:             resp.UserInfo.Username,
		Message:              resp.UserInfo.Message,
		ExpiresAt:            parseTimestamp(resp.UserInfo.ExpDate),
		CreatedAt:            parseTimestamp(resp.UserInfo.CreatedAt),
		AllowedOutputFormats: resp.UserInfo.AllowedOutputFormats,
		ServerURL:            resp.ServerInfo.URL,
		Port:                 resp.ServerInfo.Port.String(),
		HTTPSPort:            resp.ServerInfo.HTTPSPort.String(),
		Protocol:             resp.ServerInfo.ServerProtocol,
		Timezone:             resp.ServerInfo.Timezone,
	}
	if trial, ok := resp.UserInfo.IsTrial.Int(); ok {
		info.IsTrial = trial == 1
	}
	info.ActiveConnections, _ = resp.UserInfo.ActiveCons.Int()
	info.MaxConnections, _ = resp.UserInfo.MaxConnections.Int()

	return info, nil
}

func (c *Client) fetchSeriesInfo(ctx context.Context, ep endpoint, seriesID string) (seriesInfo, error) {
	var info seriesInfo
	rawURL := ep.apiURL(actionSeriesInfo, url.Values{"series_id": {seriesID}})
	if err := c.fetcher.GetJSONUnguarded(ctx, rawURL, &info); err != nil {
		return seriesInfo{}, err
	}
	return info, nil
}

func (c *Client) seriesFromEntry(entry seriesEntry, categories categoryIndex, now time.Time) models.Series {
	s := models.Series{
		ID:          entry.SeriesID.String(),
		Name:        entry.Name.String(),
		PosterURL:   models.StringOrNil(entry.Cover),
		Description: models.StringOrNil(entry.Plot),
		Genre:       models.StringOrNil(entry.Genre),
		ReleaseDate: models.StringOrNil(entry.ReleaseDate),
		Language:    models.StringOrNil(entry.Language),
		Category:    categories.lookup(entry.CategoryID),
		IsNew:       models.Ptr(c.isNew(entry.addedAt(), now)),
		Seasons:     models.Ptr(0),
		Episodes:    models.Ptr(0),
		Items:       []models.SeriesItem{},
	}
	if rating, ok := entry.Rating.Float(); ok {
		s.Rating = models.Ptr(rating)
	}
	return s
}

// attachEpisodes fills Items, Seasons and Episodes from a season map
func attachEpisodes(s *models.Series, ep endpoint, seriesID, cover string, episodes seasonEpisodes) {
	items := make([]models.SeriesItem, 0)
	maxSeason := 0

	for _, season := range episodes.seasons() {
		if season > maxSeason {
			maxSeason = season
		}
		for _, e := range episodes[season] {
			num, _ := e.EpisodeNum.Int()

			name := strings.TrimSpace(e.Title)
			if name == "" {
				name = fmt.Sprintf("Episode %d", num)
			}

			ext := e.ContainerExtension
			if ext == "" {
				ext = defaultContainerExtension
			}

			thumb := e.Info.MovieImage
			if thumb == "" {
				thumb = cover
			}

			item := models.SeriesItem{
				ID:            fmt.Sprintf("%s_%d_%d", seriesID, season, num),
				SeriesID:      seriesID,
				SeasonNumber:  season,
				EpisodeNumber: num,
				Name:          name,
				StreamURL:     ep.streamURL("series", e.ID.String(), ext),
				ThumbnailURL:  models.StringOrNil(thumb),
				Description:   models.StringOrNil(e.Info.Plot),
				Added:         models.StringOrNil(e.Added.String()),
			}
			if secs, ok := e.Info.DurationSecs.Int(); ok && secs > 0 {
				item.Duration = models.Ptr(roundMinutes(secs))
			}
			items = append(items, item)
		}
	}

	s.Items = items
	s.Seasons = models.Ptr(maxSeason)
	s.Episodes = models.Ptr(len(items))
}

// isNew reports whether added falls within the new window of now. Future
// stamps count as new; missing or unparsable stamps do not.
func (c *Client) isNew(added FlexString, now time.Time) bool {
	t := parseTimestamp(added)
	if t == nil {
		return false
	}
	windowDays := int(c.cfg.NewWindow / (24 * time.Hour))
	days := int(math.Floor(now.Sub(*t).Hours() / 24))
	return days <= windowDays
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts Unix seconds, RFC3339 and "2006-01-02 15:04:05"
func parseTimestamp(v FlexString) *time.Time {
	s := v.String()
	if s == "" || s == "0" {
		return nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// parseDuration reads a movie duration as minutes, either a plain number of
// minutes or an "hh:mm:ss" / "mm:ss" clock
func parseDuration(v FlexString) (int, bool) {
	s := v.String()
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		total := 0
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return 0, false
			}
			total = total*60 + n
		}
		return roundMinutes(total), true
	}
	return v.Int()
}

// roundMinutes converts seconds to the nearest whole minute
func roundMinutes(secs int) int {
	return (secs + 30) / 60
}

// categoryIndex maps category_id to category name
type categoryIndex []category

func (idx categoryIndex) lookup(id FlexString) *string {
	key := id.String()
	if key == "" {
		return nil
	}
	for _, cat := range idx {
		if cat.CategoryID.String() == key {
			return models.StringOrNil(cat.CategoryName)
		}
	}
	return nil
}

// loadCategories fetches a category list, degrading to an empty index
func (c *Client) loadCategories(ctx context.Context, ep endpoint, action string) categoryIndex {
	list, err := fetchList[category](ctx, c, ep, action)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"action": action,
			"code":   apperrors.GetErrorCode(err),
		}).Warn("category list unavailable, continuing uncategorized")
		return nil
	}
	return list
}

func fetchList[T any](ctx context.Context, c *Client, ep endpoint, action string) ([]T, error) {
	rawURL := ep.apiURL(action, nil)
	body, err := c.fetcher.Get(ctx, rawURL)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"action": action,
			"url":    fetcher.RedactURL(rawURL),
		}).Error("xtream request failed", err)
		return []T{}, err
	}

	list, err := decodeList[T](body)
	if err != nil {
		return []T{}, apperrors.Wrap(err, apperrors.CodeMalformedData, "decode "+action).
			WithContext("service", "xtream")
	}
	return list, nil
}
