package parser

import (
	"bufio"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glefebvre/iptvplayer/internal/classifier"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/glefebvre/iptvplayer/internal/models"
)

const maxLineBytes = 1 << 20

var (
	extinfPattern     = regexp.MustCompile(`^#EXTINF:\s*(-?\d+(?:\.\d+)?)`)
	tvgIDPattern      = regexp.MustCompile(`tvg-id="([^"]*)"`)
	tvgNamePattern    = regexp.MustCompile(`tvg-name="([^"]*)"`)
	tvgLogoPattern    = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	groupTitlePattern = regexp.MustCompile(`group-title="([^"]*)"`)
)

// M3UEntry is one EXTINF record closed by its URL line
type M3UEntry struct {
	Duration   float64
	TvgID      string
	TvgName    string
	TvgLogo    string
	GroupTitle string
	Title      string
	URL        string
	Line       int
}

// Name is tvg-name when present, else the text after the last comma
func (e M3UEntry) Name() string {
	if e.TvgName != "" {
		return e.TvgName
	}
	return e.Title
}

// ParseStats tracks parsing statistics for the last call
type ParseStats struct {
	TotalLines       int
	ParsedEntries    int
	MalformedEntries int
	SkippedEntries   int
	Duration         time.Duration
	ErrorsByType     map[string]int
}

// Result holds the three content views of one playlist
type Result struct {
	Channels []models.LiveChannel
	Movies   []models.Movie
	Series   []models.Series
}

// Parser converts M3U playlist text into content models. It never fails:
// malformed records are dropped and counted in Stats.
type Parser struct {
	logger     *logger.Logger
	classifier *classifier.Classifier

	mu    sync.Mutex
	stats ParseStats
}

// Option configures a Parser
type Option func(*Parser)

// WithLogger sets the logger used for malformed-record warnings
func WithLogger(l *logger.Logger) Option {
	return func(p *Parser) {
		p.logger = l
	}
}

// New creates a parser
func New(opts ...Option) *Parser {
	p := &Parser{
		logger:     logger.AppLogger(),
		classifier: classifier.New(),
		stats:      ParseStats{ErrorsByType: map[string]int{}},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats returns the statistics of the most recent parse
func (p *Parser) Stats() ParseStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.stats
	out.ErrorsByType = make(map[string]int, len(p.stats.ErrorsByType))
	for k, v := range p.stats.ErrorsByType {
		out.ErrorsByType[k] = v
	}
	return out
}

// ParseChannels returns every EXTINF/URL pair as a live channel with a
// sequential id starting at "1"
func (p *Parser) ParseChannels(text string) []models.LiveChannel {
	entries, stats := p.scan(text)
	channels := p.channels(entries)
	p.finish(stats, 0, "channels", len(channels))
	return channels
}

// ParseMovies returns the entries whose group-title marks VOD content
func (p *Parser) ParseMovies(text string) []models.Movie {
	entries, stats := p.scan(text)
	movies := p.movies(entries)
	p.finish(stats, len(entries)-len(movies), "movies", len(movies))
	return movies
}

// ParseSeries groups S<n>E<n> titles into series, in first-seen order
func (p *Parser) ParseSeries(text string) []models.Series {
	entries, stats := p.scan(text)
	series, episodes := p.series(entries)
	p.finish(stats, len(entries)-episodes, "series", len(series))
	return series
}

// ParseAll builds the three views from a single scan
func (p *Parser) ParseAll(text string) Result {
	entries, stats := p.scan(text)
	res := Result{
		Channels: p.channels(entries),
		Movies:   p.movies(entries),
	}
	res.Series, _ = p.series(entries)
	p.finish(stats, 0, "all", len(res.Channels))
	return res
}

func (p *Parser) finish(stats ParseStats, skipped int, view string, produced int) {
	stats.SkippedEntries = skipped

	p.mu.Lock()
	p.stats = stats
	p.mu.Unlock()

	p.logger.WithFields(map[string]interface{}{
		"view":        view,
		"produced":    produced,
		"total_lines": stats.TotalLines,
		"parsed":      stats.ParsedEntries,
		"malformed":   stats.MalformedEntries,
		"skipped":     skipped,
		"duration_ms": stats.Duration.Milliseconds(),
	}).Debug("playlist parsed")
}

// scan performs the single forward pass shared by every view
func (p *Parser) scan(text string) ([]M3UEntry, ParseStats) {
	start := time.Now()
	stats := ParseStats{ErrorsByType: map[string]int{}}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var entries []M3UEntry
	var pending *M3UEntry
	sawContent := false
	hasHeader := false

	malformed := func(kind string, line int, name string) {
		stats.MalformedEntries++
		stats.ErrorsByType[kind]++
		p.logger.WithFields(map[string]interface{}{
			"line_number": line,
			"name":        name,
			"reason":      kind,
		}).Warn("skipping malformed playlist record")
	}

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		stats.TotalLines++
		line := strings.TrimSpace(scanner.Text())
		if lineNumber == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" {
			continue
		}

		if !sawContent {
			sawContent = true
			if strings.HasPrefix(line, "#EXTM3U") {
				hasHeader = true
				continue
			}
		}

		switch {
		case strings.HasPrefix(line, "#EXTINF"):
			if pending != nil {
				malformed("missing_url", pending.Line, pending.Name())
			}
			pending = parseExtinf(line, lineNumber)

		case strings.HasPrefix(line, "#EXTGRP:"):
			if pending != nil && pending.GroupTitle == "" {
				pending.GroupTitle = strings.TrimSpace(strings.TrimPrefix(line, "#EXTGRP:"))
			}

		case strings.HasPrefix(line, "#"):
			continue

		case pending == nil:
			malformed("orphan_url", lineNumber, "")

		default:
			pending.URL = line
			if pending.Name() == "" {
				malformed("missing_name", pending.Line, "")
			} else {
				entries = append(entries, *pending)
				stats.ParsedEntries++
			}
			pending = nil
		}
	}

	if pending != nil {
		malformed("missing_url", pending.Line, pending.Name())
	}

	if err := scanner.Err(); err != nil {
		stats.ErrorsByType["read_error"]++
		p.logger.WithFields(map[string]interface{}{
			"line_number": lineNumber,
		}).Error("stopped reading playlist", err)
	}

	if !hasHeader {
		stats.ErrorsByType["missing_header"]++
		p.logger.Warn("playlist missing #EXTM3U header")
	}

	stats.Duration = time.Since(start)
	return entries, stats
}

func parseExtinf(line string, lineNumber int) *M3UEntry {
	entry := &M3UEntry{Line: lineNumber}

	if m := extinfPattern.FindStringSubmatch(line); len(m) > 1 {
		entry.Duration, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := tvgIDPattern.FindStringSubmatch(line); len(m) > 1 {
		entry.TvgID = strings.TrimSpace(m[1])
	}
	if m := tvgNamePattern.FindStringSubmatch(line); len(m) > 1 {
		entry.TvgName = strings.TrimSpace(m[1])
	}
	if m := tvgLogoPattern.FindStringSubmatch(line); len(m) > 1 {
		entry.TvgLogo = strings.TrimSpace(m[1])
	}
	if m := groupTitlePattern.FindStringSubmatch(line); len(m) > 1 {
		entry.GroupTitle = strings.TrimSpace(m[1])
	}
	if idx := strings.LastIndex(line, ","); idx != -1 {
		entry.Title = strings.TrimSpace(line[idx+1:])
	}

	return entry
}

func (p *Parser) channels(entries []M3UEntry) []models.LiveChannel {
	channels := make([]models.LiveChannel, 0, len(entries))
	for i, e := range entries {
		channels = append(channels, models.LiveChannel{
			ID:         strconv.Itoa(i + 1),
			Name:       e.Name(),
			StreamURL:  e.URL,
			LogoURL:    models.StringOrNil(e.TvgLogo),
			EPGID:      models.StringOrNil(e.TvgID),
			Category:   models.StringOrNil(e.GroupTitle),
			GroupTitle: models.StringOrNil(e.GroupTitle),
		})
	}
	return channels
}

func (p *Parser) movies(entries []M3UEntry) []models.Movie {
	movies := make([]models.Movie, 0)
	for _, e := range entries {
		if !p.classifier.IsMovieGroup(e.GroupTitle) {
			continue
		}

		movie := models.Movie{
			ID:        fmt.Sprintf("m3u-%d", len(movies)+1),
			Name:      e.Name(),
			StreamURL: e.URL,
			PosterURL: models.StringOrNil(e.TvgLogo),
			Category:  models.StringOrNil(e.GroupTitle),
			Year:      p.classifier.ExtractYear(e.Name()),
		}
		if e.Duration > 0 {
			movie.Duration = models.Ptr(int(math.Round(e.Duration / 60)))
		}
		movies = append(movies, movie)
	}
	return movies
}

// series returns the grouped series and the number of episode entries used
func (p *Parser) series(entries []M3UEntry) ([]models.Series, int) {
	var order []string
	byID := make(map[string]*models.Series)
	episodes := 0

	for _, e := range entries {
		title := e.Name()
		ep, ok := p.classifier.MatchEpisode(title)
		if !ok {
			continue
		}
		episodes++

		id := p.classifier.SeriesID(ep.SeriesName)
		s, exists := byID[id]
		if !exists {
			s = &models.Series{
				ID:       id,
				Name:     ep.SeriesName,
				Category: models.StringOrNil(e.GroupTitle),
				Seasons:  models.Ptr(0),
				Episodes: models.Ptr(0),
				Items:    []models.SeriesItem{},
			}
			byID[id] = s
			order = append(order, id)
		}

		if ep.Season > *s.Seasons {
			s.Seasons = models.Ptr(ep.Season)
		}
		if s.PosterURL == nil && e.TvgLogo != "" {
			s.PosterURL = models.Ptr(e.TvgLogo)
		}
		if s.Category == nil && e.GroupTitle != "" {
			s.Category = models.Ptr(e.GroupTitle)
		}

		s.Items = append(s.Items, models.SeriesItem{
			ID:            fmt.Sprintf("%s_S%d_E%d", id, ep.Season, ep.Episode),
			SeriesID:      id,
			SeasonNumber:  ep.Season,
			EpisodeNumber: ep.Episode,
			Name:          title,
			StreamURL:     e.URL,
			ThumbnailURL:  models.StringOrNil(e.TvgLogo),
		})
		s.Episodes = models.Ptr(len(s.Items))
	}

	out := make([]models.Series, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, episodes
}
