package classifier

import (
	"regexp"
	"strconv"
	"strings"
)

// Episode is the result of matching a playlist title against the
// season/episode pattern
type Episode struct {
	SeriesName string
	Season     int
	Episode    int
}

// Classifier holds the precompiled title heuristics used by the M3U parser
type Classifier struct {
	episodePattern *regexp.Regexp
	yearPattern    *regexp.Regexp
	slugPattern    *regexp.Regexp
}

// New creates a new Classifier with precompiled regex patterns
func New() *Classifier {
	return &Classifier{
		// "Name S01E02", "Name - S1E2", "Name S01 E02"
		episodePattern: regexp.MustCompile(`(?i)^(.*?)(?:[\s-]+)?S(\d+)(?:E|\s+E)(\d+)`),
		yearPattern:    regexp.MustCompile(`\((\d{4})\)`),
		slugPattern:    regexp.MustCompile(`[^a-zA-Z0-9]`),
	}
}

// MatchEpisode extracts series name, season and episode from a title.
// Titles without the S<n>E<n> marker are not episodes.
func (c *Classifier) MatchEpisode(title string) (Episode, bool) {
	matches := c.episodePattern.FindStringSubmatch(strings.TrimSpace(title))
	if len(matches) < 4 {
		return Episode{}, false
	}

	season, err := strconv.Atoi(matches[2])
	if err != nil {
		return Episode{}, false
	}
	episode, err := strconv.Atoi(matches[3])
	if err != nil {
		return Episode{}, false
	}

	return Episode{
		SeriesName: strings.TrimSpace(matches[1]),
		Season:     season,
		Episode:    episode,
	}, true
}

// SeriesID derives the grouping key for a series name: "series_" followed by
// the lowercased name with every non-alphanumeric rune replaced by "_".
// Names differing only in punctuation share an id.
func (c *Classifier) SeriesID(name string) string {
	return "series_" + strings.ToLower(c.slugPattern.ReplaceAllString(name, "_"))
}

// IsMovieGroup reports whether a group-title marks video-on-demand content
func (c *Classifier) IsMovieGroup(groupTitle string) bool {
	g := strings.ToLower(groupTitle)
	return strings.Contains(g, "movie") || strings.Contains(g, "vod")
}

// ExtractYear returns the first "(yyyy)" in a title
func (c *Classifier) ExtractYear(title string) *string {
	matches := c.yearPattern.FindStringSubmatch(title)
	if len(matches) < 2 {
		return nil
	}
	year := matches[1]
	return &year
}
