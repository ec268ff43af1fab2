package models

// ContentKind names the three content domains
type ContentKind string

const (
	ContentKindLive   ContentKind = "live"
	ContentKindMovie  ContentKind = "movie"
	ContentKindSeries ContentKind = "series"
)

// LiveChannel represents a live TV channel
type LiveChannel struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	StreamURL   string  `json:"stream_url" yaml:"stream_url"`
	LogoURL     *string `json:"logo_url,omitempty" yaml:"logo_url,omitempty"`
	BannerURL   *string `json:"banner_url,omitempty" yaml:"banner_url,omitempty"`
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
	EPGID       *string `json:"epg_id,omitempty" yaml:"epg_id,omitempty"`
	Category    *string `json:"category,omitempty" yaml:"category,omitempty"`
	GroupTitle  *string `json:"group_title,omitempty" yaml:"group_title,omitempty"`
}

// Subtitle is an external subtitle track for a movie
type Subtitle struct {
	Language string `json:"language" yaml:"language"`
	URL      string `json:"url" yaml:"url"`
}

// Movie represents a video-on-demand title
type Movie struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	StreamURL   string     `json:"stream_url" yaml:"stream_url"`
	PosterURL   *string    `json:"poster_url,omitempty" yaml:"poster_url,omitempty"`
	Description *string    `json:"description,omitempty" yaml:"description,omitempty"`
	Rating      *float64   `json:"rating,omitempty" yaml:"rating,omitempty"`
	ReleaseDate *string    `json:"release_date,omitempty" yaml:"release_date,omitempty"`
	Duration    *int       `json:"duration,omitempty" yaml:"duration,omitempty"` // minutes
	Genre       *string    `json:"genre,omitempty" yaml:"genre,omitempty"`
	Category    *string    `json:"category,omitempty" yaml:"category,omitempty"`
	IsNew       *bool      `json:"is_new,omitempty" yaml:"is_new,omitempty"`
	Language    *string    `json:"language,omitempty" yaml:"language,omitempty"`
	Year        *string    `json:"year,omitempty" yaml:"year,omitempty"`
	Genres      []string   `json:"genres,omitempty" yaml:"genres,omitempty"`
	Subtitles   []Subtitle `json:"subtitles,omitempty" yaml:"subtitles,omitempty"`
}

// SeriesItem represents a single episode of a series
type SeriesItem struct {
	ID            string  `json:"id" yaml:"id"`
	SeriesID      string  `json:"series_id" yaml:"series_id"`
	SeasonNumber  int     `json:"season_number" yaml:"season_number"`
	EpisodeNumber int     `json:"episode_number" yaml:"episode_number"`
	Name          string  `json:"name" yaml:"name"`
	StreamURL     string  `json:"stream_url" yaml:"stream_url"`
	ThumbnailURL  *string `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
	Description   *string `json:"description,omitempty" yaml:"description,omitempty"`
	Duration      *int    `json:"duration,omitempty" yaml:"duration,omitempty"` // minutes
	Added         *string `json:"added,omitempty" yaml:"added,omitempty"`
}

// Series represents a TV show together with its episodes
type Series struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	PosterURL   *string      `json:"poster_url,omitempty" yaml:"poster_url,omitempty"`
	Description *string      `json:"description,omitempty" yaml:"description,omitempty"`
	Rating      *float64     `json:"rating,omitempty" yaml:"rating,omitempty"`
	ReleaseDate *string      `json:"release_date,omitempty" yaml:"release_date,omitempty"`
	Genre       *string      `json:"genre,omitempty" yaml:"genre,omitempty"`
	Language    *string      `json:"language,omitempty" yaml:"language,omitempty"`
	Seasons     *int         `json:"seasons,omitempty" yaml:"seasons,omitempty"`
	Episodes    *int         `json:"episodes,omitempty" yaml:"episodes,omitempty"`
	Category    *string      `json:"category,omitempty" yaml:"category,omitempty"`
	IsNew       *bool        `json:"is_new,omitempty" yaml:"is_new,omitempty"`
	Items       []SeriesItem `json:"series_items,omitempty" yaml:"series_items,omitempty"`
}

// ContentCounts holds per-domain totals for an account.
// A nil count means the total could not be determined.
type ContentCounts struct {
	Live   *int `json:"live,omitempty"`
	Movies *int `json:"movies,omitempty"`
	Series *int `json:"series,omitempty"`
}
