package xtream

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Xtream panels disagree on whether ids, ratings and flags are JSON numbers
// or strings, and send [] where an object is expected when a field is empty.
// The Flex types below accept any of those shapes.

// FlexString decodes a JSON string, number or bool into its text form.
// null decodes to "".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case data[0] == '[' || data[0] == '{':
		*f = ""
	default:
		*f = FlexString(data)
	}
	return nil
}

func (f FlexString) String() string { return strings.TrimSpace(string(f)) }

// Int parses the value as an integer, accepting "12" and "12.0"
func (f FlexString) Int() (int, bool) {
	s := f.String()
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return int(v), true
	}
	return 0, false
}

// Float parses the value as a float
func (f FlexString) Float() (float64, bool) {
	s := f.String()
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

type category struct {
	CategoryID   FlexString `json:"category_id"`
	CategoryName string     `json:"category_name"`
}

type liveStream struct {
	StreamID     FlexString `json:"stream_id"`
	Name         FlexString `json:"name"`
	StreamIcon   string     `json:"stream_icon"`
	EPGChannelID FlexString `json:"epg_channel_id"`
	CategoryID   FlexString `json:"category_id"`
}

type vodStream struct {
	StreamID           FlexString `json:"stream_id"`
	Name               FlexString `json:"name"`
	StreamIcon         string     `json:"stream_icon"`
	ContainerExtension string     `json:"container_extension"`
	Added              FlexString `json:"added"`
	CategoryID         FlexString `json:"category_id"`
	Rating             FlexString `json:"rating"`
	Plot               string     `json:"plot"`
	Genre              string     `json:"genre"`
	ReleaseDate        string     `json:"releaseDate"`
	Duration           FlexString `json:"duration"`
	Language           string     `json:"language"`
	Year               FlexString `json:"year"`
}

type seriesEntry struct {
	SeriesID     FlexString `json:"series_id"`
	Name         FlexString `json:"name"`
	Cover        string     `json:"cover"`
	Plot         string     `json:"plot"`
	Genre        string     `json:"genre"`
	ReleaseDate  string     `json:"releaseDate"`
	Rating       FlexString `json:"rating"`
	CategoryID   FlexString `json:"category_id"`
	Added        FlexString `json:"added"`
	LastModified FlexString `json:"last_modified"`
	Language     string     `json:"language"`
}

// addedAt prefers the explicit added stamp over last_modified
func (s seriesEntry) addedAt() FlexString {
	if s.Added.String() != "" {
		return s.Added
	}
	return s.LastModified
}

type episodeInfo struct {
	MovieImage   string     `json:"movie_image"`
	Plot         string     `json:"plot"`
	DurationSecs FlexString `json:"duration_secs"`
}

// UnmarshalJSON tolerates the empty array some panels send instead of {}
func (e *episodeInfo) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*e = episodeInfo{}
		return nil
	}
	type plain episodeInfo
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = episodeInfo(p)
	return nil
}

type episode struct {
	ID                 FlexString  `json:"id"`
	EpisodeNum         FlexString  `json:"episode_num"`
	Season             FlexString  `json:"season"`
	Title              string      `json:"title"`
	ContainerExtension string      `json:"container_extension"`
	Added              FlexString  `json:"added"`
	Info               episodeInfo `json:"info"`
}

// seasonEpisodes maps season number to its episodes
type seasonEpisodes map[int][]episode

// UnmarshalJSON accepts {"1":[...],"2":[...]}, [[...],[...]] and []
func (s *seasonEpisodes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	out := seasonEpisodes{}

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
	case data[0] == '{':
		var raw map[string][]episode
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		for key, eps := range raw {
			season, err := strconv.Atoi(strings.TrimSpace(key))
			if err != nil {
				continue
			}
			out[season] = append(out[season], eps...)
		}
	case data[0] == '[':
		var raw [][]episode
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		for i, eps := range raw {
			for _, ep := range eps {
				season, ok := ep.Season.Int()
				if !ok {
					season = i + 1
				}
				out[season] = append(out[season], ep)
			}
		}
	}

	*s = out
	return nil
}

// seasons returns the season numbers in ascending order
func (s seasonEpisodes) seasons() []int {
	keys := make([]int, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

type seriesInfoMeta struct {
	Name        FlexString `json:"name"`
	Cover       string     `json:"cover"`
	Plot        string     `json:"plot"`
	Genre       string     `json:"genre"`
	ReleaseDate string     `json:"releaseDate"`
	Rating      FlexString `json:"rating"`
	CategoryID  FlexString `json:"category_id"`
}

// UnmarshalJSON tolerates an empty array in place of the info object
func (m *seriesInfoMeta) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*m = seriesInfoMeta{}
		return nil
	}
	type plain seriesInfoMeta
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = seriesInfoMeta(p)
	return nil
}

type seriesInfo struct {
	Info     seriesInfoMeta `json:"info"`
	Episodes seasonEpisodes `json:"episodes"`
}

type userInfo struct {
	Auth                 FlexString `json:"auth"`
	Status               string     `json:"status"`
	Username             string     `json:"username"`
	Message              string     `json:"message"`
	ExpDate              FlexString `json:"exp_date"`
	IsTrial              FlexString `json:"is_trial"`
	ActiveCons           FlexString `json:"active_cons"`
	CreatedAt            FlexString `json:"created_at"`
	MaxConnections       FlexString `json:"max_connections"`
	AllowedOutputFormats []string   `json:"allowed_output_formats"`
}

type serverInfo struct {
	URL            string     `json:"url"`
	Port           FlexString `json:"port"`
	HTTPSPort      FlexString `json:"https_port"`
	ServerProtocol string     `json:"server_protocol"`
	Timezone       string     `json:"timezone"`
}

type loginResponse struct {
	UserInfo   userInfo   `json:"user_info"`
	ServerInfo serverInfo `json:"server_info"`
}

// decodeList decodes a JSON array, treating null and {} (sent by some panels
// for empty catalogs) as an empty list
func decodeList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte("{}")) {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return []T{}, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
