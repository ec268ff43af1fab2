package fallback

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"github.com/glefebvre/iptvplayer/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed dataset.yaml
var embeddedDataset []byte

// Dataset is the catalog served in place of an unreachable source
type Dataset struct {
	Channels []models.LiveChannel `yaml:"channels"`
	Movies   []models.Movie       `yaml:"movies"`
	Series   []models.Series      `yaml:"series"`
}

// Parse decodes a YAML dataset
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse fallback dataset: %w", err)
	}
	if err := ds.validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Default returns the built-in sample dataset
func Default() (*Dataset, error) {
	return Parse(embeddedDataset)
}

// LoadFile reads a dataset from a YAML file
func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback dataset %s: %w", path, err)
	}
	return Parse(data)
}

// Load reads path, or returns the built-in dataset when path is empty
func Load(path string) (*Dataset, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

func (d *Dataset) validate() error {
	for i, c := range d.Channels {
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("fallback channel %d: id and name are required", i)
		}
	}
	for i, m := range d.Movies {
		if m.ID == "" || m.Name == "" {
			return fmt.Errorf("fallback movie %d: id and name are required", i)
		}
	}
	for i, s := range d.Series {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("fallback series %d: id and name are required", i)
		}
	}
	return nil
}

// LiveChannels returns a copy of the channels. A nil dataset yields none.
func (d *Dataset) LiveChannels() []models.LiveChannel {
	if d == nil {
		return []models.LiveChannel{}
	}
	return cloneOrEmpty(d.Channels)
}

// MovieList returns a copy of the movies
func (d *Dataset) MovieList() []models.Movie {
	if d == nil {
		return []models.Movie{}
	}
	return cloneOrEmpty(d.Movies)
}

// SeriesList returns a copy of the series
func (d *Dataset) SeriesList() []models.Series {
	if d == nil {
		return []models.Series{}
	}
	out := make([]models.Series, len(d.Series))
	for i, s := range d.Series {
		s.Items = slices.Clone(s.Items)
		out[i] = s
	}
	return out
}

func cloneOrEmpty[T any](in []T) []T {
	if len(in) == 0 {
		return []T{}
	}
	return slices.Clone(in)
}
