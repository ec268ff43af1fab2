package fallback

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	ds, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, ds.LiveChannels())
	assert.NotEmpty(t, ds.MovieList())
	require.NotEmpty(t, ds.SeriesList())

	for _, s := range ds.SeriesList() {
		maxSeason := 0
		for _, item := range s.Items {
			assert.Equal(t, s.ID, item.SeriesID)
			if item.SeasonNumber > maxSeason {
				maxSeason = item.SeasonNumber
			}
		}
		assert.Equal(t, maxSeason, *s.Seasons)
		assert.Equal(t, len(s.Items), *s.Episodes)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	ds, err := Default()
	require.NoError(t, err)

	channels := ds.LiveChannels()
	channels[0].Name = "changed"
	assert.NotEqual(t, "changed", ds.LiveChannels()[0].Name)

	series := ds.SeriesList()
	series[0].Items[0].Name = "changed"
	assert.NotEqual(t, "changed", ds.SeriesList()[0].Items[0].Name)
}

func TestNilDataset(t *testing.T) {
	var ds *Dataset
	assert.Empty(t, ds.LiveChannels())
	assert.NotNil(t, ds.MovieList())
	assert.NotNil(t, ds.SeriesList())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fallback.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
channels:
  - id: "c1"
    name: "Only Channel"
    stream_url: "http://x/c1.ts"
`), 0o644))

	ds, err := Load(path)
	require.NoError(t, err)
	require.Len(t, ds.LiveChannels(), 1)
	assert.Equal(t, "Only Channel", ds.LiveChannels()[0].Name)
	assert.Empty(t, ds.MovieList())
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("channels: [ {id: \"\", name: \"x\"} ]"), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorContains(t, err, "id and name are required")

	broken := filepath.Join(dir, "broken.yml")
	require.NoError(t, os.WriteFile(broken, []byte("channels: {"), 0o644))
	_, err = LoadFile(broken)
	assert.Error(t, err)
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	ds, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, ds.MovieList())
}
