package xtream

import (
	"context"

	"github.com/glefebvre/iptvplayer/internal/models"
)

// Source adapts a Client to the content source interface used by the
// repositories
type Source struct {
	client *Client
}

// NewSource wraps a client as a content source
func NewSource(c *Client) *Source {
	return &Source{client: c}
}

// Client returns the wrapped client
func (s *Source) Client() *Client {
	return s.client
}

// Live returns the account's live channels
func (s *Source) Live(ctx context.Context, acct models.Account) ([]models.LiveChannel, error) {
	return s.client.FetchLive(ctx, acct)
}

// Movies returns the account's VOD catalog
func (s *Source) Movies(ctx context.Context, acct models.Account) ([]models.Movie, error) {
	return s.client.FetchMovies(ctx, acct)
}

// Series returns the account's series with episodes
func (s *Source) Series(ctx context.Context, acct models.Account) ([]models.Series, error) {
	return s.client.FetchSeries(ctx, acct)
}

// SeriesInfo returns one series with its episodes
func (s *Source) SeriesInfo(ctx context.Context, acct models.Account, seriesID string) (models.Series, error) {
	return s.client.FetchSeriesInfo(ctx, acct, seriesID)
}

// Counts returns live, movie and series totals
func (s *Source) Counts(ctx context.Context, acct models.Account) (models.ContentCounts, error) {
	return s.client.ContentCounts(ctx, acct)
}
