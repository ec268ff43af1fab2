package catalog

import (
	"context"

	apperrors "github.com/glefebvre/iptvplayer/internal/errors"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/glefebvre/iptvplayer/internal/models"
	"github.com/glefebvre/iptvplayer/internal/xtream"
	"golang.org/x/sync/errgroup"
)

// Service bundles the three repositories with the account-level operations
// that span them
type Service struct {
	Live   *LiveRepository
	Movies *MovieRepository
	Series *SeriesRepository

	sources Sources
	xtream  *xtream.Client
	m3u     *M3USource
	logger  *logger.Logger
}

// NewService wires repositories over an Xtream client and an M3U source
func NewService(xc *xtream.Client, m3u *M3USource, opts Options) *Service {
	var sources Sources
	if m3u != nil {
		sources.M3U = m3u
	}
	if xc != nil {
		sources.Xtream = xtream.NewSource(xc)
	}

	return &Service{
		Live:    NewLiveRepository(sources, opts),
		Movies:  NewMovieRepository(sources, opts),
		Series:  NewSeriesRepository(sources, opts),
		sources: sources,
		xtream:  xc,
		m3u:     m3u,
		logger:  opts.logger().Named("catalog"),
	}
}

// Categories returns the categories of one content kind
func (s *Service) Categories(ctx context.Context, acct models.Account, kind models.ContentKind) ([]string, error) {
	switch kind {
	case models.ContentKindLive:
		return s.Live.FetchCategories(ctx, acct)
	case models.ContentKindMovie:
		return s.Movies.FetchCategories(ctx, acct)
	case models.ContentKindSeries:
		return s.Series.FetchCategories(ctx, acct)
	default:
		return []string{}, apperrors.ValidationError("unknown content kind " + string(kind))
	}
}

// ProviderCategories returns the category list as the provider declares it,
// including categories with no content. M3U playlists declare none, so their
// categories are derived from the catalog.
func (s *Service) ProviderCategories(ctx context.Context, acct models.Account, kind models.ContentKind) ([]string, error) {
	if _, err := s.sources.For(acct); err != nil {
		return []string{}, err
	}
	if acct.Type == models.AccountTypeXtream && s.xtream != nil {
		return s.xtream.FetchCategories(ctx, acct, kind)
	}
	return s.Categories(ctx, acct, kind)
}

// ContentCounts returns live, movie and series totals. Counts that could
// not be determined are nil.
func (s *Service) ContentCounts(ctx context.Context, acct models.Account) (models.ContentCounts, error) {
	src, err := s.sources.For(acct)
	if err != nil {
		return models.ContentCounts{}, err
	}

	if counter, ok := src.(CountSource); ok {
		return counter.Counts(ctx, acct)
	}

	var counts models.ContentCounts
	var g errgroup.Group
	g.Go(func() error {
		if items, err := src.Live(ctx, acct); err == nil {
			counts.Live = models.Ptr(len(items))
		}
		return nil
	})
	g.Go(func() error {
		if items, err := src.Movies(ctx, acct); err == nil {
			counts.Movies = models.Ptr(len(items))
		}
		return nil
	})
	g.Go(func() error {
		if items, err := src.Series(ctx, acct); err == nil {
			counts.Series = models.Ptr(len(items))
		}
		return nil
	})
	_ = g.Wait()

	return counts, nil
}

// TestXtreamConnection reports whether Xtream credentials authenticate
func (s *Service) TestXtreamConnection(ctx context.Context, server, username, password string) bool {
	if s.xtream == nil {
		return false
	}
	return s.xtream.TestConnection(ctx, server, username, password)
}

// TestM3UConnection reports whether url serves an M3U playlist
func (s *Service) TestM3UConnection(ctx context.Context, url string) bool {
	if s.m3u == nil {
		return false
	}
	return s.m3u.TestConnection(ctx, url)
}

// TestAccount checks an account against its provider
func (s *Service) TestAccount(ctx context.Context, acct models.Account) (bool, error) {
	if err := acct.Validate(); err != nil {
		return false, apperrors.InvalidAccountError(acct.ID, err.Error())
	}

	var ok bool
	switch acct.Type {
	case models.AccountTypeXtream:
		ok = s.TestXtreamConnection(ctx, acct.Xtream.ServerURL, acct.Xtream.Username, acct.Xtream.Password)
	case models.AccountTypeM3U:
		ok = s.TestM3UConnection(ctx, acct.M3U.URL)
	}

	s.logger.WithFields(map[string]interface{}{
		"account_id": acct.ID,
		"type":       acct.Type,
		"ok":         ok,
	}).Info("account connection tested")
	return ok, nil
}

// AccountInfo returns the Xtream login payload of an account
func (s *Service) AccountInfo(ctx context.Context, acct models.Account) (*xtream.AccountInfo, error) {
	if _, err := s.sources.For(acct); err != nil {
		return nil, err
	}
	if acct.Type != models.AccountTypeXtream {
		return nil, apperrors.ValidationError("account info is only available for xtream accounts")
	}
	if s.xtream == nil {
		return nil, apperrors.ConfigError("xtream client not configured", nil)
	}
	return s.xtream.AccountInfo(ctx, acct)
}
