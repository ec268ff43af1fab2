package catalog

import (
	"context"

	apperrors "github.com/glefebvre/iptvplayer/internal/errors"
	"github.com/glefebvre/iptvplayer/internal/fallback"
	"github.com/glefebvre/iptvplayer/internal/filter"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/glefebvre/iptvplayer/internal/models"
)

// Options configures repository failure handling and catalog narrowing
type Options struct {
	// Fallback is served when the source fails and EnableFallback is set
	Fallback       *fallback.Dataset
	EnableFallback bool

	// Rules drop entries by group title or name after normalization
	Rules *filter.Rules

	Logger *logger.Logger
}

func (o Options) logger() *logger.Logger {
	if o.Logger == nil {
		return logger.AppLogger()
	}
	return o.Logger
}

// repository holds the dispatch and fallback logic shared by the three
// content repositories
type repository[T filter.Item] struct {
	kind     models.ContentKind
	sources  Sources
	opts     Options
	logger   *logger.Logger
	load     func(ContentSource, context.Context, models.Account) ([]T, error)
	fallback func(*fallback.Dataset) []T
}

func newRepository[T filter.Item](
	kind models.ContentKind,
	sources Sources,
	opts Options,
	load func(ContentSource, context.Context, models.Account) ([]T, error),
	fb func(*fallback.Dataset) []T,
) *repository[T] {
	return &repository[T]{
		kind:     kind,
		sources:  sources,
		opts:     opts,
		logger:   opts.logger().Named("catalog"),
		load:     load,
		fallback: fb,
	}
}

// Fetch returns the account's catalog. Invalid accounts fail immediately;
// any other source failure serves the fallback dataset when enabled.
func (r *repository[T]) Fetch(ctx context.Context, acct models.Account) ([]T, error) {
	src, err := r.sources.For(acct)
	if err != nil {
		return []T{}, err
	}

	items, err := r.load(src, ctx, acct)
	if err != nil {
		return r.degrade(acct, err)
	}

	kept := filter.Keep(items, r.opts.Rules)
	r.logger.WithFields(map[string]interface{}{
		"account_id": acct.ID,
		"kind":       r.kind,
		"fetched":    len(items),
		"kept":       len(kept),
	}).Debug("catalog fetched")

	return kept, nil
}

// FetchCategories returns the distinct categories of the fetched catalog,
// sorted ascending
func (r *repository[T]) FetchCategories(ctx context.Context, acct models.Account) ([]string, error) {
	items, err := r.Fetch(ctx, acct)
	if err != nil {
		return []string{}, err
	}
	return filter.Categories(items), nil
}

func (r *repository[T]) degrade(acct models.Account, err error) ([]T, error) {
	if apperrors.IsInvalidAccount(err) {
		return []T{}, err
	}

	fields := map[string]interface{}{
		"account_id": acct.ID,
		"kind":       r.kind,
		"code":       apperrors.GetErrorCode(err),
	}

	if !r.opts.EnableFallback || r.opts.Fallback == nil {
		r.logger.WithFields(fields).Error("catalog fetch failed", err)
		return []T{}, err
	}

	r.logger.WithFields(fields).Warn("catalog fetch failed, serving fallback dataset")
	return r.fallback(r.opts.Fallback), nil
}

// LiveRepository serves live channels
type LiveRepository struct {
	*repository[models.LiveChannel]
}

// NewLiveRepository creates a live channel repository
func NewLiveRepository(sources Sources, opts Options) *LiveRepository {
	return &LiveRepository{newRepository(models.ContentKindLive, sources, opts,
		ContentSource.Live, (*fallback.Dataset).LiveChannels)}
}

// MovieRepository serves the VOD catalog
type MovieRepository struct {
	*repository[models.Movie]
}

// NewMovieRepository creates a movie repository
func NewMovieRepository(sources Sources, opts Options) *MovieRepository {
	return &MovieRepository{newRepository(models.ContentKindMovie, sources, opts,
		ContentSource.Movies, (*fallback.Dataset).MovieList)}
}

// SeriesRepository serves series and their episodes
type SeriesRepository struct {
	*repository[models.Series]
}

// NewSeriesRepository creates a series repository
func NewSeriesRepository(sources Sources, opts Options) *SeriesRepository {
	return &SeriesRepository{newRepository(models.ContentKindSeries, sources, opts,
		ContentSource.Series, (*fallback.Dataset).SeriesList)}
}

// FetchSeriesInfo returns one series with its episodes. Sources without a
// detail call are served from the full listing.
func (r *SeriesRepository) FetchSeriesInfo(ctx context.Context, acct models.Account, seriesID string) (models.Series, error) {
	src, err := r.sources.For(acct)
	if err != nil {
		return models.Series{}, err
	}

	if detail, ok := src.(SeriesDetailSource); ok {
		series, err := detail.SeriesInfo(ctx, acct, seriesID)
		if err == nil {
			return series, nil
		}
		list, recErr := r.degrade(acct, err)
		if recErr != nil {
			return models.Series{}, recErr
		}
		return findSeries(list, seriesID)
	}

	list, err := r.Fetch(ctx, acct)
	if err != nil {
		return models.Series{}, err
	}
	return findSeries(list, seriesID)
}

func findSeries(list []models.Series, seriesID string) (models.Series, error) {
	for _, s := range list {
		if s.ID == seriesID {
			return s, nil
		}
	}
	return models.Series{}, apperrors.NotFoundError("series", seriesID)
}
