package catalog

import (
	"context"

	apperrors "github.com/glefebvre/iptvplayer/internal/errors"
	"github.com/glefebvre/iptvplayer/internal/models"
)

// ContentSource produces normalized content for one kind of account
type ContentSource interface {
	Live(ctx context.Context, acct models.Account) ([]models.LiveChannel, error)
	Movies(ctx context.Context, acct models.Account) ([]models.Movie, error)
	Series(ctx context.Context, acct models.Account) ([]models.Series, error)
}

// SeriesDetailSource is implemented by sources that can load one series
// without listing the whole catalog
type SeriesDetailSource interface {
	SeriesInfo(ctx context.Context, acct models.Account, seriesID string) (models.Series, error)
}

// CountSource is implemented by sources with a cheaper way to count content
// than fetching it
type CountSource interface {
	Counts(ctx context.Context, acct models.Account) (models.ContentCounts, error)
}

// Sources selects a ContentSource by account type
type Sources struct {
	Xtream ContentSource
	M3U    ContentSource
}

// For validates the account and returns the source for its type. Malformed
// accounts are caller errors and come back as InvalidAccount.
func (s Sources) For(acct models.Account) (ContentSource, error) {
	if err := acct.Validate(); err != nil {
		return nil, apperrors.InvalidAccountError(acct.ID, err.Error())
	}

	var src ContentSource
	switch acct.Type {
	case models.AccountTypeXtream:
		src = s.Xtream
	case models.AccountTypeM3U:
		src = s.M3U
	}
	if src == nil {
		return nil, apperrors.ConfigError("no content source configured for "+string(acct.Type)+" accounts", nil)
	}
	return src, nil
}
