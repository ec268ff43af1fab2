package catalog

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/glefebvre/iptvplayer/internal/errors"
	"github.com/glefebvre/iptvplayer/internal/fetcher"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/glefebvre/iptvplayer/internal/models"
	"github.com/glefebvre/iptvplayer/internal/parser"
)

const connectionTestTimeout = 10 * time.Second

// M3USource downloads an account's playlist and parses the requested view
type M3USource struct {
	fetcher *fetcher.Fetcher
	parser  *parser.Parser
	logger  *logger.Logger
}

// NewM3USource creates an M3U content source
func NewM3USource(f *fetcher.Fetcher, p *parser.Parser, log *logger.Logger) *M3USource {
	if log == nil {
		log = logger.AppLogger()
	}
	if p == nil {
		p = parser.New(parser.WithLogger(log))
	}
	return &M3USource{
		fetcher: f,
		parser:  p,
		logger:  log.Named("m3u"),
	}
}

func (s *M3USource) playlist(ctx context.Context, acct models.Account) (string, error) {
	if acct.Type != models.AccountTypeM3U || acct.M3U == nil {
		return "", apperrors.InvalidAccountError(acct.ID, "not an m3u account")
	}

	text, err := s.fetcher.GetPlaylist(ctx, acct.M3U.URL)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"account_id": acct.ID,
			"url":        fetcher.RedactURL(acct.M3U.URL),
		}).Error("playlist download failed", err)
		return "", err
	}
	return text, nil
}

// Live returns every playlist entry as a channel
func (s *M3USource) Live(ctx context.Context, acct models.Account) ([]models.LiveChannel, error) {
	text, err := s.playlist(ctx, acct)
	if err != nil {
		return []models.LiveChannel{}, err
	}
	return s.parser.ParseChannels(text), nil
}

// Movies returns the VOD entries of the playlist
func (s *M3USource) Movies(ctx context.Context, acct models.Account) ([]models.Movie, error) {
	text, err := s.playlist(ctx, acct)
	if err != nil {
		return []models.Movie{}, err
	}
	return s.parser.ParseMovies(text), nil
}

// Series returns the episode entries grouped into series
func (s *M3USource) Series(ctx context.Context, acct models.Account) ([]models.Series, error) {
	text, err := s.playlist(ctx, acct)
	if err != nil {
		return []models.Series{}, err
	}
	return s.parser.ParseSeries(text), nil
}

// Counts parses the playlist once and counts all three views
func (s *M3USource) Counts(ctx context.Context, acct models.Account) (models.ContentCounts, error) {
	text, err := s.playlist(ctx, acct)
	if err != nil {
		if apperrors.IsInvalidAccount(err) {
			return models.ContentCounts{}, err
		}
		return models.ContentCounts{}, nil
	}

	res := s.parser.ParseAll(text)
	return models.ContentCounts{
		Live:   models.Ptr(len(res.Channels)),
		Movies: models.Ptr(len(res.Movies)),
		Series: models.Ptr(len(res.Series)),
	}, nil
}

// TestConnection reports whether url serves an M3U playlist. Any failure
// yields false.
func (s *M3USource) TestConnection(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, connectionTestTimeout)
	defer cancel()

	body, err := s.fetcher.Probe(ctx, url)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"url":  fetcher.RedactURL(url),
			"code": apperrors.GetErrorCode(err),
		}).Debug("m3u connection test failed")
		return false
	}
	return strings.Contains(string(body), "#EXTM3U")
}
