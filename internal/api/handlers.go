package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/glefebvre/iptvplayer/internal/database"
	apperrors "github.com/glefebvre/iptvplayer/internal/errors"
	"github.com/glefebvre/iptvplayer/internal/filter"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/glefebvre/iptvplayer/internal/models"
	"github.com/glefebvre/iptvplayer/internal/store"
)

func (s *Server) healthCheck(c *gin.Context) {
	resp := HealthResponse{Status: "healthy"}

	if s.breakers != nil {
		resp.Breakers = map[string]string{}
		for host, state := range s.breakers.States() {
			resp.Breakers[host] = state.String()
		}
	}

	if s.db != nil {
		if err := database.HealthCheck(s.db); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed", err)
	}

	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	c.JSON(status, ErrorResponse{
		Error:     string(apperrors.GetErrorCode(err)),
		Message:   msg,
		RequestID: c.GetString("request_id"),
	})
}

func (s *Server) listAccounts(c *gin.Context) {
	ctx := c.Request.Context()

	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	currentID, err := s.store.CurrentAccountID(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, newAccountResponse(a, currentID))
	}
	c.JSON(http.StatusOK, ListResponse[AccountResponse]{Data: out, Total: len(out)})
}

func (s *Server) createAccount(c *gin.Context) {
	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperrors.ValidationError(err.Error()))
		return
	}
	acct, err := req.toAccount()
	if err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	if req.Verify {
		ok, err := s.catalog.TestAccount(ctx, acct)
		if err != nil {
			s.fail(c, err)
			return
		}
		if !ok {
			s.fail(c, apperrors.ValidationError("provider rejected the account or is unreachable"))
			return
		}
	}

	saved, err := s.store.Save(ctx, acct)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAccountResponse(saved, saved.ID))
}

func (s *Server) testAccount(c *gin.Context) {
	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperrors.ValidationError(err.Error()))
		return
	}
	acct, err := req.toAccount()
	if err != nil {
		s.fail(c, err)
		return
	}

	ok, err := s.catalog.TestAccount(c.Request.Context(), acct)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, TestResponse{OK: ok})
}

func (s *Server) deleteAccount(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) accountInfo(c *gin.Context) {
	ctx := c.Request.Context()

	acct, err := s.store.Get(ctx, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	info, err := s.catalog.AccountInfo(ctx, acct)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) getCurrent(c *gin.Context) {
	acct, ok, err := store.Current(c.Request.Context(), s.store)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		s.fail(c, apperrors.NotFoundError("current account", ""))
		return
	}
	c.JSON(http.StatusOK, newAccountResponse(acct, acct.ID))
}

func (s *Server) setCurrent(c *gin.Context) {
	var req SetCurrentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperrors.ValidationError(err.Error()))
		return
	}

	ctx := c.Request.Context()
	if err := s.store.SetCurrent(ctx, req.ID); err != nil {
		s.fail(c, err)
		return
	}
	acct, err := s.store.Get(ctx, req.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newAccountResponse(acct, acct.ID))
}

// resolveAccount picks ?account_id= or the selected account and tags the
// request context with it
func (s *Server) resolveAccount(c *gin.Context) (context.Context, models.Account, bool) {
	ctx := c.Request.Context()

	var acct models.Account
	var err error
	if id := c.Query("account_id"); id != "" {
		acct, err = s.store.Get(ctx, id)
	} else {
		var ok bool
		acct, ok, err = store.Current(ctx, s.store)
		if err == nil && !ok {
			err = apperrors.ValidationError("no account selected")
		}
	}
	if err != nil {
		s.fail(c, err)
		return ctx, models.Account{}, false
	}

	return logger.ContextWithAccountID(ctx, acct.ID), acct, true
}

// filterOptions reads search, category, language, favorites and sort from the query
func (s *Server) filterOptions(c *gin.Context) (filter.Options, error) {
	sortBy, err := filter.ParseSortBy(c.Query("sort"))
	if err != nil {
		return filter.Options{}, apperrors.ValidationError(err.Error())
	}

	opts := filter.Options{
		SearchTerm: c.Query("search"),
		Category:   c.Query("category"),
		Language:   c.Query("language"),
		SortBy:     sortBy,
		Locale:     s.locale,
	}

	for _, raw := range c.QueryArray("favorites") {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				opts.Favorites = append(opts.Favorites, id)
			}
		}
	}

	if raw := c.Query("favorites_only"); raw != "" {
		only, err := strconv.ParseBool(raw)
		if err != nil {
			return filter.Options{}, apperrors.ValidationError("favorites_only must be a boolean")
		}
		opts.FavoritesOnly = only
	}

	return opts, nil
}

func listContent[T filter.Item](s *Server, c *gin.Context, fetch func(context.Context, models.Account) ([]T, error)) {
	opts, err := s.filterOptions(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx, acct, ok := s.resolveAccount(c)
	if !ok {
		return
	}

	items, err := fetch(ctx, acct)
	if err != nil {
		s.fail(c, err)
		return
	}

	out := filter.Apply(items, opts)
	c.JSON(http.StatusOK, ListResponse[T]{Data: out, Total: len(out)})
}

func (s *Server) listLive(c *gin.Context) {
	listContent(s, c, s.catalog.Live.Fetch)
}

func (s *Server) listMovies(c *gin.Context) {
	listContent(s, c, s.catalog.Movies.Fetch)
}

func (s *Server) listSeries(c *gin.Context) {
	listContent(s, c, s.catalog.Series.Fetch)
}

func (s *Server) getSeries(c *gin.Context) {
	ctx, acct, ok := s.resolveAccount(c)
	if !ok {
		return
	}

	series, err := s.catalog.Series.FetchSeriesInfo(ctx, acct, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) listCategories(c *gin.Context) {
	kind := models.ContentKind(c.Param("kind"))

	provider := false
	if raw := c.Query("provider"); raw != "" {
		var err error
		if provider, err = strconv.ParseBool(raw); err != nil {
			s.fail(c, apperrors.ValidationError("provider must be a boolean"))
			return
		}
	}

	ctx, acct, ok := s.resolveAccount(c)
	if !ok {
		return
	}

	var categories []string
	var err error
	if provider {
		categories, err = s.catalog.ProviderCategories(ctx, acct, kind)
	} else {
		categories, err = s.catalog.Categories(ctx, acct, kind)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse[string]{Data: categories, Total: len(categories)})
}

func (s *Server) contentCounts(c *gin.Context) {
	ctx, acct, ok := s.resolveAccount(c)
	if !ok {
		return
	}

	counts, err := s.catalog.ContentCounts(ctx, acct)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}
