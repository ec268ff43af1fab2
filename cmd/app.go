package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/glefebvre/iptvplayer/internal/cache"
	"github.com/glefebvre/iptvplayer/internal/catalog"
	"github.com/glefebvre/iptvplayer/internal/config"
	"github.com/glefebvre/iptvplayer/internal/database"
	"github.com/glefebvre/iptvplayer/internal/fallback"
	"github.com/glefebvre/iptvplayer/internal/fetcher"
	"github.com/glefebvre/iptvplayer/internal/filter"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/glefebvre/iptvplayer/internal/models"
	"github.com/glefebvre/iptvplayer/internal/store"
	"github.com/glefebvre/iptvplayer/internal/xtream"
	"gorm.io/gorm"
)

// app holds the wired content core shared by every command
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *gorm.DB
	store   *store.GormStore
	fetcher *fetcher.Fetcher
	catalog *catalog.Service
	redis   *cache.Redis
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Get()

	// Initialize loggers with configured levels and format
	logger.InitializeLoggersWithFormat(cfg.GetAppLogLevel(), cfg.GetStoreLogLevel(), cfg.Logging.Format)
	log := logger.AppLogger()

	if err := database.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize account store: %w", err)
	}

	a := &app{
		cfg:   cfg,
		log:   log,
		db:    database.Get(),
		store: store.New(database.Get(), logger.StoreLogger()),
	}

	var bodyCache cache.Cache
	switch {
	case cfg.Cache.Enabled && cfg.Cache.RedisURL != "":
		r, err := cache.NewRedis(cfg.Cache.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		if err := r.Ping(ctx); err != nil {
			log.WithFields(map[string]interface{}{
				"redis": fetcher.RedactURL(cfg.Cache.RedisURL),
			}).Error("redis unavailable, response cache disabled", err)
			r.Close()
		} else {
			a.redis = r
			bodyCache = r
		}
	case cfg.Cache.Enabled:
		bodyCache = cache.NewMemory()
	}

	a.fetcher = fetcher.New(fetcher.Config{
		Timeout:       cfg.Source.Timeout(),
		UserAgent:     cfg.Source.UserAgent,
		RetryAttempts: cfg.Source.RetryAttempts,
		MaxBodyBytes:  cfg.Source.MaxPlaylistMB << 20,
		CacheTTL:      cfg.Cache.TTL(),
	}, bodyCache, log)

	var dataset *fallback.Dataset
	if cfg.Fallback.Enabled {
		ds, err := fallback.Load(cfg.Fallback.DatasetPath)
		if err != nil {
			a.close()
			return nil, err
		}
		dataset = ds
	}

	rules, err := filter.LoadRules(cfg.Filter)
	if err != nil {
		a.close()
		return nil, err
	}

	xc := xtream.NewClient(xtream.Config{
		SeriesInfoConcurrency: cfg.Xtream.SeriesInfoConcurrency,
		NewWindow:             time.Duration(cfg.Xtream.NewWindowDays) * 24 * time.Hour,
	}, a.fetcher, log)

	a.catalog = catalog.NewService(xc, catalog.NewM3USource(a.fetcher, nil, log), catalog.Options{
		Fallback:       dataset,
		EnableFallback: cfg.Fallback.Enabled,
		Rules:          rules,
		Logger:         log,
	})

	return a, nil
}

func (a *app) close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, database.Close(a.db))
	return errors.Join(errs...)
}

// account resolves --account, or the selected account when the flag is empty
func (a *app) account(ctx context.Context, id string) (models.Account, error) {
	if id != "" {
		return a.store.Get(ctx, id)
	}

	acct, ok, err := store.Current(ctx, a.store)
	if err != nil {
		return models.Account{}, err
	}
	if !ok {
		return models.Account{}, fmt.Errorf("no account selected, run `iptvplayer accounts use <id>` or pass --account")
	}
	return acct, nil
}

// withApp wires the core, runs fn and releases the store and cache
func withApp(fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			a.log.Error("failed to release resources", err)
		}
	}()

	return fn(ctx, a)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
