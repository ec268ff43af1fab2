package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glefebvre/iptvplayer/internal/api"
	"github.com/glefebvre/iptvplayer/internal/database"
	"github.com/glefebvre/iptvplayer/internal/shutdown"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve accounts and content as a JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		if port == 0 {
			port = a.cfg.API.Port
		}
		if a.cfg.GetAppLogLevel() != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		server := api.NewServer(api.Options{
			Catalog:        a.catalog,
			Store:          a.store,
			DB:             a.db,
			Breakers:       a.fetcher.Breakers(),
			Locale:         a.cfg.Filter.Locale,
			AllowedOrigins: a.cfg.API.AllowedOrigins,
			Logger:         a.log,
		})
		httpServer := server.HTTPServer(port)

		shutdownHandler := shutdown.New(30*time.Second, a.log)
		shutdownHandler.Register("account store", func(ctx context.Context) error {
			return database.Close(a.db)
		})
		if a.redis != nil {
			shutdownHandler.Register("response cache", func(ctx context.Context) error {
				return a.redis.Close()
			})
		}
		shutdownHandler.Register("api server", httpServer.Shutdown)

		serveErr := make(chan error, 1)
		go func() {
			a.log.WithFields(map[string]interface{}{
				"port": port,
			}).Info("api server listening")

			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
				shutdownHandler.TriggerShutdown()
			}
			close(serveErr)
		}()

		shutdownErr := shutdownHandler.Wait()
		if err := <-serveErr; err != nil {
			return err
		}
		return shutdownErr
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default: api.port)")
	rootCmd.AddCommand(serveCmd)
}
