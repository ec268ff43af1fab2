package main

import (
	"context"
	"fmt"

	"github.com/glefebvre/iptvplayer/internal/cache"
	"github.com/glefebvre/iptvplayer/internal/config"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge cached provider responses from Redis",
	Long: `Delete every cached playlist and player API body from the Redis response
cache configured under cache.redis_url. The next content command fetches fresh
data from the providers.

The in-process cache needs no cleanup: it lives only as long as one command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		fmt.Println("=== Response Cache Cleanup ===")
		if cfg.Cache.RedisURL == "" {
			fmt.Println("No Redis cache configured, nothing to purge.")
			return nil
		}

		r, err := cache.NewRedis(cfg.Cache.RedisURL)
		if err != nil {
			return err
		}
		defer r.Close()

		ctx := context.Background()
		if err := r.Ping(ctx); err != nil {
			return fmt.Errorf("redis unavailable: %w", err)
		}
		if err := r.Purge(ctx); err != nil {
			return err
		}

		fmt.Println("Cleanup complete!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
