package main

import (
	"fmt"
	"os"

	"github.com/glefebvre/iptvplayer/internal/config"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "iptvplayer",
	Short: "iptvplayer lists live channels, movies and series from IPTV providers",
	Long: `iptvplayer connects to Xtream Codes panels and M3U playlists, and lists
their live channels, movies and series with search, category, language,
favorites and sort filters. Saved accounts live in SQLite or PostgreSQL.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of iptvplayer",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("iptvplayer v%s\n", version)
	},
}

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	// Skip config loading for version command
	if len(os.Args) > 1 && os.Args[1] == "version" {
		return
	}

	if configFile != "" {
		config.SetFile(configFile)
	}
	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
