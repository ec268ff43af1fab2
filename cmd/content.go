package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/glefebvre/iptvplayer/internal/filter"
	"github.com/glefebvre/iptvplayer/internal/models"
	"github.com/spf13/cobra"
)

type fetchFunc[T filter.Item] func(ctx context.Context, acct models.Account) ([]T, error)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "List live channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd, func(a *app) fetchFunc[models.LiveChannel] { return a.catalog.Live.Fetch }, printChannels)
	},
}

var moviesCmd = &cobra.Command{
	Use:   "movies",
	Short: "List movies",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd, func(a *app) fetchFunc[models.Movie] { return a.catalog.Movies.Fetch }, printMovies)
	},
}

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "List series",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd, func(a *app) fetchFunc[models.Series] { return a.catalog.Series.Fetch }, printSeries)
	},
}

var seriesInfoCmd = &cobra.Command{
	Use:   "series-info <series-id>",
	Short: "Show one series with its episodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, _ := cmd.Flags().GetString("account")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withApp(func(ctx context.Context, a *app) error {
			acct, err := a.account(ctx, accountID)
			if err != nil {
				return err
			}

			series, err := a.catalog.Series.FetchSeriesInfo(ctx, acct, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(series)
			}

			fmt.Printf("%s (%s)\n", series.Name, series.ID)
			if series.Description != nil {
				fmt.Printf("%s\n", *series.Description)
			}
			fmt.Println()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SEASON\tEPISODE\tNAME\tURL")
			for _, item := range series.Items {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", item.SeasonNumber, item.EpisodeNumber, item.Name, item.StreamURL)
			}
			return w.Flush()
		})
	},
}

var categoriesCmd = &cobra.Command{
	Use:       "categories <live|movie|series>",
	Short:     "List the categories of one content kind",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(models.ContentKindLive), string(models.ContentKindMovie), string(models.ContentKindSeries)},
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, _ := cmd.Flags().GetString("account")
		provider, _ := cmd.Flags().GetBool("provider")
		kind := models.ContentKind(strings.ToLower(args[0]))

		return withApp(func(ctx context.Context, a *app) error {
			acct, err := a.account(ctx, accountID)
			if err != nil {
				return err
			}

			var categories []string
			if provider {
				categories, err = a.catalog.ProviderCategories(ctx, acct, kind)
			} else {
				categories, err = a.catalog.Categories(ctx, acct, kind)
			}
			if err != nil {
				return err
			}

			for _, c := range categories {
				fmt.Println(c)
			}
			return nil
		})
	},
}

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Show live, movie and series totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, _ := cmd.Flags().GetString("account")

		return withApp(func(ctx context.Context, a *app) error {
			acct, err := a.account(ctx, accountID)
			if err != nil {
				return err
			}

			counts, err := a.catalog.ContentCounts(ctx, acct)
			if err != nil {
				return err
			}

			fmt.Printf("Live:   %s\n", formatCount(counts.Live))
			fmt.Printf("Movies: %s\n", formatCount(counts.Movies))
			fmt.Printf("Series: %s\n", formatCount(counts.Series))
			return nil
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show Xtream subscription details",
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, _ := cmd.Flags().GetString("account")

		return withApp(func(ctx context.Context, a *app) error {
			acct, err := a.account(ctx, accountID)
			if err != nil {
				return err
			}

			info, err := a.catalog.AccountInfo(ctx, acct)
			if err != nil {
				return err
			}
			return printJSON(info)
		})
	},
}

func runList[T filter.Item](cmd *cobra.Command, fetch func(*app) fetchFunc[T], render func(io.Writer, []T)) error {
	accountID, _ := cmd.Flags().GetString("account")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(func(ctx context.Context, a *app) error {
		opts, err := filterOptionsFromFlags(cmd, a.cfg.Filter.Locale)
		if err != nil {
			return err
		}
		acct, err := a.account(ctx, accountID)
		if err != nil {
			return err
		}

		items, err := fetch(a)(ctx, acct)
		if err != nil {
			return err
		}
		items = filter.Apply(items, opts)

		if asJSON {
			return printJSON(items)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		render(w, items)
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d items\n", len(items))
		return nil
	})
}

func filterOptionsFromFlags(cmd *cobra.Command, locale string) (filter.Options, error) {
	search, _ := cmd.Flags().GetString("search")
	category, _ := cmd.Flags().GetString("category")
	language, _ := cmd.Flags().GetString("language")
	favorites, _ := cmd.Flags().GetStringSlice("favorites")
	favoritesOnly, _ := cmd.Flags().GetBool("favorites-only")
	sortFlag, _ := cmd.Flags().GetString("sort")

	sortBy, err := filter.ParseSortBy(sortFlag)
	if err != nil {
		return filter.Options{}, err
	}

	return filter.Options{
		SearchTerm:    search,
		Category:      category,
		Language:      language,
		FavoritesOnly: favoritesOnly,
		Favorites:     favorites,
		SortBy:        sortBy,
		Locale:        locale,
	}, nil
}

func printChannels(w io.Writer, channels []models.LiveChannel) {
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tURL")
	for _, c := range channels {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.ItemCategory(), c.StreamURL)
	}
}

func printMovies(w io.Writer, movies []models.Movie) {
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tRATING\tNEW\tURL")
	for _, m := range movies {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\t%s\n", m.ID, m.Name, m.ItemCategory(), m.ItemRating(), newMarker(m.ItemIsNew()), m.StreamURL)
	}
}

func printSeries(w io.Writer, series []models.Series) {
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSEASONS\tEPISODES\tNEW")
	for _, s := range series {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.ItemCategory(), formatCount(s.Seasons), formatCount(s.Episodes), newMarker(s.ItemIsNew()))
	}
}

func newMarker(isNew bool) string {
	if isNew {
		return "yes"
	}
	return ""
}

func formatCount(n *int) string {
	if n == nil {
		return "unknown"
	}
	return fmt.Sprint(*n)
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("search", "", "case-insensitive match on name, description and genre")
	cmd.Flags().String("category", "", "exact category")
	cmd.Flags().String("language", "", "language, case-insensitive")
	cmd.Flags().StringSlice("favorites", nil, "favorite ids, comma separated")
	cmd.Flags().Bool("favorites-only", false, "keep only --favorites")
	cmd.Flags().String("sort", "", "az, new or rating")
}

func init() {
	for _, cmd := range []*cobra.Command{liveCmd, moviesCmd, seriesCmd} {
		addFilterFlags(cmd)
		cmd.Flags().Bool("json", false, "print JSON instead of a table")
	}
	seriesInfoCmd.Flags().Bool("json", false, "print JSON instead of a table")
	categoriesCmd.Flags().Bool("provider", false, "list the provider's declared categories, including empty ones")

	for _, cmd := range []*cobra.Command{liveCmd, moviesCmd, seriesCmd, seriesInfoCmd, categoriesCmd, countsCmd, infoCmd} {
		cmd.Flags().String("account", "", "account id (default: the selected account)")
		rootCmd.AddCommand(cmd)
	}
}
