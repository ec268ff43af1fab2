package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/glefebvre/iptvplayer/internal/models"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage saved provider accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved accounts; the selected one is marked with *",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		return withApp(func(ctx context.Context, a *app) error {
			accounts, err := a.store.Accounts(ctx)
			if err != nil {
				return err
			}
			currentID, err := a.store.CurrentAccountID(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				for i := range accounts {
					if accounts[i].Xtream != nil {
						accounts[i].Xtream.Password = ""
					}
				}
				return printJSON(accounts)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tID\tTYPE\tNAME\tSOURCE")
			for _, acct := range accounts {
				marker := ""
				if acct.ID == currentID {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", marker, acct.ID, acct.Type, acct.PlaylistName, accountSource(acct))
			}
			return w.Flush()
		})
	},
}

var accountsAddXtreamCmd = &cobra.Command{
	Use:   "add-xtream",
	Short: "Save an Xtream Codes account and select it",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		server, _ := cmd.Flags().GetString("server")
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		verify, _ := cmd.Flags().GetBool("verify")

		return saveAccount(models.NewXtreamAccount("", name, server, username, password), verify)
	},
}

var accountsAddM3UCmd = &cobra.Command{
	Use:   "add-m3u",
	Short: "Save an M3U playlist account and select it",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		url, _ := cmd.Flags().GetString("url")
		verify, _ := cmd.Flags().GetBool("verify")

		return saveAccount(models.NewM3UAccount("", name, url), verify)
	},
}

var accountsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.store.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted account %s\n", args[0])
			return nil
		})
	},
}

var accountsUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Select the account content commands read from",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.store.SetCurrent(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Selected account %s\n", args[0])
			return nil
		})
	},
}

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Check that an account's provider answers",
	Long: `Check a saved account (--account, default the selected one) against its
provider. Xtream panels must authenticate the credentials; M3U URLs must serve
a playlist starting with #EXTM3U. Each probe is bounded to 10 seconds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, _ := cmd.Flags().GetString("account")

		return withApp(func(ctx context.Context, a *app) error {
			acct, err := a.account(ctx, accountID)
			if err != nil {
				return err
			}

			ok, err := a.catalog.TestAccount(ctx, acct)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("connection to %s failed", accountSource(acct))
			}
			fmt.Printf("Connection to %s OK\n", accountSource(acct))
			return nil
		})
	},
}

func saveAccount(acct models.Account, verify bool) error {
	return withApp(func(ctx context.Context, a *app) error {
		if verify {
			ok, err := a.catalog.TestAccount(ctx, acct)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("connection to %s failed, account not saved", accountSource(acct))
			}
		}

		saved, err := a.store.Save(ctx, acct)
		if err != nil {
			return err
		}
		fmt.Printf("Saved account %s (%s)\n", saved.ID, accountSource(saved))
		return nil
	})
}

func accountSource(acct models.Account) string {
	switch {
	case acct.Xtream != nil:
		return acct.Xtream.Username + "@" + acct.Xtream.ServerURL
	case acct.M3U != nil:
		return acct.M3U.URL
	default:
		return ""
	}
}

func init() {
	accountsListCmd.Flags().Bool("json", false, "print JSON instead of a table")

	accountsAddXtreamCmd.Flags().String("name", "", "display name")
	accountsAddXtreamCmd.Flags().String("server", "", "panel URL, e.g. http://panel.example.com:8080")
	accountsAddXtreamCmd.Flags().String("username", "", "panel username")
	accountsAddXtreamCmd.Flags().String("password", "", "panel password")
	accountsAddXtreamCmd.Flags().Bool("verify", true, "test the credentials before saving")
	accountsAddXtreamCmd.MarkFlagRequired("server")
	accountsAddXtreamCmd.MarkFlagRequired("username")
	accountsAddXtreamCmd.MarkFlagRequired("password")

	accountsAddM3UCmd.Flags().String("name", "", "display name")
	accountsAddM3UCmd.Flags().String("url", "", "playlist URL")
	accountsAddM3UCmd.Flags().Bool("verify", true, "fetch the playlist header before saving")
	accountsAddM3UCmd.MarkFlagRequired("url")

	testConnectionCmd.Flags().String("account", "", "account id (default: the selected account)")

	accountsCmd.AddCommand(accountsListCmd, accountsAddXtreamCmd, accountsAddM3UCmd, accountsDeleteCmd, accountsUseCmd)
	rootCmd.AddCommand(accountsCmd, testConnectionCmd)
}
