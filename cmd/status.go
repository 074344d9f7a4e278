package cmd

import (
	"context"
	"fmt"
	"os"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/repository"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version and what is mirrored per account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

func runStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	version, dirty, err := repository.MigrationVersion(a.db)
	if err != nil {
		return err
	}
	schema := fmt.Sprintf("%d", version)
	if dirty {
		schema += " (dirty)"
	}
	fmt.Fprintf(os.Stdout, "schema version: %s\n", schema)

	accounts, err := a.stores.Accounts.List(ctx)
	if err != nil {
		return err
	}

	urls := flickr.NewPageURLs(cfg.Flickr.URLBase)
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "User", "NSID", "Username", "Pro", "Linked", "Photos", "Sets", "Collections", "Last sync", "Profile"})

	for _, account := range accounts {
		photos, err := a.stores.Photos.CountByAccount(ctx, account.ID)
		if err != nil {
			return err
		}
		sets, err := a.stores.PhotoSets.CountByAccount(ctx, account.ID)
		if err != nil {
			return err
		}
		collections, err := a.stores.Collections.CountByAccount(ctx, account.ID)
		if err != nil {
			return err
		}

		lastSync := "never"
		if !account.LastSync.IsZero() {
			lastSync = account.LastSync.Local().Format("2006-01-02 15:04")
		}
		profile := ""
		if account.NSID != "" {
			profile = urls.Account(account.Username, account.NSID)
		}

		tw.AppendRow(table.Row{
			account.ID, account.UserID, account.NSID, account.Username,
			yesNo(account.IsPro), yesNo(account.Linked()),
			photos, sets, collections, lastSync, profile,
		})
	}
	tw.Render()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
