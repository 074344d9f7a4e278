package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"flickr-mirror/internal/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var syncUser string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror photos, photosets and collections of linked accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync()
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncUser, "user", "", "only sync the account linked by this local user id")
}

func runSync() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	unlock, err := acquireLock(cfg.Sync.LockFile)
	if err != nil {
		return err
	}
	defer unlock()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, err := a.linkedAccounts(ctx, syncUser)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		log.Warn().Msg("No linked accounts to sync")
		return nil
	}

	syncService := services.NewSyncService(a.flickr, a.stores, nil, cfg.Sync.PerPage)
	var failed int
	for _, account := range accounts {
		if _, err := syncService.SyncAccount(ctx, account); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			log.Error().Err(err).
				Int64("account_id", account.ID).
				Str("nsid", account.NSID).
				Msg("Failed to sync account")
		}
	}
	if failed > 0 {
		log.Warn().Int("failed", failed).Int("accounts", len(accounts)).Msg("Sync finished with errors")
	}
	return nil
}
