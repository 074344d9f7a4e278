package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"flickr-mirror/internal/services"
	"flickr-mirror/internal/storage"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	downloadUser  string
	downloadLimit int
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Copy mirrored photo binaries into blob storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownload()
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadUser, "user", "", "only download photos of the account linked by this local user id")
	downloadCmd.Flags().IntVar(&downloadLimit, "limit", 100, "maximum photos to download per account")
}

func runDownload() error {
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

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	keys := storage.KeyBuilder{Base: cfg.Storage.DirBase, Format: cfg.Storage.DirFormat}
	downloads := services.NewDownloadService(a.flickr, blobs, a.stores, keys, nil, 0)

	accounts, err := a.linkedAccounts(ctx, downloadUser)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		result, err := downloads.DownloadPending(ctx, account, downloadLimit)
		if err != nil {
			return err
		}
		log.Info().
			Int64("account_id", account.ID).
			Int("downloaded", result.Downloaded).
			Int("failed", result.Failed).
			Msg("Account downloads done")
	}
	return nil
}
