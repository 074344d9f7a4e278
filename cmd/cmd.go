package cmd

import (
	"context"
	"fmt"
	"os"

	"flickr-mirror/internal/config"
	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/models"
	"flickr-mirror/internal/repository"
	"flickr-mirror/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mattn/go-isatty"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "flickr-mirror",
	Short:         "Mirror a Flickr library into PostgreSQL and serve it",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, syncCmd, downloadCmd, migrateCmd, statusCmd)
}

// Execute runs the command line
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

// loadConfig reads and validates the configuration, then sets up logging
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	setupLogger(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// app holds the connections shared by every command
type app struct {
	cfg    *config.Config
	db     *pgxpool.Pool
	redis  *redis.Client
	flickr *flickr.Client
	stores services.Stores
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := repository.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	client := flickr.New(flickr.Options{
		APIKey:          cfg.Flickr.APIKey,
		APISecret:       cfg.Flickr.APISecret,
		Endpoint:        cfg.Flickr.RESTEndpoint,
		RequestTokenURL: cfg.Flickr.RequestTokenURL,
		AuthorizeURL:    cfg.Flickr.AuthorizeURL,
		AccessTokenURL:  cfg.Flickr.AccessTokenURL,
	})

	return &app{
		cfg:    cfg,
		db:     db,
		redis:  rdb,
		flickr: client,
		stores: services.Stores{
			Users:       repository.NewUserRepository(db),
			Accounts:    repository.NewAccountRepository(db),
			Photos:      repository.NewPhotoRepository(db),
			PhotoSets:   repository.NewPhotoSetRepository(db),
			Collections: repository.NewCollectionRepository(db),
			Cache:       repository.NewResponseCacheRepository(db),
			Downloads:   repository.NewDownloadRepository(db),
			Pending:     repository.NewPendingAuthStore(rdb),
		},
	}, nil
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close redis client")
	}
	a.db.Close()
}

// linkedAccounts returns the account of userID, or every linked account
// when userID is empty
func (a *app) linkedAccounts(ctx context.Context, userID string) ([]*models.RemoteAccount, error) {
	if userID != "" {
		account, err := a.stores.Accounts.GetByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load account of user %s: %w", userID, err)
		}
		if !account.Linked() {
			return nil, fmt.Errorf("user %s: %w", userID, services.ErrNotLinked)
		}
		return []*models.RemoteAccount{account}, nil
	}

	accounts, err := a.stores.Accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	linked := accounts[:0]
	for _, account := range accounts {
		if account.Linked() {
			linked = append(linked, account)
		}
	}
	return linked, nil
}
