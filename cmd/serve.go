package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flickr-mirror/internal/flickr"
	"flickr-mirror/internal/handlers"
	"flickr-mirror/internal/middleware"
	"flickr-mirror/internal/repository"
	"flickr-mirror/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the mirrored library over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving")
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := openApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveMigrate {
		if err := repository.MigrateUp(a.db); err != nil {
			return err
		}
		log.Info().Msg("Migrations applied")
	}

	tmpl, err := handlers.Templates(flickr.NewPageURLs(cfg.Flickr.URLBase))
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	// Background syncs outlive their request and stop on shutdown
	syncCtx, stopSyncs := context.WithCancel(context.Background())
	defer stopSyncs()

	// Initialize services
	wsHub := services.NewWSHub()
	userService := services.NewUserService(a.stores.Users, cfg.JWT.Secret)
	authService := services.NewAuthService(a.flickr, a.flickr, a.stores, cfg.Flickr.Perms)
	syncService := services.NewSyncService(a.flickr, a.stores, wsHub, cfg.Sync.PerPage)
	galleryService := services.NewGalleryService(a.stores)

	// Initialize handlers
	galleryHandler := handlers.NewGalleryHandler(galleryService, tmpl)
	authHandler := handlers.NewAuthHandler(authService, tmpl)
	userHandler := handlers.NewUserHandler(userService)
	methodHandler := handlers.NewMethodHandler(a.flickr, authService)
	syncHandler := handlers.NewSyncHandler(syncCtx, authService, syncService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Pages
	r.Get("/", galleryHandler.Index)
	r.Get("/set/{id}/", galleryHandler.Set)
	r.Get("/photo/{id}/", galleryHandler.Photo)
	r.With(middleware.OptionalAuth(userService)).Get("/method/{name}/", methodHandler.Call)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(userService))
		r.Get("/auth/", authHandler.Begin)
		r.Get("/auth/complete/", authHandler.Complete)
	})

	// API
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))
			r.Get("/users/me", userHandler.Me)
			r.Post("/sync", syncHandler.Sync)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stopSyncs()
	syncHandler.Wait()

	log.Info().Msg("Server exited")
	return nil
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
