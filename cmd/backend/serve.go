package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hairizuan-noorazman/repair-desk/archive"
	"github.com/hairizuan-noorazman/repair-desk/cmd/backend/handlers"
	"github.com/hairizuan-noorazman/repair-desk/database"
	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/lifecycle"
	"github.com/hairizuan-noorazman/repair-desk/logger"
	"github.com/hairizuan-noorazman/repair-desk/notify"
	"github.com/hairizuan-noorazman/repair-desk/session"
	"github.com/hairizuan-noorazman/repair-desk/view"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

var configFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServer,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := logger.NewLogrusLoggerWithOutput(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	log.Info(ctx, "starting server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	// Connect to database
	db, err := database.Connect(cfg.databaseConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	if cfg.Database.Driver == database.DriverSQLite {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}

	log.Info(ctx, "database connected", map[string]interface{}{
		"driver":   cfg.Database.Driver,
		"host":     cfg.Database.Host,
		"database": cfg.Database.Database,
	})

	// Initialize job store and its change feed
	feed := job.NewFeed()
	defer feed.Close()
	jobStore := job.NewMySQLStore(db, feed, log)

	// Initialize notifications
	mailer := notify.NewSMTPMailer(cfg.smtpConfig())
	sender, err := newNotificationSender(cfg, mailer)
	if err != nil {
		return fmt.Errorf("failed to initialize notification sender: %w", err)
	}
	dispatcher := notify.NewDispatcher(sender, log)

	log.Info(ctx, "notifications initialized", map[string]interface{}{
		"endpoint":   cfg.Notify.EndpointURL,
		"in_process": cfg.Notify.EndpointURL == "",
		"timeout":    cfg.Notify.Timeout.String(),
	})

	// Initialize archive
	backend, err := archive.NewBackend(archive.Config{
		Type:    cfg.Storage.Type,
		BaseDir: cfg.Storage.BaseDir,
		Bucket:  cfg.Storage.S3Bucket,
		Region:  cfg.Storage.S3Region,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize archive: %w", err)
	}
	arc := archive.New(backend, cfg.Shop, log)

	log.Info(ctx, "archive initialized", map[string]interface{}{
		"type": cfg.Storage.Type,
	})

	// Initialize session manager; every session gets its own board and
	// staged changes
	sessionManager := session.NewManager(cfg.Session.Duration, func(ctx context.Context) (*session.Workspace, error) {
		board, err := view.NewBoard(ctx, jobStore)
		if err != nil {
			return nil, fmt.Errorf("failed to open job board: %w", err)
		}
		return &session.Workspace{
			Controller: lifecycle.NewController(jobStore, dispatcher, cfg.Shop, log),
			Board:      board,
		}, nil
	}, log)
	sessionManager.StartCleanup(cfg.Session.CleanupInterval)
	// Closes every workspace before the feed and database go away
	defer sessionManager.StopCleanup()

	log.Info(ctx, "session manager initialized", map[string]interface{}{
		"duration": cfg.Session.Duration.String(),
	})

	// Setup router
	router := handlers.NewRouter(handlers.Dependencies{
		JobStore:       jobStore,
		Sessions:       sessionManager,
		Archive:        arc,
		Mailer:         mailer,
		NotifyAPIKey:   cfg.Notify.APIKey,
		Feed:           feed,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Shop:           cfg.Shop,
		CookieName:     cfg.Session.CookieName,
		CookieSecret:   cfg.Session.CookieSecret,
		CookieSecure:   cfg.Session.Secure,
		AccessCodeHash: cfg.Auth.AccessCodeHash,
		Logger:         log,
	})

	corsHandler := cors.New(cors.Options{
		AllowOriginFunc:  handlers.OriginAllowed(cfg.Server.AllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           900,
	})
	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "*" {
			log.Warn(ctx, "wildcard origin ignored for credentialed requests", nil)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info(ctx, "server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server", nil)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info(ctx, "server stopped", nil)
	return nil
}

// newNotificationSender returns the server step of the notification chain.
// Without an endpoint URL the dispatcher sends through the mailer directly.
func newNotificationSender(cfg *Config, mailer *notify.SMTPMailer) (notify.Sender, error) {
	if cfg.Notify.EndpointURL == "" {
		return mailer, nil
	}
	return notify.NewHTTPSender(cfg.Notify.EndpointURL, cfg.Notify.Timeout,
		notify.WithAPIKey(cfg.Notify.APIKey))
}
