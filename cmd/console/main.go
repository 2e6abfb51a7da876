package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rrens/chatdesk/internal/api"
	"github.com/Rrens/chatdesk/internal/backend"
	"github.com/Rrens/chatdesk/internal/cache"
	"github.com/Rrens/chatdesk/internal/config"
	"github.com/Rrens/chatdesk/internal/logger"
	"github.com/Rrens/chatdesk/internal/notify"
	"github.com/Rrens/chatdesk/internal/repository/memory"
	"github.com/Rrens/chatdesk/internal/repository/redis"
	"github.com/Rrens/chatdesk/internal/repository/sqlite"
	"github.com/Rrens/chatdesk/internal/session"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := logger.Setup(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	sessionID := cfg.Cache.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("backend", cfg.Backend.BaseURL).
		Str("cache", cfg.Cache.Driver).
		Str("session", sessionID).
		Msg("Starting support console")

	store, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Cache.Driver).Msg("Failed to open cache store")
	}
	defer store.Close()

	client := backend.NewClient(cfg.Backend)
	defer client.Close()

	manager := session.NewManager(session.Options{
		SessionID: sessionID,
		MaxAge:    cfg.Cache.MaxAge,
		PageSize:  cfg.Console.PageSize,
	}, store, client, notify.NewFeed(cfg.Console.NotificationBuffer))
	defer manager.Close()

	router := api.NewRouter(cfg, manager, session.NewTokenParser(cfg.Auth))

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Driver {
	case config.CacheDriverSQLite:
		return sqlite.Open(ctx, cfg.Cache.SQLitePath)
	case config.CacheDriverRedis:
		rc, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redis.NewSnapshotStore(rc, cfg.Cache.SessionTTL), nil
	default:
		return memory.NewStore(), nil
	}
}
