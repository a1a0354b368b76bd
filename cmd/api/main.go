package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dfedorov/statement-desk/internal/api"
	"github.com/dfedorov/statement-desk/internal/api/handlers"
	"github.com/dfedorov/statement-desk/internal/catalog"
	"github.com/dfedorov/statement-desk/internal/config"
	"github.com/dfedorov/statement-desk/internal/infra/sqlite"
	"github.com/dfedorov/statement-desk/internal/logger"
	"github.com/dfedorov/statement-desk/internal/rules"
	"github.com/dfedorov/statement-desk/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewWithLevel(cfg.Log.Level)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	checker := rules.SimilarityChecker{MaxDistance: cfg.Similarity.MaxDistance}
	svc := catalog.NewService(db, checker, log)
	sessions := workspace.NewStore(db, log)

	router := api.NewRouter(
		handlers.NewGroupsHandler(svc),
		handlers.NewSessionHandler(sessions),
		log,
	)

	server := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.API.Addr).Str("db", cfg.Database.Path).Msg("Starting catalog service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
