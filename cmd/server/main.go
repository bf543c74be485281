package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/floradistro/websitev2-sub001/internal/config"
	"github.com/floradistro/websitev2-sub001/internal/infra"
	"github.com/floradistro/websitev2-sub001/internal/repository"
	"github.com/floradistro/websitev2-sub001/internal/router"
	"github.com/floradistro/websitev2-sub001/internal/service"
	"github.com/floradistro/websitev2-sub001/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	db, err := infra.NewDatabase(cfg.DatabaseURL, cfg.AutoMigrate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL, infra.WithPoolSize(cfg.RedisPoolSize))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	var terminal *infra.TerminalClient
	if cfg.TerminalURL != "" {
		terminal = infra.NewTerminalClient(cfg.TerminalURL, infra.BreakerConfig{})
		log.Info().Str("url", cfg.TerminalURL).Msg("card terminal enabled")
	}

	// Worker handlers are wired here (composition root) so the pool has
	// access to all infrastructure dependencies.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orderRepo := repository.NewOrderRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	dispatcher := worker.NewDispatcher(rdb)
	mailer := infra.NewMailer(cfg)

	handlers := worker.Handlers{
		Receipt: worker.NewReceiptWorker(orderRepo, receiptRepo, dispatcher, cfg.ReceiptStoragePath, cfg.StoreName),
	}
	if mailer.Enabled() {
		handlers.Email = worker.NewEmailWorker(mailer, receiptRepo)
	} else {
		log.Warn().Msg("SMTP_HOST not set, receipt emails go to the DLQ")
	}
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, handlers)

	if cfg.InventoryRetryEnabled {
		inventory := service.NewInventoryService(
			repository.NewProductRepository(db),
			repository.NewInventoryMovementRepository(db),
			orderRepo,
		)
		worker.StartRetryCron(ctx, worker.RetryCronConfig{Inventory: inventory, RDB: rdb})
	}

	r := router.New(cfg, db, rdb, terminal)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("POS backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	_ = rdb.Close()
	log.Info().Msg("server exited")
}

// setupLogger: dev is pretty console output, production is JSON.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
