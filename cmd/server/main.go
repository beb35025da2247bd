// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dunkinducks/courtside/internal/config"
	"github.com/dunkinducks/courtside/internal/db"
	"github.com/dunkinducks/courtside/internal/email"
	"github.com/dunkinducks/courtside/internal/ledger"
	"github.com/dunkinducks/courtside/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func buildNotifier(cfg *config.Config) ledger.Notifier {
	if !cfg.Email.Enabled {
		log.Info().Msg("Email notices disabled")
		return ledger.NopNotifier{}
	}
	client, err := email.NewSESClient(
		cfg.Email.AccessKeyID,
		cfg.Email.SecretAccessKey,
		cfg.Email.Region,
		cfg.Email.Sender,
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create SES client, email notices disabled")
		return ledger.NopNotifier{}
	}
	return email.NewNotifier(client)
}

func registerSweeps(cfg *config.Config, database *db.DB, coordinator *ledger.Coordinator) error {
	err := scheduler.Init(scheduler.SweepConfig{
		WaitlistExpiryCron: cfg.Scheduler.WaitlistExpiryCron,
		GameCompletionCron: cfg.Scheduler.GameCompletionCron,
		WaitlistMaxAge:     time.Duration(cfg.Scheduler.WaitlistExpiryHours) * time.Hour,
	}, database, coordinator)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	return scheduler.Start()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	coordinator, err := ledger.NewCoordinator(database, ledger.WithNotifier(buildNotifier(cfg)))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create registration coordinator")
	}

	if err := registerSweeps(cfg, database, coordinator); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	server := newServer(cfg, database, coordinator)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("app", cfg.App.Name).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown error")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
