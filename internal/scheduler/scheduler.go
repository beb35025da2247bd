package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dunkinducks/courtside/internal/db"
	"github.com/dunkinducks/courtside/internal/ledger"
)

var (
	service     *Service
	serviceOnce sync.Once
	serviceErr  error
)

var ErrNotInitialized = errors.New("scheduler not initialized")

// SweepConfig carries the cron schedules for the background sweeps and the
// age at which a waiting entry goes stale. Expressions are validated at
// config load; gocron rejects anything malformed at registration time.
type SweepConfig struct {
	WaitlistExpiryCron string
	GameCompletionCron string
	WaitlistMaxAge     time.Duration
}

// Service owns the gocron scheduler that runs the ledger sweeps.
type Service struct {
	scheduler gocron.Scheduler
	stopOnce  sync.Once
	stopErr   error
}

// Init builds the scheduler singleton with both sweeps registered. Later
// calls return the first result.
func Init(cfg SweepConfig, database *db.DB, coordinator *ledger.Coordinator) error {
	serviceOnce.Do(func() {
		service, serviceErr = newService(cfg, database, coordinator)
	})
	return serviceErr
}

// Start begins running the registered sweeps.
func Start() error {
	if service == nil {
		return ErrNotInitialized
	}
	log.Info().Msg("Scheduler starting")
	service.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down. Safe to call more than once.
func Stop() error {
	if service == nil {
		return ErrNotInitialized
	}
	service.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		service.stopErr = service.scheduler.Shutdown()
	})
	return service.stopErr
}

func newService(cfg SweepConfig, database *db.DB, coordinator *ledger.Coordinator) (*Service, error) {
	if database == nil || coordinator == nil {
		return nil, errors.New("scheduler requires the database and the registration coordinator")
	}

	sched, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error().
						Str("job_id", jobID.String()).
						Str("sweep", jobName).
						Interface("panic", recoverData).
						Msg("Sweep panicked")
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	s := &Service{scheduler: sched}
	if err := s.addSweep("waitlist-expiry", cfg.WaitlistExpiryCron, func(ctx context.Context) error {
		return ExpireStaleWaitlistEntries(ctx, coordinator, cfg.WaitlistMaxAge)
	}); err != nil {
		return nil, err
	}
	if err := s.addSweep("game-completion", cfg.GameCompletionCron, func(ctx context.Context) error {
		return CompletePastGames(ctx, database, time.Now())
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// addSweep schedules a sweep on its cron expression. Each run gets a fresh
// context carrying the sweep's logger.
func (s *Service) addSweep(name, cronExpr string, sweep func(context.Context) error) error {
	sweepLogger := log.With().Str("sweep", name).Str("cron", cronExpr).Logger()

	_, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			ctx := sweepLogger.WithContext(context.Background())
			sweepLogger.Debug().Msg("Sweep started")
			if err := sweep(ctx); err != nil {
				sweepLogger.Error().Err(err).Msg("Sweep failed")
				return
			}
			sweepLogger.Debug().Msg("Sweep completed")
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("register %s sweep: %w", name, err)
	}
	sweepLogger.Info().Msg("Registered sweep")
	return nil
}
