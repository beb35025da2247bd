package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	appdb "github.com/dunkinducks/courtside/internal/db"
	"github.com/dunkinducks/courtside/internal/db/store"
	"github.com/dunkinducks/courtside/internal/models"
)

const defaultLockTimeout = 5 * time.Second

// Notifier dispatches player-facing notices after ledger transitions commit.
// Implementations must not block the caller.
type Notifier interface {
	RegistrationConfirmed(ctx context.Context, player models.Player, game models.Game)
	WaitlistJoined(ctx context.Context, player models.Player, game models.Game, entry models.WaitlistEntry)
	WaitlistPromoted(ctx context.Context, player models.Player, game models.Game)
}

// NopNotifier drops all notices.
type NopNotifier struct{}

func (NopNotifier) RegistrationConfirmed(context.Context, models.Player, models.Game) {}
func (NopNotifier) WaitlistJoined(context.Context, models.Player, models.Game, models.WaitlistEntry) {
}
func (NopNotifier) WaitlistPromoted(context.Context, models.Player, models.Game) {}

// Coordinator is the single entry point translating player intent into
// durable registration state. Every capacity-affecting operation runs under
// the per-game lock and inside one transaction, so partial state never
// survives a failure and two callers can never both take the last slot.
type Coordinator struct {
	db          *appdb.DB
	locks       *gameLocks
	tracker     *Tracker
	promoter    *Promoter
	notifier    Notifier
	lockTimeout time.Duration
	clock       Clock
}

type CoordinatorOption func(*Coordinator)

// WithNotifier sets the notification dispatcher.
func WithNotifier(n Notifier) CoordinatorOption {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLockTimeout bounds per-game lock acquisition.
func WithLockTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.lockTimeout = d
		}
	}
}

// WithClock swaps the time source for tests.
func WithClock(clock Clock) CoordinatorOption {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func NewCoordinator(database *appdb.DB, opts ...CoordinatorOption) (*Coordinator, error) {
	if database == nil {
		return nil, errors.New("registration coordinator requires a database")
	}
	tracker := &Tracker{}
	c := &Coordinator{
		db:          database,
		locks:       newGameLocks(),
		tracker:     tracker,
		promoter:    &Promoter{tracker: tracker},
		notifier:    NopNotifier{},
		lockTimeout: defaultLockTimeout,
		clock:       realClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RegisterOptions carries the caller-supplied registration details.
type RegisterOptions struct {
	Category    models.SpotCategory
	NotifyEmail bool
	NotifySMS   bool
	NotifyPush  bool
}

// RegisterResult is the typed outcome of a register attempt.
type RegisterResult struct {
	Outcome       Outcome
	Reason        string
	Registration  *models.Registration
	WaitlistEntry *models.WaitlistEntry
}

// Register translates "join this game" into a durable outcome: Confirmed
// when capacity is granted, Waitlisted when the game is full and allows a
// waitlist, Rejected (with ErrInvalidState) when the game is not open.
func (c *Coordinator) Register(ctx context.Context, gameID, playerID string, opts RegisterOptions) (RegisterResult, error) {
	release, err := c.locks.Acquire(ctx, gameID, c.lockTimeout)
	if err != nil {
		return RegisterResult{}, err
	}
	defer release()

	now := c.clock.Now()
	var result RegisterResult
	var player models.Player
	var game models.Game

	err = c.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries

		var err error
		game, err = c.loadGame(ctx, q, gameID)
		if err != nil {
			return err
		}
		player, err = c.loadPlayer(ctx, q, playerID)
		if err != nil {
			return err
		}

		if game.Status != models.GameStatusUpcoming {
			result = rejected(fmt.Sprintf("game is %s", game.Status))
			return fmt.Errorf("game %s is %s: %w", game.ID, game.Status, ErrInvalidState)
		}
		if game.GameDate.Before(now) {
			result = rejected("game date has passed")
			return fmt.Errorf("game %s date has passed: %w", game.ID, ErrInvalidState)
		}
		if game.GameType == models.GameTypeWomenOnly && opts.Category != models.CategoryWomen {
			result = rejected("game is women-only")
			return fmt.Errorf("game %s is women-only: %w", game.ID, ErrInvalidState)
		}

		if _, err := q.GetLiveRegistration(ctx, gameID, playerID); err == nil {
			return fmt.Errorf("player %s already registered for game %s: %w", playerID, gameID, ErrAlreadyRegistered)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("load registration: %w", err)
		}
		if _, err := q.GetWaitingEntryForPlayer(ctx, gameID, playerID); err == nil {
			return fmt.Errorf("player %s already on waitlist for game %s: %w", playerID, gameID, ErrAlreadyRegistered)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("load waitlist entry: %w", err)
		}

		paymentStatus := models.PaymentStatusUnpaid
		if game.JoiningFeeCents == 0 {
			paymentStatus = models.PaymentStatusNA
		}

		registration, granted, err := c.tracker.Reserve(ctx, q, game, playerID, opts.Category, paymentStatus, now)
		if err != nil {
			return err
		}
		if granted {
			result = RegisterResult{Outcome: OutcomeConfirmed, Registration: &registration}
			return nil
		}

		if !game.AllowWaitlist {
			result = rejected("game is full and does not keep a waitlist")
			return nil
		}

		entry, err := q.CreateWaitlistEntry(ctx, store.CreateWaitlistEntryParams{
			ID:          uuid.New().String(),
			GameID:      gameID,
			PlayerID:    playerID,
			Category:    opts.Category,
			NotifyEmail: opts.NotifyEmail,
			NotifySMS:   opts.NotifySMS,
			NotifyPush:  opts.NotifyPush,
		})
		if err != nil {
			return fmt.Errorf("create waitlist entry: %w", err)
		}
		result = RegisterResult{Outcome: OutcomeWaitlisted, WaitlistEntry: &entry}
		return nil
	})
	if err != nil {
		if result.Outcome == OutcomeRejected {
			return result, err
		}
		return RegisterResult{}, classify(err)
	}

	switch result.Outcome {
	case OutcomeConfirmed:
		log.Ctx(ctx).Info().
			Str("game_id", gameID).
			Str("player_id", playerID).
			Str("registration_id", result.Registration.ID).
			Msg("Registration confirmed")
		c.notifier.RegistrationConfirmed(ctx, player, game)
	case OutcomeWaitlisted:
		log.Ctx(ctx).Info().
			Str("game_id", gameID).
			Str("player_id", playerID).
			Int64("position", result.WaitlistEntry.Position).
			Msg("Player waitlisted")
		c.notifier.WaitlistJoined(ctx, player, game, *result.WaitlistEntry)
	}
	return result, nil
}

// CancelResult reports a cancellation and, when one happened, the promotion
// it triggered.
type CancelResult struct {
	Registration models.Registration
	Promotion    *Promotion
}

// Cancel marks the player's registration cancelled, releases the slot, and,
// while the game is still upcoming, promotes the next eligible waitlisted
// player. Cancelling twice fails with ErrNotFound on the second call; the
// slot is never double-released.
func (c *Coordinator) Cancel(ctx context.Context, gameID, playerID string) (CancelResult, error) {
	release, err := c.locks.Acquire(ctx, gameID, c.lockTimeout)
	if err != nil {
		return CancelResult{}, err
	}
	defer release()

	now := c.clock.Now()
	var result CancelResult
	var game models.Game
	var promotedPlayer models.Player

	err = c.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries

		var err error
		game, err = c.loadGame(ctx, q, gameID)
		if err != nil {
			return err
		}

		registration, err := q.GetLiveRegistration(ctx, gameID, playerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("no live registration for player %s in game %s: %w", playerID, gameID, ErrNotFound)
			}
			return fmt.Errorf("load registration: %w", err)
		}

		// pending_payment never held a slot; it only exists for a future
		// payment-gated mode and is unreachable in immediate-confirm mode.
		if registration.Status == models.RegistrationStatusPendingPayment {
			cancelled, _, err := c.tracker.Release(ctx, q, registration.ID, now)
			if err != nil {
				return err
			}
			result = CancelResult{Registration: cancelled}
			return nil
		}

		cancelled, released, err := c.tracker.Release(ctx, q, registration.ID, now)
		if err != nil {
			return err
		}
		if !released {
			return fmt.Errorf("registration %s already cancelled: %w", registration.ID, ErrNotFound)
		}
		result = CancelResult{Registration: cancelled}

		// A game that is no longer open cannot seat anyone, so the slot is
		// released without scanning the waitlist. Cancellation itself has no
		// game-state gate: players can always withdraw.
		if game.Status != models.GameStatusUpcoming {
			return nil
		}

		promotion, err := c.promoter.PromoteNext(ctx, q, game, cancelled.Category, now)
		if err != nil {
			return err
		}
		if promotion != nil {
			result.Promotion = promotion
			promotedPlayer, err = c.loadPlayer(ctx, q, promotion.Entry.PlayerID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return CancelResult{}, classify(err)
	}

	log.Ctx(ctx).Info().
		Str("game_id", gameID).
		Str("player_id", playerID).
		Bool("promoted", result.Promotion != nil).
		Msg("Registration cancelled")

	if result.Promotion != nil {
		c.notifier.WaitlistPromoted(ctx, promotedPlayer, game)
	}
	return result, nil
}

// LeaveWaitlist withdraws the player's waiting entry (waiting -> cancelled).
// The position is never reused; later entries keep their FIFO order.
func (c *Coordinator) LeaveWaitlist(ctx context.Context, gameID, playerID string) (models.WaitlistEntry, error) {
	release, err := c.locks.Acquire(ctx, gameID, c.lockTimeout)
	if err != nil {
		return models.WaitlistEntry{}, err
	}
	defer release()

	var entry models.WaitlistEntry
	err = c.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries

		existing, err := q.GetWaitingEntryForPlayer(ctx, gameID, playerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("no waiting entry for player %s in game %s: %w", playerID, gameID, ErrNotFound)
			}
			return fmt.Errorf("load waitlist entry: %w", err)
		}

		entry, err = q.UpdateWaitlistStatus(ctx, store.UpdateWaitlistStatusParams{
			ID:     existing.ID,
			Status: models.WaitlistStatusCancelled,
		})
		if err != nil {
			return fmt.Errorf("cancel waitlist entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.WaitlistEntry{}, classify(err)
	}
	return entry, nil
}

// RecordPayment applies a payment status transition. It never touches
// capacity. Illegal transitions fail with ErrInvalidTransition unless the
// admin override is set.
func (c *Coordinator) RecordPayment(ctx context.Context, registrationID string, to models.PaymentStatus, adminOverride bool) (models.Registration, error) {
	var updated models.Registration
	err := c.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		q := txdb.Queries

		registration, err := q.GetRegistration(ctx, registrationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("registration %s: %w", registrationID, ErrNotFound)
			}
			return fmt.Errorf("load registration: %w", err)
		}

		if !adminOverride && !models.ValidPaymentTransition(registration.PaymentStatus, to) {
			return fmt.Errorf("payment %s -> %s: %w", registration.PaymentStatus, to, ErrInvalidTransition)
		}

		updated, err = q.UpdatePaymentStatus(ctx, store.UpdatePaymentStatusParams{
			ID:            registrationID,
			PaymentStatus: to,
		})
		if err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Registration{}, classify(err)
	}

	log.Ctx(ctx).Info().
		Str("registration_id", registrationID).
		Str("payment_status", string(to)).
		Bool("admin_override", adminOverride).
		Msg("Payment status recorded")
	return updated, nil
}

// Snapshot is the read-only capacity view; it takes no lock.
func (c *Coordinator) Snapshot(ctx context.Context, gameID string) (models.CapacitySnapshot, error) {
	game, err := c.loadGame(ctx, c.db.Queries, gameID)
	if err != nil {
		return models.CapacitySnapshot{}, err
	}
	snapshot, err := c.tracker.Snapshot(ctx, c.db.Queries, game)
	if err != nil {
		return models.CapacitySnapshot{}, classify(err)
	}
	return snapshot, nil
}

// ExpireStaleWaitlistEntries transitions waiting entries older than maxAge
// to expired. Used by the background sweep; expiry frees no capacity, so it
// only needs the per-game lock to keep FIFO scans stable.
func (c *Coordinator) ExpireStaleWaitlistEntries(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := c.clock.Now().Add(-maxAge)
	stale, err := c.db.Queries.ListStaleWaiting(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale waitlist entries: %w", err)
	}

	logger := log.Ctx(ctx)
	expired := 0
	for _, entry := range stale {
		err := func() error {
			release, err := c.locks.Acquire(ctx, entry.GameID, c.lockTimeout)
			if err != nil {
				return err
			}
			defer release()

			_, err = c.db.Queries.UpdateWaitlistStatus(ctx, store.UpdateWaitlistStatusParams{
				ID:     entry.ID,
				Status: models.WaitlistStatusExpired,
			})
			if errors.Is(err, sql.ErrNoRows) {
				// Promoted or withdrawn since the list query; nothing to do.
				return nil
			}
			return err
		}()
		if err != nil {
			logger.Error().Err(err).
				Str("waitlist_id", entry.ID).
				Str("game_id", entry.GameID).
				Msg("Failed to expire waitlist entry")
			continue
		}
		expired++
	}
	return expired, nil
}

func (c *Coordinator) loadGame(ctx context.Context, q *store.Queries, gameID string) (models.Game, error) {
	game, err := q.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Game{}, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
		}
		return models.Game{}, fmt.Errorf("load game: %w", err)
	}
	return game, nil
}

func (c *Coordinator) loadPlayer(ctx context.Context, q *store.Queries, playerID string) (models.Player, error) {
	player, err := q.GetPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Player{}, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
		}
		return models.Player{}, fmt.Errorf("load player: %w", err)
	}
	return player, nil
}

func rejected(reason string) RegisterResult {
	return RegisterResult{Outcome: OutcomeRejected, Reason: reason}
}
