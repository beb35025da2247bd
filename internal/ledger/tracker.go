package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dunkinducks/courtside/internal/db/store"
	"github.com/dunkinducks/courtside/internal/models"
)

// Tracker owns the authoritative confirmed count per game. The count is
// never stored: it is derived by COUNT over registration rows inside the
// same transaction that mutates them, so it cannot drift. Tracker methods
// must run under the per-game lock held by the Coordinator.
type Tracker struct{}

// Reserve decides whether the game can accept one more confirmed registrant
// in the given category and, when it can, consummates the grant by inserting
// the confirmed registration row. It returns granted=false for an ordinary
// full game; that is a normal result, not an error.
//
// Reserved-category spots are hard floors: a general registrant is refused
// once the remaining open slots are all needed to satisfy unmet reserved
// minimums. Reserved-category registrants contend only against max_players.
func (t *Tracker) Reserve(ctx context.Context, q *store.Queries, game models.Game, playerID string, category models.SpotCategory, paymentStatus models.PaymentStatus, now time.Time) (models.Registration, bool, error) {
	if game.Status != models.GameStatusUpcoming {
		return models.Registration{}, false, fmt.Errorf("game %s is %s: %w", game.ID, game.Status, ErrInvalidState)
	}

	total, byCategory, err := t.confirmedCounts(ctx, q, game.ID)
	if err != nil {
		return models.Registration{}, false, err
	}

	if total >= game.MaxPlayers {
		return models.Registration{}, false, nil
	}

	if category == models.CategoryGeneral {
		remaining := game.MaxPlayers - total
		unmet := unmetReserved(game, byCategory)
		if remaining <= unmet {
			return models.Registration{}, false, nil
		}
	}

	registration, err := q.CreateRegistration(ctx, store.CreateRegistrationParams{
		ID:            uuid.New().String(),
		GameID:        game.ID,
		PlayerID:      playerID,
		Status:        models.RegistrationStatusConfirmed,
		PaymentStatus: paymentStatus,
		Category:      category,
		ConfirmedAt:   now,
	})
	if err != nil {
		return models.Registration{}, false, fmt.Errorf("create registration: %w", err)
	}
	return registration, true, nil
}

// Release frees the slot held by a confirmed registration by marking the row
// cancelled. Releasing an already-cancelled registration is a no-op reported
// as a warning, not an error.
func (t *Tracker) Release(ctx context.Context, q *store.Queries, registrationID string, now time.Time) (models.Registration, bool, error) {
	registration, err := q.CancelRegistration(ctx, store.CancelRegistrationParams{
		ID:          registrationID,
		CancelledAt: now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Ctx(ctx).Warn().
				Str("registration_id", registrationID).
				Msg("Release requested for registration that holds no slot")
			return models.Registration{}, false, nil
		}
		return models.Registration{}, false, fmt.Errorf("cancel registration: %w", err)
	}
	return registration, true, nil
}

// IsFull reports whether the game has reached max_players.
func (t *Tracker) IsFull(ctx context.Context, q *store.Queries, game models.Game) (bool, error) {
	total, err := q.CountConfirmed(ctx, game.ID)
	if err != nil {
		return false, fmt.Errorf("count confirmed: %w", err)
	}
	return total >= game.MaxPlayers, nil
}

// Snapshot returns the read-only per-game capacity view exposed to the UI.
func (t *Tracker) Snapshot(ctx context.Context, q *store.Queries, game models.Game) (models.CapacitySnapshot, error) {
	total, byCategory, err := t.confirmedCounts(ctx, q, game.ID)
	if err != nil {
		return models.CapacitySnapshot{}, err
	}
	waiting, err := q.CountWaiting(ctx, game.ID)
	if err != nil {
		return models.CapacitySnapshot{}, fmt.Errorf("count waiting: %w", err)
	}

	breakdown := make(map[string]int64, len(byCategory))
	for category, count := range byCategory {
		breakdown[string(category)] = count
	}
	return models.CapacitySnapshot{
		GameID:            game.ID,
		ConfirmedCount:    total,
		MaxPlayers:        game.MaxPlayers,
		CategoryBreakdown: breakdown,
		WaitlistLength:    waiting,
	}, nil
}

func (t *Tracker) confirmedCounts(ctx context.Context, q *store.Queries, gameID string) (int64, map[models.SpotCategory]int64, error) {
	counts, err := q.CountConfirmedByCategory(ctx, gameID)
	if err != nil {
		return 0, nil, fmt.Errorf("count confirmed by category: %w", err)
	}
	var total int64
	byCategory := make(map[models.SpotCategory]int64, len(counts))
	for _, c := range counts {
		total += c.Count
		byCategory[c.Category] = c.Count
	}
	return total, byCategory, nil
}

// unmetReserved is the number of open slots still owed to reserved
// categories as the game fills.
func unmetReserved(game models.Game, byCategory map[models.SpotCategory]int64) int64 {
	var unmet int64
	if deficit := game.WomenReservedSpots - byCategory[models.CategoryWomen]; deficit > 0 {
		unmet += deficit
	}
	if deficit := game.NonBinaryReservedSpots - byCategory[models.CategoryNonBinary]; deficit > 0 {
		unmet += deficit
	}
	return unmet
}
