package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dunkinducks/courtside/internal/db/store"
	"github.com/dunkinducks/courtside/internal/models"
)

// Promoter converts waitlist entries into confirmed registrations when a
// slot frees up. It runs inside the caller's transaction and per-game lock.
type Promoter struct {
	tracker *Tracker
}

// Promotion records a successful waitlist promotion.
type Promotion struct {
	Entry        models.WaitlistEntry
	Registration models.Registration
}

// PromoteNext offers the freed slot to the longest-waiting eligible player.
// Entries whose category matches the freed slot are considered first, in
// position order, then the remaining entries in position order. Each
// candidate goes back through Tracker.Reserve so the reserved-floor rules
// hold for promotions exactly as for direct registrations; a candidate the
// tracker refuses is skipped and the scan continues with the next entry.
// Returns nil when no eligible waiting entry exists: the freed slot then
// stays open for the next direct registration attempt.
func (p *Promoter) PromoteNext(ctx context.Context, q *store.Queries, game models.Game, freedCategory models.SpotCategory, now time.Time) (*Promotion, error) {
	entries, err := q.ListWaitingEntries(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("list waiting entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	logger := log.Ctx(ctx).With().Str("game_id", game.ID).Logger()

	for _, entry := range orderCandidates(entries, freedCategory) {
		paymentStatus := models.PaymentStatusUnpaid
		if game.JoiningFeeCents == 0 {
			paymentStatus = models.PaymentStatusNA
		}

		registration, granted, err := p.tracker.Reserve(ctx, q, game, entry.PlayerID, entry.Category, paymentStatus, now)
		if err != nil {
			return nil, err
		}
		if !granted {
			logger.Debug().
				Str("waitlist_id", entry.ID).
				Int64("position", entry.Position).
				Str("category", string(entry.Category)).
				Msg("Waitlist candidate refused by tracker, trying next")
			continue
		}

		promoted, err := q.UpdateWaitlistStatus(ctx, store.UpdateWaitlistStatusParams{
			ID:     entry.ID,
			Status: models.WaitlistStatusPromoted,
		})
		if err != nil {
			return nil, fmt.Errorf("mark waitlist entry promoted: %w", err)
		}

		logger.Info().
			Str("waitlist_id", promoted.ID).
			Str("player_id", promoted.PlayerID).
			Int64("position", promoted.Position).
			Msg("Promoted waitlist entry")

		return &Promotion{Entry: promoted, Registration: registration}, nil
	}

	return nil, nil
}

// orderCandidates puts entries matching the freed category first, each group
// FIFO by position. ListWaitingEntries already returns position order, so a
// stable partition preserves it.
func orderCandidates(entries []models.WaitlistEntry, freedCategory models.SpotCategory) []models.WaitlistEntry {
	ordered := make([]models.WaitlistEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Category == freedCategory {
			ordered = append(ordered, entry)
		}
	}
	for _, entry := range entries {
		if entry.Category != freedCategory {
			ordered = append(ordered, entry)
		}
	}
	return ordered
}
