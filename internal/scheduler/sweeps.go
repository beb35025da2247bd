package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dunkinducks/courtside/internal/db"
	"github.com/dunkinducks/courtside/internal/ledger"
)

// ExpireStaleWaitlistEntries sweeps waiting entries older than maxAge into
// the expired state. Expiry frees no capacity; it keeps waitlists from
// accumulating players who signed up weeks ago and moved on.
func ExpireStaleWaitlistEntries(ctx context.Context, coordinator *ledger.Coordinator, maxAge time.Duration) error {
	if coordinator == nil {
		return fmt.Errorf("waitlist expiry requires the registration coordinator")
	}

	expired, err := coordinator.ExpireStaleWaitlistEntries(ctx, maxAge)
	if err != nil {
		return fmt.Errorf("expire stale waitlist entries: %w", err)
	}
	if expired > 0 {
		log.Ctx(ctx).Info().Int("expired", expired).Msg("Expired stale waitlist entries")
	}
	return nil
}

// CompletePastGames transitions upcoming games whose date has passed to
// completed, closing them to further registration.
func CompletePastGames(ctx context.Context, database *db.DB, now time.Time) error {
	if database == nil {
		return fmt.Errorf("game completion sweep requires database")
	}

	completed, err := database.Queries.MarkPastGamesCompleted(ctx, now)
	if err != nil {
		return fmt.Errorf("mark past games completed: %w", err)
	}
	if completed > 0 {
		log.Ctx(ctx).Info().Int64("completed_games", completed).Msg("Marked past games completed")
	}
	return nil
}
