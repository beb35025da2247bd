package store

import (
	"context"
	"time"

	"github.com/dunkinducks/courtside/internal/models"
)

const waitlistColumns = `id, game_id, player_id, position, category,
	notify_email, notify_sms, notify_push, status, created_at`

type CreateWaitlistEntryParams struct {
	ID          string
	GameID      string
	PlayerID    string
	Category    models.SpotCategory
	NotifyEmail bool
	NotifySMS   bool
	NotifyPush  bool
}

// CreateWaitlistEntry appends the player at the tail of the game's waitlist.
// The position subquery and the unique (game_id, position) index together
// keep positions strictly increasing; callers run this inside the per-game
// lock so the MAX read cannot race.
func (q *Queries) CreateWaitlistEntry(ctx context.Context, arg CreateWaitlistEntryParams) (models.WaitlistEntry, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO waitlist_entries (id, game_id, player_id, position, category,
			notify_email, notify_sms, notify_push, status)
		SELECT ?, ?, ?, COALESCE(MAX(position), 0) + 1, ?, ?, ?, ?, 'waiting'
		FROM waitlist_entries WHERE game_id = ?
		RETURNING `+waitlistColumns,
		arg.ID, arg.GameID, arg.PlayerID, arg.Category,
		arg.NotifyEmail, arg.NotifySMS, arg.NotifyPush, arg.GameID,
	)
	return scanWaitlistEntry(row)
}

func (q *Queries) GetWaitlistEntry(ctx context.Context, id string) (models.WaitlistEntry, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = ?`, id)
	return scanWaitlistEntry(row)
}

func (q *Queries) GetWaitingEntryForPlayer(ctx context.Context, gameID, playerID string) (models.WaitlistEntry, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE game_id = ? AND player_id = ? AND status = 'waiting'`,
		gameID, playerID)
	return scanWaitlistEntry(row)
}

func (q *Queries) ListWaitingEntries(ctx context.Context, gameID string) ([]models.WaitlistEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE game_id = ? AND status = 'waiting'
		ORDER BY position ASC`,
		gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.WaitlistEntry
	for rows.Next() {
		entry, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (q *Queries) CountWaiting(ctx context.Context, gameID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM waitlist_entries
		WHERE game_id = ? AND status = 'waiting'`,
		gameID).Scan(&count)
	return count, err
}

type UpdateWaitlistStatusParams struct {
	ID     string
	Status models.WaitlistStatus
}

func (q *Queries) UpdateWaitlistStatus(ctx context.Context, arg UpdateWaitlistStatusParams) (models.WaitlistEntry, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE waitlist_entries
		SET status = ?
		WHERE id = ? AND status = 'waiting'
		RETURNING `+waitlistColumns,
		arg.Status, arg.ID,
	)
	return scanWaitlistEntry(row)
}

// ListStaleWaiting returns waiting entries created before the cutoff, across
// all games, for the expiry sweep.
func (q *Queries) ListStaleWaiting(ctx context.Context, createdBefore time.Time) ([]models.WaitlistEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE status = 'waiting' AND created_at < ?
		ORDER BY game_id, position ASC`,
		createdBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.WaitlistEntry
	for rows.Next() {
		entry, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanWaitlistEntry(row scannable) (models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	var notifyEmail, notifySMS, notifyPush int64
	err := row.Scan(
		&entry.ID, &entry.GameID, &entry.PlayerID, &entry.Position, &entry.Category,
		&notifyEmail, &notifySMS, &notifyPush, &entry.Status, &entry.CreatedAt,
	)
	if err != nil {
		return models.WaitlistEntry{}, err
	}
	entry.NotifyEmail = notifyEmail != 0
	entry.NotifySMS = notifySMS != 0
	entry.NotifyPush = notifyPush != 0
	return entry, nil
}
