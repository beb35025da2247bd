package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/dunkinducks/courtside/internal/models"
)

const registrationColumns = `id, game_id, player_id, status, payment_status, category,
	created_at, confirmed_at, cancelled_at`

type CreateRegistrationParams struct {
	ID            string
	GameID        string
	PlayerID      string
	Status        models.RegistrationStatus
	PaymentStatus models.PaymentStatus
	Category      models.SpotCategory
	ConfirmedAt   time.Time
}

func (q *Queries) CreateRegistration(ctx context.Context, arg CreateRegistrationParams) (models.Registration, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO registrations (id, game_id, player_id, status, payment_status, category, confirmed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+registrationColumns,
		arg.ID, arg.GameID, arg.PlayerID, arg.Status, arg.PaymentStatus,
		arg.Category, arg.ConfirmedAt,
	)
	return scanRegistration(row)
}

func (q *Queries) GetRegistration(ctx context.Context, id string) (models.Registration, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id)
	return scanRegistration(row)
}

// GetLiveRegistration returns the player's non-cancelled registration for a
// game, if any. The partial unique index guarantees at most one exists.
func (q *Queries) GetLiveRegistration(ctx context.Context, gameID, playerID string) (models.Registration, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE game_id = ? AND player_id = ? AND status != 'cancelled'`,
		gameID, playerID)
	return scanRegistration(row)
}

type CancelRegistrationParams struct {
	ID          string
	CancelledAt time.Time
}

func (q *Queries) CancelRegistration(ctx context.Context, arg CancelRegistrationParams) (models.Registration, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE registrations
		SET status = 'cancelled', cancelled_at = ?
		WHERE id = ? AND status != 'cancelled'
		RETURNING `+registrationColumns,
		arg.CancelledAt, arg.ID,
	)
	return scanRegistration(row)
}

type UpdatePaymentStatusParams struct {
	ID            string
	PaymentStatus models.PaymentStatus
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (models.Registration, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE registrations
		SET payment_status = ?
		WHERE id = ?
		RETURNING `+registrationColumns,
		arg.PaymentStatus, arg.ID,
	)
	return scanRegistration(row)
}

func (q *Queries) CountConfirmed(ctx context.Context, gameID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM registrations
		WHERE game_id = ? AND status IN ('confirmed', 'checked_in')`,
		gameID).Scan(&count)
	return count, err
}

type CategoryCount struct {
	Category models.SpotCategory
	Count    int64
}

func (q *Queries) CountConfirmedByCategory(ctx context.Context, gameID string) ([]CategoryCount, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT category, COUNT(*)
		FROM registrations
		WHERE game_id = ? AND status IN ('confirmed', 'checked_in')
		GROUP BY category`,
		gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

type RegistrationWithPlayer struct {
	Registration models.Registration `json:"registration"`
	PlayerName   string              `json:"player_name"`
	PlayerEmail  string              `json:"player_email"`
}

func (q *Queries) ListGameRegistrations(ctx context.Context, gameID string) ([]RegistrationWithPlayer, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT r.id, r.game_id, r.player_id, r.status, r.payment_status, r.category,
			r.created_at, r.confirmed_at, r.cancelled_at, p.full_name, p.email
		FROM registrations r
		JOIN players p ON p.id = r.player_id
		WHERE r.game_id = ? AND r.status != 'cancelled'
		ORDER BY r.created_at ASC`,
		gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RegistrationWithPlayer
	for rows.Next() {
		var item RegistrationWithPlayer
		var confirmedAt, cancelledAt sql.NullTime
		err := rows.Scan(
			&item.Registration.ID, &item.Registration.GameID, &item.Registration.PlayerID,
			&item.Registration.Status, &item.Registration.PaymentStatus,
			&item.Registration.Category, &item.Registration.CreatedAt,
			&confirmedAt, &cancelledAt, &item.PlayerName, &item.PlayerEmail,
		)
		if err != nil {
			return nil, err
		}
		item.Registration.ConfirmedAt = nullTime(confirmedAt)
		item.Registration.CancelledAt = nullTime(cancelledAt)
		results = append(results, item)
	}
	return results, rows.Err()
}

func scanRegistration(row scannable) (models.Registration, error) {
	var reg models.Registration
	var confirmedAt, cancelledAt sql.NullTime
	err := row.Scan(
		&reg.ID, &reg.GameID, &reg.PlayerID, &reg.Status, &reg.PaymentStatus,
		&reg.Category, &reg.CreatedAt, &confirmedAt, &cancelledAt,
	)
	if err != nil {
		return models.Registration{}, err
	}
	reg.ConfirmedAt = nullTime(confirmedAt)
	reg.CancelledAt = nullTime(cancelledAt)
	return reg, nil
}
