package store

import (
	"context"

	"github.com/dunkinducks/courtside/internal/models"
)

const playerColumns = `id, full_name, email, mobile, skill_level, created_at, updated_at`

type CreatePlayerParams struct {
	ID         string
	FullName   string
	Email      string
	Mobile     string
	SkillLevel string
}

func (q *Queries) CreatePlayer(ctx context.Context, arg CreatePlayerParams) (models.Player, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO players (id, full_name, email, mobile, skill_level)
		VALUES (?, ?, ?, ?, ?)
		RETURNING `+playerColumns,
		arg.ID, arg.FullName, arg.Email, arg.Mobile, arg.SkillLevel,
	)
	return scanPlayer(row)
}

func (q *Queries) GetPlayer(ctx context.Context, id string) (models.Player, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id)
	return scanPlayer(row)
}

func (q *Queries) GetPlayerByEmail(ctx context.Context, email string) (models.Player, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE email = ?`, email)
	return scanPlayer(row)
}

type UpdatePlayerParams struct {
	ID         string
	FullName   string
	Mobile     string
	SkillLevel string
}

func (q *Queries) UpdatePlayer(ctx context.Context, arg UpdatePlayerParams) (models.Player, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE players
		SET full_name = ?, mobile = ?, skill_level = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING `+playerColumns,
		arg.FullName, arg.Mobile, arg.SkillLevel, arg.ID,
	)
	return scanPlayer(row)
}

func scanPlayer(row scannable) (models.Player, error) {
	var player models.Player
	err := row.Scan(
		&player.ID, &player.FullName, &player.Email, &player.Mobile,
		&player.SkillLevel, &player.CreatedAt, &player.UpdatedAt,
	)
	if err != nil {
		return models.Player{}, err
	}
	return player, nil
}
