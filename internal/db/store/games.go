package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/dunkinducks/courtside/internal/models"
)

const gameColumns = `id, title, description, game_date, location, game_type, skill_level,
	max_players, women_reserved_spots, non_binary_reserved_spots, joining_fee_cents,
	status, allow_waitlist, created_at, updated_at`

type CreateGameParams struct {
	ID                     string
	Title                  string
	Description            string
	GameDate               time.Time
	Location               string
	GameType               models.GameType
	SkillLevel             string
	MaxPlayers             int64
	WomenReservedSpots     int64
	NonBinaryReservedSpots int64
	JoiningFeeCents        int64
	AllowWaitlist          bool
}

func (q *Queries) CreateGame(ctx context.Context, arg CreateGameParams) (models.Game, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO games (
			id, title, description, game_date, location, game_type, skill_level,
			max_players, women_reserved_spots, non_binary_reserved_spots,
			joining_fee_cents, status, allow_waitlist
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'upcoming', ?)
		RETURNING `+gameColumns,
		arg.ID, arg.Title, arg.Description, arg.GameDate, arg.Location,
		arg.GameType, arg.SkillLevel, arg.MaxPlayers, arg.WomenReservedSpots,
		arg.NonBinaryReservedSpots, arg.JoiningFeeCents, arg.AllowWaitlist,
	)
	return scanGame(row)
}

func (q *Queries) GetGame(ctx context.Context, id string) (models.Game, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	return scanGame(row)
}

func (q *Queries) ListGames(ctx context.Context) ([]models.Game, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+gameColumns+` FROM games ORDER BY game_date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

func (q *Queries) ListGamesByStatus(ctx context.Context, status models.GameStatus) ([]models.Game, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE status = ? ORDER BY game_date ASC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

type UpdateGameStatusParams struct {
	ID     string
	Status models.GameStatus
}

func (q *Queries) UpdateGameStatus(ctx context.Context, arg UpdateGameStatusParams) (models.Game, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE games
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING `+gameColumns,
		arg.Status, arg.ID,
	)
	return scanGame(row)
}

// MarkPastGamesCompleted transitions upcoming games whose date has passed.
func (q *Queries) MarkPastGamesCompleted(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE games
		SET status = 'completed', updated_at = CURRENT_TIMESTAMP
		WHERE status = 'upcoming' AND game_date < ?`,
		before,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanGame(row scannable) (models.Game, error) {
	var game models.Game
	var allowWaitlist int64
	err := row.Scan(
		&game.ID, &game.Title, &game.Description, &game.GameDate, &game.Location,
		&game.GameType, &game.SkillLevel, &game.MaxPlayers, &game.WomenReservedSpots,
		&game.NonBinaryReservedSpots, &game.JoiningFeeCents, &game.Status,
		&allowWaitlist, &game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		return models.Game{}, err
	}
	game.AllowWaitlist = allowWaitlist != 0
	return game, nil
}

func nullTime(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}
