package ledger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	appdb "github.com/dunkinducks/courtside/internal/db"
	"github.com/dunkinducks/courtside/internal/db/store"
	"github.com/dunkinducks/courtside/internal/ledger"
	"github.com/dunkinducks/courtside/internal/models"
	"github.com/dunkinducks/courtside/internal/testutil"
)

type gameSeed struct {
	gameType               models.GameType
	maxPlayers             int64
	womenReservedSpots     int64
	nonBinaryReservedSpots int64
	joiningFeeCents        int64
	allowWaitlist          bool
	gameDate               time.Time
}

func newLedgerTest(t *testing.T) (*appdb.DB, *ledger.Coordinator) {
	t.Helper()

	database := testutil.NewTestDB(t)
	coordinator, err := ledger.NewCoordinator(database)
	if err != nil {
		t.Fatalf("create coordinator: %v", err)
	}
	return database, coordinator
}

func seedGame(t *testing.T, database *appdb.DB, seed gameSeed) models.Game {
	t.Helper()

	if seed.gameType == "" {
		seed.gameType = models.GameTypeMixed
	}
	if seed.gameDate.IsZero() {
		seed.gameDate = time.Now().Add(24 * time.Hour)
	}

	game, err := database.Queries.CreateGame(context.Background(), store.CreateGameParams{
		ID:                     uuid.New().String(),
		Title:                  "Thursday Run",
		GameDate:               seed.gameDate,
		Location:               "Court 1",
		GameType:               seed.gameType,
		MaxPlayers:             seed.maxPlayers,
		WomenReservedSpots:     seed.womenReservedSpots,
		NonBinaryReservedSpots: seed.nonBinaryReservedSpots,
		JoiningFeeCents:        seed.joiningFeeCents,
		AllowWaitlist:          seed.allowWaitlist,
	})
	if err != nil {
		t.Fatalf("seed game: %v", err)
	}
	return game
}

func seedPlayer(t *testing.T, database *appdb.DB, name string) models.Player {
	t.Helper()

	player, err := database.Queries.CreatePlayer(context.Background(), store.CreatePlayerParams{
		ID:       uuid.New().String(),
		FullName: name,
		Email:    fmt.Sprintf("%s@dunkinducks.example", uuid.New().String()[:8]),
	})
	if err != nil {
		t.Fatalf("seed player %s: %v", name, err)
	}
	return player
}

func mustRegister(t *testing.T, coordinator *ledger.Coordinator, gameID, playerID string, category models.SpotCategory) ledger.RegisterResult {
	t.Helper()

	result, err := coordinator.Register(context.Background(), gameID, playerID, ledger.RegisterOptions{Category: category})
	if err != nil {
		t.Fatalf("register player %s: %v", playerID, err)
	}
	return result
}
