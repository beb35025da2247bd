package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dunkinducks/courtside/internal/db/store"
	"github.com/dunkinducks/courtside/internal/models"
	"github.com/dunkinducks/courtside/internal/testutil"
)

func TestCompletePastGames(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	past, err := database.Queries.CreateGame(ctx, store.CreateGameParams{
		ID:         uuid.New().String(),
		Title:      "Last Week",
		GameDate:   now.Add(-7 * 24 * time.Hour),
		GameType:   models.GameTypeMixed,
		MaxPlayers: 10,
	})
	if err != nil {
		t.Fatalf("seed past game: %v", err)
	}

	future, err := database.Queries.CreateGame(ctx, store.CreateGameParams{
		ID:         uuid.New().String(),
		Title:      "Next Week",
		GameDate:   now.Add(7 * 24 * time.Hour),
		GameType:   models.GameTypeMixed,
		MaxPlayers: 10,
	})
	if err != nil {
		t.Fatalf("seed future game: %v", err)
	}

	if err := CompletePastGames(ctx, database, now); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	pastGame, err := database.Queries.GetGame(ctx, past.ID)
	if err != nil {
		t.Fatalf("load past game: %v", err)
	}
	if pastGame.Status != models.GameStatusCompleted {
		t.Errorf("past game status = %s, want completed", pastGame.Status)
	}

	futureGame, err := database.Queries.GetGame(ctx, future.ID)
	if err != nil {
		t.Fatalf("load future game: %v", err)
	}
	if futureGame.Status != models.GameStatusUpcoming {
		t.Errorf("future game status = %s, want upcoming", futureGame.Status)
	}
}

func TestCompletePastGamesNilDatabase(t *testing.T) {
	if err := CompletePastGames(context.Background(), nil, time.Now()); err == nil {
		t.Error("expected an error with nil database")
	}
}

func TestExpireStaleWaitlistEntriesNilCoordinator(t *testing.T) {
	if err := ExpireStaleWaitlistEntries(context.Background(), nil, time.Hour); err == nil {
		t.Error("expected an error with nil coordinator")
	}
}
