// internal/api/games/handlers.go
package games

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dunkinducks/courtside/internal/api/apiutil"
	appdb "github.com/dunkinducks/courtside/internal/db"
	"github.com/dunkinducks/courtside/internal/db/store"
	"github.com/dunkinducks/courtside/internal/ledger"
	"github.com/dunkinducks/courtside/internal/models"
)

const gameQueryTimeout = 5 * time.Second

var (
	database    *appdb.DB
	coordinator *ledger.Coordinator
	initOnce    sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(db *appdb.DB, coord *ledger.Coordinator) {
	if db == nil || coord == nil {
		log.Warn().Msg("games.InitHandlers called with nil dependencies")
		return
	}
	initOnce.Do(func() {
		database = db
		coordinator = coord
	})
}

type gameCreateRequest struct {
	Title                  string `json:"title"`
	Description            string `json:"description"`
	GameDate               string `json:"game_date"`
	Location               string `json:"location"`
	GameType               string `json:"game_type"`
	SkillLevel             string `json:"skill_level"`
	MaxPlayers             int64  `json:"max_players"`
	WomenReservedSpots     int64  `json:"women_reserved_spots"`
	NonBinaryReservedSpots int64  `json:"non_binary_reserved_spots"`
	JoiningFeeCents        int64  `json:"joining_fee_cents"`
	AllowWaitlist          *bool  `json:"allow_waitlist"`
}

type gameResponse struct {
	models.Game
	Capacity models.CapacitySnapshot `json:"capacity"`
}

// POST /api/v1/games (admin)
func HandleGameCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if database == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	req, err := decodeGameCreateRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	gameDate, err := apiutil.ParseGameDate(req.GameDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	gameType, err := models.ParseGameType(req.GameType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.MaxPlayers <= 0 {
		http.Error(w, "max_players must be greater than 0", http.StatusBadRequest)
		return
	}
	if req.WomenReservedSpots < 0 || req.WomenReservedSpots > req.MaxPlayers {
		http.Error(w, "women_reserved_spots must be between 0 and max_players", http.StatusBadRequest)
		return
	}
	if req.NonBinaryReservedSpots < 0 || req.NonBinaryReservedSpots > req.MaxPlayers {
		http.Error(w, "non_binary_reserved_spots must be between 0 and max_players", http.StatusBadRequest)
		return
	}
	if req.WomenReservedSpots+req.NonBinaryReservedSpots > req.MaxPlayers {
		http.Error(w, "reserved spots cannot exceed max_players", http.StatusBadRequest)
		return
	}
	if req.JoiningFeeCents < 0 {
		http.Error(w, "joining_fee_cents must be 0 or greater", http.StatusBadRequest)
		return
	}

	allowWaitlist := true
	if req.AllowWaitlist != nil {
		allowWaitlist = *req.AllowWaitlist
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	game, err := database.Queries.CreateGame(ctx, store.CreateGameParams{
		ID:                     uuid.New().String(),
		Title:                  req.Title,
		Description:            req.Description,
		GameDate:               gameDate,
		Location:               req.Location,
		GameType:               gameType,
		SkillLevel:             req.SkillLevel,
		MaxPlayers:             req.MaxPlayers,
		WomenReservedSpots:     req.WomenReservedSpots,
		NonBinaryReservedSpots: req.NonBinaryReservedSpots,
		JoiningFeeCents:        req.JoiningFeeCents,
		AllowWaitlist:          allowWaitlist,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create game")
		http.Error(w, "Failed to create game", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, game); err != nil {
		logger.Error().Err(err).Str("game_id", game.ID).Msg("Failed to write game response")
	}
}

// GET /api/v1/games
func HandleGamesList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if database == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	var games []models.Game
	var err error
	if status != "" {
		games, err = database.Queries.ListGamesByStatus(ctx, models.GameStatus(status))
	} else {
		games, err = database.Queries.ListGames(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list games")
		http.Error(w, "Failed to load games", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, games); err != nil {
		logger.Error().Err(err).Msg("Failed to write games response")
	}
}

// GET /api/v1/games/{id}
func HandleGameDetail(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if database == nil || coordinator == nil {
		logger.Error().Msg("Handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	game, err := database.Queries.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to load game")
		http.Error(w, "Failed to load game", http.StatusInternalServerError)
		return
	}

	snapshot, err := coordinator.Snapshot(ctx, gameID)
	if err != nil {
		apiutil.WriteLedgerError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, gameResponse{Game: game, Capacity: snapshot}); err != nil {
		logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to write game response")
	}
}

// POST /api/v1/games/{id}/cancel (admin)
func HandleGameCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if database == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	game, err := database.Queries.UpdateGameStatus(ctx, store.UpdateGameStatusParams{
		ID:     gameID,
		Status: models.GameStatusCancelled,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Game not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to cancel game")
		http.Error(w, "Failed to cancel game", http.StatusInternalServerError)
		return
	}

	logger.Info().Str("game_id", gameID).Msg("Game cancelled")
	if err := apiutil.WriteJSON(w, http.StatusOK, game); err != nil {
		logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to write game response")
	}
}

// GET /api/v1/games/{id}/waitlist (admin)
func HandleGameWaitlist(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if database == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gameID, err := gameIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameQueryTimeout)
	defer cancel()

	entries, err := database.Queries.ListWaitingEntries(ctx, gameID)
	if err != nil {
		logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to list waitlist")
		http.Error(w, "Failed to load waitlist", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, entries); err != nil {
		logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to write waitlist response")
	}
}

func decodeGameCreateRequest(r *http.Request) (gameCreateRequest, error) {
	if apiutil.IsJSONRequest(r) {
		var req gameCreateRequest
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			return gameCreateRequest{}, err
		}
		if _, err := apiutil.ParseRequiredField(req.Title, "title"); err != nil {
			return gameCreateRequest{}, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return gameCreateRequest{}, fmt.Errorf("invalid form data")
	}

	req := gameCreateRequest{}
	title, err := apiutil.ParseRequiredField(r.FormValue("title"), "title")
	if err != nil {
		return gameCreateRequest{}, err
	}
	req.Title = title
	req.Description = strings.TrimSpace(r.FormValue("description"))
	req.GameDate = strings.TrimSpace(r.FormValue("game_date"))
	req.Location = strings.TrimSpace(r.FormValue("location"))
	req.GameType = strings.TrimSpace(r.FormValue("game_type"))
	req.SkillLevel = strings.TrimSpace(r.FormValue("skill_level"))

	if req.MaxPlayers, err = apiutil.ParsePositiveInt64Field(r.FormValue("max_players"), "max_players"); err != nil {
		return gameCreateRequest{}, err
	}
	if req.WomenReservedSpots, err = apiutil.ParseNonNegativeInt64Field(r.FormValue("women_reserved_spots"), "women_reserved_spots"); err != nil {
		return gameCreateRequest{}, err
	}
	if req.NonBinaryReservedSpots, err = apiutil.ParseNonNegativeInt64Field(r.FormValue("non_binary_reserved_spots"), "non_binary_reserved_spots"); err != nil {
		return gameCreateRequest{}, err
	}
	if req.JoiningFeeCents, err = apiutil.ParseNonNegativeInt64Field(r.FormValue("joining_fee_cents"), "joining_fee_cents"); err != nil {
		return gameCreateRequest{}, err
	}
	if raw := r.FormValue("allow_waitlist"); raw != "" {
		allow := apiutil.ParseBoolField(raw)
		req.AllowWaitlist = &allow
	}
	return req, nil
}

func gameIDFromRequest(r *http.Request) (string, error) {
	gameID := strings.TrimSpace(r.PathValue("id"))
	if gameID == "" {
		return "", fmt.Errorf("invalid game ID")
	}
	return gameID, nil
}
