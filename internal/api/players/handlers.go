// internal/api/players/handlers.go
package players

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
	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog/log"

	"github.com/dunkinducks/courtside/internal/api/apiutil"
	appdb "github.com/dunkinducks/courtside/internal/db"
	"github.com/dunkinducks/courtside/internal/db/store"
)

const playerQueryTimeout = 5 * time.Second

// defaultPhoneRegion backstops the config knob when InitHandlers gets an
// empty region.
const defaultPhoneRegion = "AU"

var (
	database    *appdb.DB
	phoneRegion = defaultPhoneRegion
	initOnce    sync.Once
)

// InitHandlers must be called during server startup before handling requests.
// The region (config app.phone_region) is used to parse mobile numbers given
// without a country prefix.
func InitHandlers(db *appdb.DB, region string) {
	if db == nil {
		log.Warn().Msg("players.InitHandlers called with nil database")
		return
	}
	initOnce.Do(func() {
		database = db
		if region != "" {
			phoneRegion = region
		}
	})
}

type playerRequest struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Mobile     string `json:"mobile"`
	SkillLevel string `json:"skill_level"`
}

// POST /api/v1/players
func HandlePlayerCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if database == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	req, err := decodePlayerRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	email, err := parseEmail(req.Email)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mobile, err := normalizeMobile(req.Mobile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playerQueryTimeout)
	defer cancel()

	player, err := database.Queries.CreatePlayer(ctx, store.CreatePlayerParams{
		ID:         uuid.New().String(),
		FullName:   req.FullName,
		Email:      email,
		Mobile:     mobile,
		SkillLevel: req.SkillLevel,
	})
	if err != nil {
		if apiutil.IsSQLiteUniqueViolation(err) {
			http.Error(w, "A player with this email already exists", http.StatusConflict)
			return
		}
		logger.Error().Err(err).Msg("Failed to create player")
		http.Error(w, "Failed to create player", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, player); err != nil {
		logger.Error().Err(err).Str("player_id", player.ID).Msg("Failed to write player response")
	}
}

// GET /api/v1/players?email=...
func HandlePlayerLookup(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if database == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	if email == "" {
		http.Error(w, "email query parameter is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playerQueryTimeout)
	defer cancel()

	player, err := database.Queries.GetPlayerByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Player not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to look up player")
		http.Error(w, "Failed to look up player", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, player); err != nil {
		logger.Error().Err(err).Str("player_id", player.ID).Msg("Failed to write player response")
	}
}

// GET /api/v1/players/{id}
func HandlePlayerDetail(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if database == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	playerID := strings.TrimSpace(r.PathValue("id"))
	if playerID == "" {
		http.Error(w, "invalid player ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playerQueryTimeout)
	defer cancel()

	player, err := database.Queries.GetPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Player not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("player_id", playerID).Msg("Failed to load player")
		http.Error(w, "Failed to load player", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, player); err != nil {
		logger.Error().Err(err).Str("player_id", playerID).Msg("Failed to write player response")
	}
}

// PUT /api/v1/players/{id}
func HandlePlayerUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if database == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	playerID := strings.TrimSpace(r.PathValue("id"))
	if playerID == "" {
		http.Error(w, "invalid player ID", http.StatusBadRequest)
		return
	}
	req, err := decodePlayerRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mobile, err := normalizeMobile(req.Mobile)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playerQueryTimeout)
	defer cancel()

	player, err := database.Queries.UpdatePlayer(ctx, store.UpdatePlayerParams{
		ID:         playerID,
		FullName:   req.FullName,
		Mobile:     mobile,
		SkillLevel: req.SkillLevel,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Player not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("player_id", playerID).Msg("Failed to update player")
		http.Error(w, "Failed to update player", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, player); err != nil {
		logger.Error().Err(err).Str("player_id", playerID).Msg("Failed to write player response")
	}
}

func decodePlayerRequest(r *http.Request) (playerRequest, error) {
	var req playerRequest
	if apiutil.IsJSONRequest(r) {
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			return playerRequest{}, fmt.Errorf("invalid JSON body")
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return playerRequest{}, fmt.Errorf("invalid form data")
		}
		req.FullName = r.FormValue("full_name")
		req.Email = r.FormValue("email")
		req.Mobile = r.FormValue("mobile")
		req.SkillLevel = r.FormValue("skill_level")
	}

	fullName, err := apiutil.ParseRequiredField(req.FullName, "full_name")
	if err != nil {
		return playerRequest{}, err
	}
	req.FullName = fullName
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.SkillLevel = strings.TrimSpace(req.SkillLevel)
	return req, nil
}

func parseEmail(raw string) (string, error) {
	email, err := apiutil.ParseRequiredField(raw, "email")
	if err != nil {
		return "", err
	}
	if !strings.Contains(email, "@") {
		return "", apiutil.FieldError{Field: "email", Reason: "must be a valid email address"}
	}
	return strings.ToLower(email), nil
}

// normalizeMobile stores numbers in E.164 so SMS notices have a single
// canonical format. An empty number is allowed.
func normalizeMobile(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	parsed, err := phonenumbers.Parse(raw, phoneRegion)
	if err != nil {
		return "", apiutil.FieldError{Field: "mobile", Reason: "must be a valid phone number"}
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", apiutil.FieldError{Field: "mobile", Reason: "must be a valid phone number"}
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
