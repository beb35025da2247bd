// internal/api/registrations/handlers.go
package registrations

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dunkinducks/courtside/internal/api/apiutil"
	appdb "github.com/dunkinducks/courtside/internal/db"
	"github.com/dunkinducks/courtside/internal/ledger"
	"github.com/dunkinducks/courtside/internal/models"
)

const registrationQueryTimeout = 10 * time.Second

var (
	database    *appdb.DB
	coordinator *ledger.Coordinator
	initOnce    sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(db *appdb.DB, coord *ledger.Coordinator) {
	if db == nil || coord == nil {
		log.Warn().Msg("registrations.InitHandlers called with nil dependencies")
		return
	}
	initOnce.Do(func() {
		database = db
		coordinator = coord
	})
}

type registerRequest struct {
	PlayerID    string `json:"player_id"`
	Category    string `json:"category"`
	NotifyEmail *bool  `json:"notify_email"`
	NotifySMS   *bool  `json:"notify_sms"`
	NotifyPush  *bool  `json:"notify_push"`
}

type registerResponse struct {
	Outcome       ledger.Outcome        `json:"outcome"`
	Reason        string                `json:"reason,omitempty"`
	Registration  *models.Registration  `json:"registration,omitempty"`
	WaitlistEntry *models.WaitlistEntry `json:"waitlist_entry,omitempty"`
}

type cancelResponse struct {
	Registration models.Registration `json:"registration"`
	Promoted     *promotedSummary    `json:"promoted,omitempty"`
}

type promotedSummary struct {
	PlayerID       string `json:"player_id"`
	RegistrationID string `json:"registration_id"`
	FromPosition   int64  `json:"from_position"`
}

type paymentRequest struct {
	PaymentStatus string `json:"payment_status"`
	AdminOverride bool   `json:"admin_override"`
}

// POST /api/v1/games/{id}/registrations
func HandleRegister(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if coordinator == nil {
		logger.Error().Msg("Handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gameID, err := pathID(r, "id", "game ID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req, err := decodeRegisterRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	category, err := models.ParseSpotCategory(req.Category)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := ledger.RegisterOptions{
		Category:    category,
		NotifyEmail: true,
	}
	if req.NotifyEmail != nil {
		opts.NotifyEmail = *req.NotifyEmail
	}
	if req.NotifySMS != nil {
		opts.NotifySMS = *req.NotifySMS
	}
	if req.NotifyPush != nil {
		opts.NotifyPush = *req.NotifyPush
	}

	ctx, cancel := context.WithTimeout(r.Context(), registrationQueryTimeout)
	defer cancel()

	result, err := coordinator.Register(ctx, gameID, req.PlayerID, opts)
	if err != nil {
		apiutil.WriteLedgerError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Outcome == ledger.OutcomeRejected {
		status = http.StatusConflict
	}
	if err := apiutil.WriteJSON(w, status, registerResponse{
		Outcome:       result.Outcome,
		Reason:        result.Reason,
		Registration:  result.Registration,
		WaitlistEntry: result.WaitlistEntry,
	}); err != nil {
		logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to write register response")
	}
}

// DELETE /api/v1/games/{id}/registrations/{player_id}
func HandleCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if coordinator == nil {
		logger.Error().Msg("Handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gameID, err := pathID(r, "id", "game ID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	playerID, err := pathID(r, "player_id", "player ID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), registrationQueryTimeout)
	defer cancel()

	result, err := coordinator.Cancel(ctx, gameID, playerID)
	if err != nil {
		apiutil.WriteLedgerError(w, r, err)
		return
	}

	resp := cancelResponse{Registration: result.Registration}
	if result.Promotion != nil {
		resp.Promoted = &promotedSummary{
			PlayerID:       result.Promotion.Entry.PlayerID,
			RegistrationID: result.Promotion.Registration.ID,
			FromPosition:   result.Promotion.Entry.Position,
		}
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to write cancel response")
	}
}

// DELETE /api/v1/games/{id}/waitlist/{player_id}
func HandleLeaveWaitlist(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if coordinator == nil {
		logger.Error().Msg("Handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gameID, err := pathID(r, "id", "game ID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	playerID, err := pathID(r, "player_id", "player ID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), registrationQueryTimeout)
	defer cancel()

	entry, err := coordinator.LeaveWaitlist(ctx, gameID, playerID)
	if err != nil {
		apiutil.WriteLedgerError(w, r, err)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, entry); err != nil {
		logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to write waitlist response")
	}
}

// POST /api/v1/registrations/{id}/payment
// Admin override is only honored when the route is mounted behind the admin
// key middleware.
func HandlePayment(adminRoute bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.Ctx(r.Context())
		if coordinator == nil {
			logger.Error().Msg("Handlers not initialized")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		registrationID, err := pathID(r, "id", "registration ID")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var req paymentRequest
		if apiutil.IsJSONRequest(r) {
			if err := apiutil.DecodeJSON(r, &req); err != nil {
				http.Error(w, "invalid JSON body", http.StatusBadRequest)
				return
			}
		} else {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "invalid form data", http.StatusBadRequest)
				return
			}
			req.PaymentStatus = r.FormValue("payment_status")
			req.AdminOverride = apiutil.ParseBoolField(r.FormValue("admin_override"))
		}

		to, err := models.ParsePaymentStatus(req.PaymentStatus)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		override := req.AdminOverride && adminRoute

		ctx, cancel := context.WithTimeout(r.Context(), registrationQueryTimeout)
		defer cancel()

		registration, err := coordinator.RecordPayment(ctx, registrationID, to, override)
		if err != nil {
			apiutil.WriteLedgerError(w, r, err)
			return
		}

		if err := apiutil.WriteJSON(w, http.StatusOK, registration); err != nil {
			logger.Error().Err(err).Str("registration_id", registrationID).Msg("Failed to write payment response")
		}
	}
}

// GET /api/v1/games/{id}/roster (admin)
func HandleRoster(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if database == nil {
		logger.Error().Msg("Database not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gameID, err := pathID(r, "id", "game ID")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), registrationQueryTimeout)
	defer cancel()

	roster, err := database.Queries.ListGameRegistrations(ctx, gameID)
	if err != nil {
		logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to load roster")
		http.Error(w, "Failed to load roster", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, roster); err != nil {
		logger.Error().Err(err).Str("game_id", gameID).Msg("Failed to write roster response")
	}
}

func decodeRegisterRequest(r *http.Request) (registerRequest, error) {
	var req registerRequest
	if apiutil.IsJSONRequest(r) {
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			return registerRequest{}, fmt.Errorf("invalid JSON body")
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return registerRequest{}, fmt.Errorf("invalid form data")
		}
		req.PlayerID = r.FormValue("player_id")
		req.Category = r.FormValue("category")
		if raw := r.FormValue("notify_email"); raw != "" {
			v := apiutil.ParseBoolField(raw)
			req.NotifyEmail = &v
		}
		if raw := r.FormValue("notify_sms"); raw != "" {
			v := apiutil.ParseBoolField(raw)
			req.NotifySMS = &v
		}
		if raw := r.FormValue("notify_push"); raw != "" {
			v := apiutil.ParseBoolField(raw)
			req.NotifyPush = &v
		}
	}

	playerID, err := apiutil.ParseRequiredField(req.PlayerID, "player_id")
	if err != nil {
		return registerRequest{}, err
	}
	req.PlayerID = playerID
	return req, nil
}

func pathID(r *http.Request, key, label string) (string, error) {
	id := strings.TrimSpace(r.PathValue(key))
	if id == "" {
		return "", fmt.Errorf("invalid %s", label)
	}
	return id, nil
}
