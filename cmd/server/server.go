// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dunkinducks/courtside/internal/api"
	"github.com/dunkinducks/courtside/internal/api/games"
	"github.com/dunkinducks/courtside/internal/api/players"
	"github.com/dunkinducks/courtside/internal/api/registrations"
	"github.com/dunkinducks/courtside/internal/config"
	"github.com/dunkinducks/courtside/internal/db"
	"github.com/dunkinducks/courtside/internal/ledger"
)

func newServer(cfg *config.Config, database *db.DB, coordinator *ledger.Coordinator) *http.Server {
	games.InitHandlers(database, coordinator)
	registrations.InitHandlers(database, coordinator)
	players.InitHandlers(database, cfg.App.PhoneRegion)

	router := http.NewServeMux()
	registerRoutes(router, cfg.App.AdminKeyHash)

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, adminKeyHash string) {
	admin := api.WithAdminKey(adminKeyHash)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Game routes
	mux.Handle("POST /api/v1/games", admin(http.HandlerFunc(games.HandleGameCreate)))
	mux.HandleFunc("GET /api/v1/games", games.HandleGamesList)
	mux.HandleFunc("GET /api/v1/games/{id}", games.HandleGameDetail)
	mux.Handle("POST /api/v1/games/{id}/cancel", admin(http.HandlerFunc(games.HandleGameCancel)))
	mux.Handle("GET /api/v1/games/{id}/waitlist", admin(http.HandlerFunc(games.HandleGameWaitlist)))
	mux.Handle("GET /api/v1/games/{id}/roster", admin(http.HandlerFunc(registrations.HandleRoster)))

	// Registration routes
	mux.HandleFunc("POST /api/v1/games/{id}/registrations", registrations.HandleRegister)
	mux.HandleFunc("DELETE /api/v1/games/{id}/registrations/{player_id}", registrations.HandleCancel)
	mux.HandleFunc("DELETE /api/v1/games/{id}/waitlist/{player_id}", registrations.HandleLeaveWaitlist)
	mux.HandleFunc("POST /api/v1/registrations/{id}/payment", registrations.HandlePayment(false))
	mux.Handle("POST /api/v1/admin/registrations/{id}/payment", admin(registrations.HandlePayment(true)))

	// Player routes
	mux.HandleFunc("POST /api/v1/players", players.HandlePlayerCreate)
	mux.HandleFunc("GET /api/v1/players", players.HandlePlayerLookup)
	mux.HandleFunc("GET /api/v1/players/{id}", players.HandlePlayerDetail)
	mux.HandleFunc("PUT /api/v1/players/{id}", players.HandlePlayerUpdate)
}
