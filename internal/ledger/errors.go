// Package ledger is the registration ledger for pickup games: the capacity
// tracker, the registration coordinator, and the waitlist promoter. All
// capacity-affecting writes go through this package; the HTTP layer and the
// background sweeps never touch registration rows directly.
package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers absent games, players, and registrations.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyRegistered is returned when a player already holds a live
	// registration or waitlist entry for the game.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrInvalidState is returned when the game's lifecycle state does not
	// permit the operation (cancelled, completed, or past games).
	ErrInvalidState = errors.New("game not open for registration")
	// ErrInvalidTransition is returned for illegal payment status changes.
	ErrInvalidTransition = errors.New("invalid payment transition")
	// ErrBusy is returned when the per-game lock cannot be acquired within
	// the configured bound. Callers may retry.
	ErrBusy = errors.New("game busy, retry")
	// ErrStorageUnavailable wraps storage-layer failures (connection loss,
	// timeout). The transaction has rolled back; no partial state remains.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

var domainErrors = []error{
	ErrNotFound,
	ErrAlreadyRegistered,
	ErrInvalidState,
	ErrInvalidTransition,
	ErrBusy,
}

// classify marks any error escaping a transaction that is not part of the
// domain taxonomy as a storage failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range domainErrors {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

// Outcome is the result of a register attempt. A full game is an outcome,
// never an error.
type Outcome string

const (
	OutcomeConfirmed  Outcome = "confirmed"
	OutcomeWaitlisted Outcome = "waitlisted"
	OutcomeRejected   Outcome = "rejected"
)
