package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dunkinducks/courtside/internal/ledger"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func IsJSONRequest(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	return strings.HasPrefix(contentType, "application/json")
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteLedgerError maps the ledger error taxonomy onto HTTP statuses.
// Storage failures stay generic so internals never leak to clients.
func WriteLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrAlreadyRegistered):
		http.Error(w, "Already registered for this game", http.StatusConflict)
	case errors.Is(err, ledger.ErrInvalidState):
		http.Error(w, "Game is not open for registration", http.StatusConflict)
	case errors.Is(err, ledger.ErrInvalidTransition):
		http.Error(w, "Invalid payment status change", http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrBusy):
		w.Header().Set("Retry-After", "1")
		http.Error(w, "Game is busy, please retry", http.StatusServiceUnavailable)
	case errors.Is(err, ledger.ErrStorageUnavailable):
		log.Ctx(r.Context()).Error().Err(err).Msg("Storage unavailable")
		http.Error(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("Ledger operation failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
