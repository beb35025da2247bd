package models

import (
	"fmt"
	"time"
)

// GameStatus is the lifecycle state of a game.
type GameStatus string

const (
	GameStatusUpcoming   GameStatus = "upcoming"
	GameStatusInProgress GameStatus = "in-progress"
	GameStatusCompleted  GameStatus = "completed"
	GameStatusCancelled  GameStatus = "cancelled"
)

// GameType controls who a game is open to.
type GameType string

const (
	GameTypeWomenOnly GameType = "women-only"
	GameTypeMixed     GameType = "mixed"
	GameTypeProsOnly  GameType = "pros-only"
)

// SpotCategory tags a registration for reserved-spot accounting.
type SpotCategory string

const (
	CategoryGeneral   SpotCategory = "general"
	CategoryWomen     SpotCategory = "women"
	CategoryNonBinary SpotCategory = "non-binary"
)

// RegistrationStatus is the state of a registration row.
type RegistrationStatus string

const (
	// RegistrationStatusPendingPayment exists for a future payment-gated
	// reservation mode. In immediate-confirm mode it is never written.
	RegistrationStatusPendingPayment RegistrationStatus = "pending_payment"
	RegistrationStatusConfirmed      RegistrationStatus = "confirmed"
	RegistrationStatusCheckedIn      RegistrationStatus = "checked_in"
	RegistrationStatusCancelled      RegistrationStatus = "cancelled"
)

// PaymentStatus tracks the fee state of a registration. The ledger only
// records status; payment processing is an external collaborator.
type PaymentStatus string

const (
	PaymentStatusNA      PaymentStatus = "n/a"
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// WaitlistStatus is the state of a waitlist entry.
type WaitlistStatus string

const (
	WaitlistStatusWaiting   WaitlistStatus = "waiting"
	WaitlistStatusPromoted  WaitlistStatus = "promoted"
	WaitlistStatusExpired   WaitlistStatus = "expired"
	WaitlistStatusCancelled WaitlistStatus = "cancelled"
)

type Game struct {
	ID                     string     `json:"id"`
	Title                  string     `json:"title"`
	Description            string     `json:"description,omitempty"`
	GameDate               time.Time  `json:"game_date"`
	Location               string     `json:"location"`
	GameType               GameType   `json:"game_type"`
	SkillLevel             string     `json:"skill_level"`
	MaxPlayers             int64      `json:"max_players"`
	WomenReservedSpots     int64      `json:"women_reserved_spots"`
	NonBinaryReservedSpots int64      `json:"non_binary_reserved_spots"`
	JoiningFeeCents        int64      `json:"joining_fee_cents"`
	Status                 GameStatus `json:"status"`
	AllowWaitlist          bool       `json:"allow_waitlist"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

type Player struct {
	ID         string    `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Mobile     string    `json:"mobile,omitempty"`
	SkillLevel string    `json:"skill_level,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Registration struct {
	ID            string             `json:"id"`
	GameID        string             `json:"game_id"`
	PlayerID      string             `json:"player_id"`
	Status        RegistrationStatus `json:"status"`
	PaymentStatus PaymentStatus      `json:"payment_status"`
	Category      SpotCategory       `json:"category"`
	CreatedAt     time.Time          `json:"created_at"`
	ConfirmedAt   *time.Time         `json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty"`
}

type WaitlistEntry struct {
	ID          string         `json:"id"`
	GameID      string         `json:"game_id"`
	PlayerID    string         `json:"player_id"`
	Position    int64          `json:"position"`
	Category    SpotCategory   `json:"category"`
	NotifyEmail bool           `json:"notify_email"`
	NotifySMS   bool           `json:"notify_sms"`
	NotifyPush  bool           `json:"notify_push"`
	Status      WaitlistStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// CapacitySnapshot is the read-only per-game view exposed to the UI layer.
type CapacitySnapshot struct {
	GameID            string           `json:"game_id"`
	ConfirmedCount    int64            `json:"confirmed_count"`
	MaxPlayers        int64            `json:"max_players"`
	CategoryBreakdown map[string]int64 `json:"category_breakdown"`
	WaitlistLength    int64            `json:"waitlist_length"`
}

// ParseGameType validates a raw game type value.
func ParseGameType(raw string) (GameType, error) {
	switch GameType(raw) {
	case GameTypeWomenOnly, GameTypeMixed, GameTypeProsOnly:
		return GameType(raw), nil
	}
	return "", fmt.Errorf("game_type must be one of women-only, mixed, pros-only")
}

// ParseSpotCategory validates a raw category value. Empty means general.
func ParseSpotCategory(raw string) (SpotCategory, error) {
	if raw == "" {
		return CategoryGeneral, nil
	}
	switch SpotCategory(raw) {
	case CategoryGeneral, CategoryWomen, CategoryNonBinary:
		return SpotCategory(raw), nil
	}
	return "", fmt.Errorf("category must be one of general, women, non-binary")
}

// ParsePaymentStatus validates a raw payment status value.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	switch PaymentStatus(raw) {
	case PaymentStatusNA, PaymentStatusUnpaid, PaymentStatusPending, PaymentStatusPaid:
		return PaymentStatus(raw), nil
	}
	return "", fmt.Errorf("payment_status must be one of n/a, unpaid, pending, paid")
}

// ValidPaymentTransition reports whether a payment status change is allowed
// without an admin override.
func ValidPaymentTransition(from, to PaymentStatus) bool {
	switch {
	case from == PaymentStatusUnpaid && to == PaymentStatusPending:
		return true
	case from == PaymentStatusPending && to == PaymentStatusPaid:
		return true
	case from == PaymentStatusUnpaid && to == PaymentStatusPaid:
		return true
	}
	return false
}
