package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dunkinducks/courtside/internal/db/store"
	"github.com/dunkinducks/courtside/internal/ledger"
	"github.com/dunkinducks/courtside/internal/models"
)

func TestRegisterConfirmsUntilFullThenWaitlists(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 2, allowWaitlist: true})

	first := seedPlayer(t, database, "First")
	second := seedPlayer(t, database, "Second")
	third := seedPlayer(t, database, "Third")

	if result := mustRegister(t, coordinator, game.ID, first.ID, models.CategoryGeneral); result.Outcome != ledger.OutcomeConfirmed {
		t.Fatalf("first outcome = %s, want confirmed", result.Outcome)
	}
	if result := mustRegister(t, coordinator, game.ID, second.ID, models.CategoryGeneral); result.Outcome != ledger.OutcomeConfirmed {
		t.Fatalf("second outcome = %s, want confirmed", result.Outcome)
	}

	result := mustRegister(t, coordinator, game.ID, third.ID, models.CategoryGeneral)
	if result.Outcome != ledger.OutcomeWaitlisted {
		t.Fatalf("third outcome = %s, want waitlisted", result.Outcome)
	}
	if result.WaitlistEntry == nil || result.WaitlistEntry.Position != 1 {
		t.Fatalf("waitlist entry = %+v, want position 1", result.WaitlistEntry)
	}

	snapshot, err := coordinator.Snapshot(context.Background(), game.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.ConfirmedCount != 2 {
		t.Errorf("confirmed count = %d, want 2", snapshot.ConfirmedCount)
	}
	if snapshot.WaitlistLength != 1 {
		t.Errorf("waitlist length = %d, want 1", snapshot.WaitlistLength)
	}
}

// With two spots held for women, general players stop confirming once the
// remaining spots equal the unmet reserved minimum, but a woman still
// confirms into a held spot.
func TestRegisterHoldsReservedSpots(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 10, womenReservedSpots: 2, allowWaitlist: true})

	for i := 0; i < 8; i++ {
		player := seedPlayer(t, database, fmt.Sprintf("General %d", i))
		if result := mustRegister(t, coordinator, game.ID, player.ID, models.CategoryGeneral); result.Outcome != ledger.OutcomeConfirmed {
			t.Fatalf("general player %d outcome = %s, want confirmed", i, result.Outcome)
		}
	}

	ninth := seedPlayer(t, database, "Ninth General")
	if result := mustRegister(t, coordinator, game.ID, ninth.ID, models.CategoryGeneral); result.Outcome != ledger.OutcomeWaitlisted {
		t.Fatalf("ninth general outcome = %s, want waitlisted", result.Outcome)
	}

	woman := seedPlayer(t, database, "Reserved Spot")
	if result := mustRegister(t, coordinator, game.ID, woman.ID, models.CategoryWomen); result.Outcome != ledger.OutcomeConfirmed {
		t.Fatalf("women category outcome = %s, want confirmed", result.Outcome)
	}

	// One reserved spot is now filled; one remains held, so general players
	// are still refused at 9 confirmed.
	tenth := seedPlayer(t, database, "Tenth General")
	if result := mustRegister(t, coordinator, game.ID, tenth.ID, models.CategoryGeneral); result.Outcome != ledger.OutcomeWaitlisted {
		t.Fatalf("tenth general outcome = %s, want waitlisted", result.Outcome)
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 4, allowWaitlist: true})
	player := seedPlayer(t, database, "Dup")

	mustRegister(t, coordinator, game.ID, player.ID, models.CategoryGeneral)

	_, err := coordinator.Register(context.Background(), game.ID, player.ID, ledger.RegisterOptions{})
	if !errors.Is(err, ledger.ErrAlreadyRegistered) {
		t.Fatalf("duplicate register error = %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegisterWaitlistedDuplicateFails(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 1, allowWaitlist: true})

	holder := seedPlayer(t, database, "Holder")
	waiter := seedPlayer(t, database, "Waiter")
	mustRegister(t, coordinator, game.ID, holder.ID, models.CategoryGeneral)
	mustRegister(t, coordinator, game.ID, waiter.ID, models.CategoryGeneral)

	_, err := coordinator.Register(context.Background(), game.ID, waiter.ID, ledger.RegisterOptions{})
	if !errors.Is(err, ledger.ErrAlreadyRegistered) {
		t.Fatalf("waitlisted duplicate error = %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegisterFullWithoutWaitlistRejects(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 1, allowWaitlist: false})

	holder := seedPlayer(t, database, "Holder")
	late := seedPlayer(t, database, "Late")
	mustRegister(t, coordinator, game.ID, holder.ID, models.CategoryGeneral)

	result, err := coordinator.Register(context.Background(), game.ID, late.ID, ledger.RegisterOptions{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.Outcome != ledger.OutcomeRejected {
		t.Fatalf("outcome = %s, want rejected", result.Outcome)
	}
	if result.Reason == "" {
		t.Error("rejected result should carry a reason")
	}
}

func TestRegisterClosedGameFails(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 4, allowWaitlist: true})
	player := seedPlayer(t, database, "Latecomer")

	if _, err := database.Queries.UpdateGameStatus(context.Background(), store.UpdateGameStatusParams{
		ID:     game.ID,
		Status: models.GameStatusCancelled,
	}); err != nil {
		t.Fatalf("cancel game: %v", err)
	}

	result, err := coordinator.Register(context.Background(), game.ID, player.ID, ledger.RegisterOptions{})
	if !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("register error = %v, want ErrInvalidState", err)
	}
	if result.Outcome != ledger.OutcomeRejected {
		t.Errorf("outcome = %s, want rejected", result.Outcome)
	}

	// The rejection left no registration row behind.
	if _, err := database.Queries.GetLiveRegistration(context.Background(), game.ID, player.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("live registration lookup = %v, want sql.ErrNoRows", err)
	}
}

func TestRegisterWomenOnlyGameEnforcesCategory(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{gameType: models.GameTypeWomenOnly, maxPlayers: 4, allowWaitlist: true})

	general := seedPlayer(t, database, "General")
	if _, err := coordinator.Register(context.Background(), game.ID, general.ID, ledger.RegisterOptions{Category: models.CategoryGeneral}); !errors.Is(err, ledger.ErrInvalidState) {
		t.Fatalf("general register error = %v, want ErrInvalidState", err)
	}

	woman := seedPlayer(t, database, "Eligible")
	if result := mustRegister(t, coordinator, game.ID, woman.ID, models.CategoryWomen); result.Outcome != ledger.OutcomeConfirmed {
		t.Fatalf("outcome = %s, want confirmed", result.Outcome)
	}
}

func TestRegisterUnknownGameAndPlayer(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 4})

	if _, err := coordinator.Register(context.Background(), "missing", "missing", ledger.RegisterOptions{}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("unknown game error = %v, want ErrNotFound", err)
	}
	if _, err := coordinator.Register(context.Background(), game.ID, "missing", ledger.RegisterOptions{}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("unknown player error = %v, want ErrNotFound", err)
	}
}

func TestCancelPromotesFirstWaitlisted(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 1, allowWaitlist: true})

	holder := seedPlayer(t, database, "Holder")
	firstWaiter := seedPlayer(t, database, "First Waiter")
	secondWaiter := seedPlayer(t, database, "Second Waiter")

	mustRegister(t, coordinator, game.ID, holder.ID, models.CategoryGeneral)
	mustRegister(t, coordinator, game.ID, firstWaiter.ID, models.CategoryGeneral)
	mustRegister(t, coordinator, game.ID, secondWaiter.ID, models.CategoryGeneral)

	result, err := coordinator.Cancel(context.Background(), game.ID, holder.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.Registration.Status != models.RegistrationStatusCancelled {
		t.Errorf("registration status = %s, want cancelled", result.Registration.Status)
	}
	if result.Promotion == nil {
		t.Fatal("expected a promotion")
	}
	if result.Promotion.Entry.PlayerID != firstWaiter.ID {
		t.Errorf("promoted player = %s, want first waiter %s", result.Promotion.Entry.PlayerID, firstWaiter.ID)
	}

	// Capacity is unchanged: the freed slot went straight to the promotee.
	snapshot, err := coordinator.Snapshot(context.Background(), game.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.ConfirmedCount != 1 {
		t.Errorf("confirmed count = %d, want 1", snapshot.ConfirmedCount)
	}
	if snapshot.WaitlistLength != 1 {
		t.Errorf("waitlist length = %d, want 1", snapshot.WaitlistLength)
	}
}

// A freed reserved spot goes to a matching waitlisted player even when a
// general player is ahead of them in line.
func TestCancelPromotesMatchingCategoryFirst(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 2, womenReservedSpots: 1, allowWaitlist: true})

	generalHolder := seedPlayer(t, database, "General Holder")
	womanHolder := seedPlayer(t, database, "Woman Holder")
	generalWaiter := seedPlayer(t, database, "General Waiter")
	womanWaiter := seedPlayer(t, database, "Woman Waiter")

	mustRegister(t, coordinator, game.ID, generalHolder.ID, models.CategoryGeneral)
	mustRegister(t, coordinator, game.ID, womanHolder.ID, models.CategoryWomen)
	mustRegister(t, coordinator, game.ID, generalWaiter.ID, models.CategoryGeneral)
	mustRegister(t, coordinator, game.ID, womanWaiter.ID, models.CategoryWomen)

	result, err := coordinator.Cancel(context.Background(), game.ID, womanHolder.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.Promotion == nil {
		t.Fatal("expected a promotion")
	}
	if result.Promotion.Entry.PlayerID != womanWaiter.ID {
		t.Errorf("promoted player = %s, want matching-category waiter %s", result.Promotion.Entry.PlayerID, womanWaiter.ID)
	}
}

func TestCancelTwiceFails(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 2, allowWaitlist: true})
	player := seedPlayer(t, database, "Fickle")

	mustRegister(t, coordinator, game.ID, player.ID, models.CategoryGeneral)

	if _, err := coordinator.Cancel(context.Background(), game.ID, player.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if _, err := coordinator.Cancel(context.Background(), game.ID, player.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("second cancel error = %v, want ErrNotFound", err)
	}
}

// Players can still withdraw from a game the admin cancelled; nobody gets
// promoted into it.
func TestCancelOnCancelledGameReleasesWithoutPromotion(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 1, allowWaitlist: true})

	holder := seedPlayer(t, database, "Holder")
	waiter := seedPlayer(t, database, "Waiter")

	mustRegister(t, coordinator, game.ID, holder.ID, models.CategoryGeneral)
	if result := mustRegister(t, coordinator, game.ID, waiter.ID, models.CategoryGeneral); result.Outcome != ledger.OutcomeWaitlisted {
		t.Fatalf("waiter outcome = %s, want waitlisted", result.Outcome)
	}

	if _, err := database.Queries.UpdateGameStatus(context.Background(), store.UpdateGameStatusParams{
		ID:     game.ID,
		Status: models.GameStatusCancelled,
	}); err != nil {
		t.Fatalf("cancel game: %v", err)
	}

	result, err := coordinator.Cancel(context.Background(), game.ID, holder.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.Registration.Status != models.RegistrationStatusCancelled {
		t.Errorf("registration status = %s, want cancelled", result.Registration.Status)
	}
	if result.Promotion != nil {
		t.Errorf("promoted player %s into a cancelled game", result.Promotion.Entry.PlayerID)
	}

	// The waiter's entry is untouched; the expiry sweep owns its cleanup.
	entry, err := database.Queries.GetWaitingEntryForPlayer(context.Background(), game.ID, waiter.ID)
	if err != nil {
		t.Fatalf("load waiting entry: %v", err)
	}
	if entry.Status != models.WaitlistStatusWaiting {
		t.Errorf("waiter status = %s, want waiting", entry.Status)
	}
}

func TestCancelThenReregister(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 1, allowWaitlist: true})
	player := seedPlayer(t, database, "Returning")

	mustRegister(t, coordinator, game.ID, player.ID, models.CategoryGeneral)
	if _, err := coordinator.Cancel(context.Background(), game.ID, player.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	result := mustRegister(t, coordinator, game.ID, player.ID, models.CategoryGeneral)
	if result.Outcome != ledger.OutcomeConfirmed {
		t.Fatalf("re-register outcome = %s, want confirmed", result.Outcome)
	}
}

func TestLeaveWaitlistKeepsLaterEntriesInOrder(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 1, allowWaitlist: true})

	holder := seedPlayer(t, database, "Holder")
	leaver := seedPlayer(t, database, "Leaver")
	stayer := seedPlayer(t, database, "Stayer")

	mustRegister(t, coordinator, game.ID, holder.ID, models.CategoryGeneral)
	mustRegister(t, coordinator, game.ID, leaver.ID, models.CategoryGeneral)
	mustRegister(t, coordinator, game.ID, stayer.ID, models.CategoryGeneral)

	entry, err := coordinator.LeaveWaitlist(context.Background(), game.ID, leaver.ID)
	if err != nil {
		t.Fatalf("leave waitlist: %v", err)
	}
	if entry.Status != models.WaitlistStatusCancelled {
		t.Errorf("entry status = %s, want cancelled", entry.Status)
	}

	if _, err := coordinator.LeaveWaitlist(context.Background(), game.ID, leaver.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("second leave error = %v, want ErrNotFound", err)
	}

	// The stayer is next in line despite the gap in positions.
	result, err := coordinator.Cancel(context.Background(), game.ID, holder.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if result.Promotion == nil || result.Promotion.Entry.PlayerID != stayer.ID {
		t.Fatalf("promotion = %+v, want stayer %s", result.Promotion, stayer.ID)
	}
}

func TestRecordPaymentTransitions(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 4, joiningFeeCents: 1500})
	player := seedPlayer(t, database, "Payer")

	result := mustRegister(t, coordinator, game.ID, player.ID, models.CategoryGeneral)
	if result.Registration.PaymentStatus != models.PaymentStatusUnpaid {
		t.Fatalf("initial payment status = %s, want unpaid", result.Registration.PaymentStatus)
	}
	registrationID := result.Registration.ID

	updated, err := coordinator.RecordPayment(context.Background(), registrationID, models.PaymentStatusPending, false)
	if err != nil {
		t.Fatalf("unpaid -> pending: %v", err)
	}
	if updated.PaymentStatus != models.PaymentStatusPending {
		t.Errorf("payment status = %s, want pending", updated.PaymentStatus)
	}

	if _, err := coordinator.RecordPayment(context.Background(), registrationID, models.PaymentStatusUnpaid, false); !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Fatalf("pending -> unpaid error = %v, want ErrInvalidTransition", err)
	}

	if _, err := coordinator.RecordPayment(context.Background(), registrationID, models.PaymentStatusPaid, false); err != nil {
		t.Fatalf("pending -> paid: %v", err)
	}

	// Backwards moves need the admin override.
	if _, err := coordinator.RecordPayment(context.Background(), registrationID, models.PaymentStatusUnpaid, true); err != nil {
		t.Fatalf("admin override paid -> unpaid: %v", err)
	}

	if _, err := coordinator.RecordPayment(context.Background(), "missing", models.PaymentStatusPaid, false); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("missing registration error = %v, want ErrNotFound", err)
	}
}

func TestRecordPaymentFreeGameUsesNA(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 4})
	player := seedPlayer(t, database, "Freebie")

	result := mustRegister(t, coordinator, game.ID, player.ID, models.CategoryGeneral)
	if result.Registration.PaymentStatus != models.PaymentStatusNA {
		t.Fatalf("payment status = %s, want n/a for free game", result.Registration.PaymentStatus)
	}
}

func TestConcurrentRegistrationsNeverOverfill(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 1, allowWaitlist: true})

	const contenders = 8
	players := make([]models.Player, contenders)
	for i := range players {
		players[i] = seedPlayer(t, database, fmt.Sprintf("Contender %d", i))
	}

	var wg sync.WaitGroup
	outcomes := make([]ledger.Outcome, contenders)
	for i := range players {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := coordinator.Register(context.Background(), game.ID, players[i].ID, ledger.RegisterOptions{})
			if err != nil {
				t.Errorf("register contender %d: %v", i, err)
				return
			}
			outcomes[i] = result.Outcome
		}(i)
	}
	wg.Wait()

	confirmed := 0
	for _, outcome := range outcomes {
		if outcome == ledger.OutcomeConfirmed {
			confirmed++
		}
	}
	if confirmed != 1 {
		t.Errorf("confirmed count = %d, want exactly 1", confirmed)
	}

	snapshot, err := coordinator.Snapshot(context.Background(), game.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.ConfirmedCount != 1 {
		t.Errorf("snapshot confirmed = %d, want 1", snapshot.ConfirmedCount)
	}
	if snapshot.WaitlistLength != contenders-1 {
		t.Errorf("waitlist length = %d, want %d", snapshot.WaitlistLength, contenders-1)
	}
}

func TestExpireStaleWaitlistEntries(t *testing.T) {
	database, coordinator := newLedgerTest(t)
	game := seedGame(t, database, gameSeed{maxPlayers: 1, allowWaitlist: true})

	holder := seedPlayer(t, database, "Holder")
	stale := seedPlayer(t, database, "Stale Waiter")
	fresh := seedPlayer(t, database, "Fresh Waiter")

	mustRegister(t, coordinator, game.ID, holder.ID, models.CategoryGeneral)
	staleResult := mustRegister(t, coordinator, game.ID, stale.ID, models.CategoryGeneral)
	mustRegister(t, coordinator, game.ID, fresh.ID, models.CategoryGeneral)

	if _, err := database.ExecContext(context.Background(),
		"UPDATE waitlist_entries SET created_at = datetime('now', '-3 days') WHERE id = ?",
		staleResult.WaitlistEntry.ID,
	); err != nil {
		t.Fatalf("age waitlist entry: %v", err)
	}

	expired, err := coordinator.ExpireStaleWaitlistEntries(context.Background(), 48*time.Hour)
	if err != nil {
		t.Fatalf("expire sweep: %v", err)
	}
	if expired != 1 {
		t.Errorf("expired = %d, want 1", expired)
	}

	entry, err := database.Queries.GetWaitlistEntry(context.Background(), staleResult.WaitlistEntry.ID)
	if err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.Status != models.WaitlistStatusExpired {
		t.Errorf("stale entry status = %s, want expired", entry.Status)
	}

	if _, err := database.Queries.GetWaitingEntryForPlayer(context.Background(), game.ID, fresh.ID); err != nil {
		t.Errorf("fresh entry should still be waiting: %v", err)
	}
}
