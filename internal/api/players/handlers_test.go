package players

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dunkinducks/courtside/internal/models"
	"github.com/dunkinducks/courtside/internal/testutil"
)

func setupPlayersTest(t *testing.T) {
	t.Helper()

	db := testutil.NewTestDB(t)

	database = nil
	phoneRegion = defaultPhoneRegion
	initOnce = sync.Once{}
	InitHandlers(db, "AU")

	t.Cleanup(func() {
		database = nil
		phoneRegion = defaultPhoneRegion
		initOnce = sync.Once{}
	})
}

func createPlayerRequest(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/players", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	HandlePlayerCreate(w, req)
	return w
}

func TestHandlePlayerCreate(t *testing.T) {
	setupPlayersTest(t)

	w := createPlayerRequest(t, `{
		"full_name": "Daria Duck",
		"email": "Daria@Dunkinducks.Example",
		"mobile": "0412 345 678",
		"skill_level": "intermediate"
	}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var player models.Player
	if err := json.Unmarshal(w.Body.Bytes(), &player); err != nil {
		t.Fatalf("decode player: %v", err)
	}
	if player.Email != "daria@dunkinducks.example" {
		t.Errorf("email = %s, want lowercased", player.Email)
	}
	if player.Mobile != "+61412345678" {
		t.Errorf("mobile = %s, want E.164 +61412345678", player.Mobile)
	}
}

func TestHandlePlayerCreateValidation(t *testing.T) {
	setupPlayersTest(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"email": "a@b.example"}`},
		{"missing email", `{"full_name": "No Email"}`},
		{"bad email", `{"full_name": "Bad Email", "email": "not-an-email"}`},
		{"bad mobile", `{"full_name": "Bad Mobile", "email": "a@b.example", "mobile": "12"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := createPlayerRequest(t, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHandlePlayerCreateDuplicateEmail(t *testing.T) {
	setupPlayersTest(t)

	body := `{"full_name": "Twin One", "email": "twins@dunkinducks.example"}`
	if w := createPlayerRequest(t, body); w.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", w.Code)
	}
	if w := createPlayerRequest(t, body); w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestHandlePlayerUpdate(t *testing.T) {
	setupPlayersTest(t)

	w := createPlayerRequest(t, `{"full_name": "Before", "email": "update@dunkinducks.example"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var created models.Player
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	body := `{"full_name": "After", "email": "ignored@example.com", "mobile": "+61 412 345 678"}`
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/v1/players/%s", created.ID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("id", created.ID)
	update := httptest.NewRecorder()
	HandlePlayerUpdate(update, req)

	if update.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", update.Code, update.Body.String())
	}
	var updated models.Player
	if err := json.Unmarshal(update.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.FullName != "After" {
		t.Errorf("full name = %s, want After", updated.FullName)
	}
	if updated.Mobile != "+61412345678" {
		t.Errorf("mobile = %s, want +61412345678", updated.Mobile)
	}
	// Email is the identity key and never changes on update.
	if updated.Email != "update@dunkinducks.example" {
		t.Errorf("email = %s, want unchanged", updated.Email)
	}
}

func TestHandlePlayerLookupByEmail(t *testing.T) {
	setupPlayersTest(t)

	if w := createPlayerRequest(t, `{"full_name": "Lookup", "email": "lookup@dunkinducks.example"}`); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/players?email=Lookup@dunkinducks.example", nil)
	w := httptest.NewRecorder()
	HandlePlayerLookup(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var player models.Player
	if err := json.Unmarshal(w.Body.Bytes(), &player); err != nil {
		t.Fatalf("decode player: %v", err)
	}
	if player.FullName != "Lookup" {
		t.Errorf("full name = %s, want Lookup", player.FullName)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/players?email=nobody@dunkinducks.example", nil)
	miss := httptest.NewRecorder()
	HandlePlayerLookup(miss, req)
	if miss.Code != http.StatusNotFound {
		t.Errorf("miss status = %d, want 404", miss.Code)
	}
}

func TestHandlePlayerDetailNotFound(t *testing.T) {
	setupPlayersTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/players/missing", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()
	HandlePlayerDetail(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestNormalizeMobileUsesConfiguredRegion(t *testing.T) {
	setupPlayersTest(t)

	phoneRegion = "US"
	got, err := normalizeMobile("650 253 0000")
	if err != nil {
		t.Fatalf("normalizeMobile: %v", err)
	}
	if got != "+16502530000" {
		t.Errorf("mobile = %s, want +16502530000", got)
	}
}

func TestNormalizeMobile(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"0412 345 678", "+61412345678", false},
		{"+61412345678", "+61412345678", false},
		{"+1 650 253 0000", "+16502530000", false},
		{"12", "", true},
		{"not a number", "", true},
	}

	for _, tt := range tests {
		got, err := normalizeMobile(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("normalizeMobile(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("normalizeMobile(%q): %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("normalizeMobile(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}
