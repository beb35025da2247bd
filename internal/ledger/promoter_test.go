package ledger

import (
	"testing"

	"github.com/dunkinducks/courtside/internal/models"
)

func TestOrderCandidates(t *testing.T) {
	entries := []models.WaitlistEntry{
		{ID: "a", Position: 1, Category: models.CategoryGeneral},
		{ID: "b", Position: 2, Category: models.CategoryWomen},
		{ID: "c", Position: 3, Category: models.CategoryGeneral},
		{ID: "d", Position: 4, Category: models.CategoryWomen},
	}

	tests := []struct {
		name          string
		freedCategory models.SpotCategory
		wantOrder     []string
	}{
		{
			name:          "freed women spot considers women first",
			freedCategory: models.CategoryWomen,
			wantOrder:     []string{"b", "d", "a", "c"},
		},
		{
			name:          "freed general spot keeps FIFO",
			freedCategory: models.CategoryGeneral,
			wantOrder:     []string{"a", "c", "b", "d"},
		},
		{
			name:          "no matching category keeps FIFO",
			freedCategory: models.CategoryNonBinary,
			wantOrder:     []string{"a", "b", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ordered := orderCandidates(entries, tt.freedCategory)
			if len(ordered) != len(tt.wantOrder) {
				t.Fatalf("len = %d, want %d", len(ordered), len(tt.wantOrder))
			}
			for i, want := range tt.wantOrder {
				if ordered[i].ID != want {
					t.Errorf("position %d = %s, want %s", i, ordered[i].ID, want)
				}
			}
		})
	}
}

func TestOrderCandidatesEmpty(t *testing.T) {
	if got := orderCandidates(nil, models.CategoryGeneral); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}
