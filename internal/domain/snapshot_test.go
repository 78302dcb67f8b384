package domain

import (
	"testing"
	"time"
)

func TestValidateMonth(t *testing.T) {
	tests := []struct {
		name    string
		month   string
		wantErr bool
	}{
		{"valid month", "2025-03", false},
		{"valid december", "2024-12", false},
		{"month thirteen", "2025-13", true},
		{"month zero", "2025-00", true},
		{"missing dash", "202503", true},
		{"full date", "2025-03-01", true},
		{"empty", "", true},
		{"garbage", "march", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMonth(tt.month)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %q", tt.month)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.month, err)
			}
		})
	}
}

func TestMonthBounds(t *testing.T) {
	start, end, err := MonthBounds("2025-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStart := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", end, wantEnd)
	}
}

func TestMonthBoundsDecemberRollsOver(t *testing.T) {
	start, end, err := MonthBounds("2024-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Year() != 2024 || start.Month() != time.December {
		t.Fatalf("unexpected start %v", start)
	}
	if end.Year() != 2025 || end.Month() != time.January {
		t.Fatalf("unexpected end %v", end)
	}
}

func TestClassifyTransaction(t *testing.T) {
	tests := []struct {
		name          string
		amountCents   int64
		matchedAbs    int64
		wantState     MatchState
		wantRemaining int64
	}{
		{"no matches", -10000, 0, MatchStateUnmatched, 10000},
		{"partially matched outflow", -10000, 4000, MatchStatePartial, 6000},
		{"fully matched", -10000, 10000, MatchStateMatched, 0},
		{"over-matched clamps to matched", -10000, 12000, MatchStateMatched, 0},
		{"inflow unmatched", 2500, 0, MatchStateUnmatched, 2500},
		{"inflow partial", 2500, 500, MatchStatePartial, 2000},
		{"zero amount with match", 0, 100, MatchStateMatched, 0},
		{"zero amount no match", 0, 0, MatchStateUnmatched, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, remaining := ClassifyTransaction(tt.amountCents, tt.matchedAbs)
			if state != tt.wantState {
				t.Fatalf("state = %s, want %s", state, tt.wantState)
			}
			if remaining != tt.wantRemaining {
				t.Fatalf("remaining = %d, want %d", remaining, tt.wantRemaining)
			}
		})
	}
}

func TestArtifactSetComplete(t *testing.T) {
	incomplete := ArtifactSet{BankKey: "a", MatchesKey: "b"}
	if incomplete.Complete() {
		t.Fatal("expected incomplete artifact set")
	}

	complete := ArtifactSet{BankKey: "a", MatchesKey: "b", AuditKey: "c"}
	if !complete.Complete() {
		t.Fatal("expected complete artifact set")
	}
}
