package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCentsFromDecimal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{"whole dollars", "532.10", 53210, false},
		{"negative", "-15.00", -1500, false},
		{"zero", "0", 0, false},
		{"single cent", "0.01", 1, false},
		{"fractional cent", "10.001", 0, true},
		{"repeating fraction", "0.333", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.in)
			if err != nil {
				t.Fatalf("bad test input %q: %v", tt.in, err)
			}
			got, err := CentsFromDecimal(d)
			if tt.wantErr {
				if !errors.Is(err, ErrNonIntegerCents) {
					t.Fatalf("err = %v, want ErrNonIntegerCents", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFromAggregatorSign(t *testing.T) {
	// The aggregator reports outflows positive; internally outflows are
	// negative.
	if got := FromAggregatorSign(1250); got != -1250 {
		t.Fatalf("outflow: got %d, want -1250", got)
	}
	if got := FromAggregatorSign(-5000); got != 5000 {
		t.Fatalf("inflow: got %d, want 5000", got)
	}
	if got := FromAggregatorSign(0); got != 0 {
		t.Fatalf("zero: got %d, want 0", got)
	}
}

func TestEntryTypeForAmount(t *testing.T) {
	if got := EntryTypeForAmount(54710); got != EntryTypeIncome {
		t.Fatalf("positive: got %s", got)
	}
	if got := EntryTypeForAmount(0); got != EntryTypeIncome {
		t.Fatalf("zero: got %s", got)
	}
	if got := EntryTypeForAmount(-1); got != EntryTypeExpense {
		t.Fatalf("negative: got %s", got)
	}
}
