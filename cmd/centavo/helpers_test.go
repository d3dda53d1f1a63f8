package main

import (
	"testing"
	"time"

	"github.com/centavo-app/centavo/internal/model"
)

func TestParseMonthFlag(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    model.MonthKey
		wantErr bool
	}{
		{"valid", "2024-03", model.MonthKey{Year: 2024, Month: 3}, false},
		{"single digit month", "2024-3", model.MonthKey{Year: 2024, Month: 3}, false},
		{"december", "2023-12", model.MonthKey{Year: 2023, Month: 12}, false},
		{"month thirteen", "2024-13", model.MonthKey{}, true},
		{"month zero", "2024-00", model.MonthKey{}, true},
		{"no separator", "202403", model.MonthKey{}, true},
		{"garbage year", "20x4-03", model.MonthKey{}, true},
		{"garbage month", "2024-xx", model.MonthKey{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMonthFlag(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMonthFlag(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseMonthFlag(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMonthFlagDefaultsToCurrent(t *testing.T) {
	got, err := parseMonthFlag("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != model.CurrentMonth(time.Now()) {
		t.Errorf("empty flag should default to the current month, got %v", got)
	}
}

func TestParseAmountMinor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"expense", "-12.50", -1250, false},
		{"income", "5000", 500000, false},
		{"one decimal place", "3.5", 350, false},
		{"zero", "0", 0, false},
		{"whitespace", "  42.00 ", 4200, false},
		{"sub-cent precision", "1.005", 0, true},
		{"not a number", "abc", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmountMinor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAmountMinor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseAmountMinor(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
