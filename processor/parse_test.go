package processor

import (
	"errors"
	"testing"
	"time"

	"optionflow/models"
)

func TestParseExpiry(t *testing.T) {
	cases := []struct {
		input string
		want  time.Time
	}{
		{"BTC-25DEC24", time.Date(2024, time.December, 25, 0, 0, 0, 0, time.UTC)},
		{"ETH-1JAN25", time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"BTC-27JUL2025", time.Date(2025, time.July, 27, 0, 0, 0, 0, time.UTC)},
		// The trailing token wins even when the label itself has dashes.
		{"BTC-USD-25DEC24", time.Date(2024, time.December, 25, 0, 0, 0, 0, time.UTC)},
		{"SYN-2024-12-25", time.Date(2024, time.December, 25, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := ParseExpiry(c.input)
		if err != nil {
			t.Errorf("ParseExpiry(%q): %v", c.input, err)
			continue
		}
		if !got.Equal(c.want) {
			t.Errorf("ParseExpiry(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestParseExpiryErrors(t *testing.T) {
	for _, input := range []string{"BTCUSD", "BTC-NOTADATE", ""} {
		_, err := ParseExpiry(input)
		var parseErr *models.ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("ParseExpiry(%q): expected ParseError, got %v", input, err)
		}
	}
}

func TestParseStrike(t *testing.T) {
	strike, err := ParseStrike("BTC-25DEC24-50000-C")
	if err != nil {
		t.Fatalf("ParseStrike: %v", err)
	}
	if strike != 50000 {
		t.Fatalf("strike = %d, want 50000", strike)
	}
}

func TestParseStrikeErrors(t *testing.T) {
	for _, input := range []string{"BTC-25DEC24-XYZ-C", "BTCUSD", ""} {
		_, err := ParseStrike(input)
		var parseErr *models.ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("ParseStrike(%q): expected ParseError, got %v", input, err)
		}
	}
}

func TestParseInstrumentSide(t *testing.T) {
	cases := []struct {
		input string
		want  models.Side
	}{
		{"BTC-25DEC24-50000-C", models.SideCall},
		{"BTC-25DEC24-50000-P", models.SidePut},
		{"BTC-25DEC24-50000-X", models.SideUnknown},
		{"BTC-PERPETUAL", models.SideUnknown},
		{"BTCUSD", models.SideUnknown},
	}
	for _, c := range cases {
		if got := ParseInstrumentSide(c.input); got != c.want {
			t.Errorf("ParseInstrumentSide(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}
