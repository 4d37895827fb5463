package processor

import (
	"strconv"
	"strings"
	"time"

	"optionflow/models"
)

// expiryLayouts covers the venue's contiguous day-month-year token
// (25DEC24) plus common ISO and spaced forms. time.Parse matches month
// names case-insensitively, so DEC and Dec both resolve.
var expiryLayouts = []string{
	"2Jan06",
	"2Jan2006",
	"2006-01-02",
	"2 Jan 2006",
	"2 Jan 06",
}

// ParseDateToken interprets a single expiry date token.
func ParseDateToken(token string) (time.Time, error) {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &models.ParseError{
		Field:  "expiry",
		Input:  token,
		Reason: "unrecognized date token",
	}
}

// ParseExpiry extracts the expiry date from an underlying index label such
// as BTC-25DEC24: the token after the last '-' separator. When that token
// alone is not a date, the remainder after the first '-' is retried so
// dashed forms like SYN-2024-12-25 still resolve.
func ParseExpiry(underlyingIndex string) (time.Time, error) {
	last := strings.LastIndex(underlyingIndex, "-")
	if last < 0 {
		return time.Time{}, &models.ParseError{
			Field:  "expiry",
			Input:  underlyingIndex,
			Reason: "no '-' separated date token",
		}
	}
	if t, err := ParseDateToken(underlyingIndex[last+1:]); err == nil {
		return t, nil
	}
	if first := strings.Index(underlyingIndex, "-"); first < last {
		if t, err := ParseDateToken(underlyingIndex[first+1:]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &models.ParseError{
		Field:  "expiry",
		Input:  underlyingIndex,
		Reason: "unrecognized date token",
	}
}

// ParseStrike extracts the integer strike from an instrument name such as
// BTC-25DEC24-50000-C: the second-to-last '-' separated token.
func ParseStrike(instrumentName string) (int, error) {
	parts := strings.Split(instrumentName, "-")
	if len(parts) < 2 {
		return 0, &models.ParseError{
			Field:  "strike",
			Input:  instrumentName,
			Reason: "fewer than 2 '-' separated tokens",
		}
	}
	strike, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, &models.ParseError{
			Field:  "strike",
			Input:  instrumentName,
			Reason: "non-numeric strike token",
		}
	}
	return strike, nil
}

// ParseInstrumentSide extracts the side from the trailing token of an
// instrument name. Unknown tokens are tagged, never rejected.
func ParseInstrumentSide(instrumentName string) models.Side {
	parts := strings.Split(instrumentName, "-")
	return models.ParseSide(parts[len(parts)-1])
}
