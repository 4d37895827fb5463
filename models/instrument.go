package models

import (
	"fmt"
	"strings"
	"time"
)

// Side is the option type encoded in the trailing token of an instrument
// name. Unrecognized tokens are tagged SideUnknown rather than rejected.
type Side int

const (
	SideUnknown Side = iota
	SideCall
	SidePut
)

func (s Side) String() string {
	switch s {
	case SideCall:
		return "Call"
	case SidePut:
		return "Put"
	default:
		return "Unknown"
	}
}

// ParseSide maps the venue's side token to a Side. It never fails.
func ParseSide(token string) Side {
	switch token {
	case "C":
		return SideCall
	case "P":
		return SidePut
	default:
		return SideUnknown
	}
}

// SideFromString converts caller query input to a Side. Only Call and Put
// are valid query sides; matching is case-insensitive.
func SideFromString(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "call":
		return SideCall, nil
	case "put":
		return SidePut, nil
	default:
		return SideUnknown, &InvalidArgumentError{
			Field:  "side",
			Reason: fmt.Sprintf("must be 'Call' or 'Put', got %q", s),
		}
	}
}

// RawInstrumentRecord is one row of the venue's book summary for a single
// option instrument. Prices are quoted in underlying-asset units, so 1.0
// means one full unit of the underlying.
type RawInstrumentRecord struct {
	InstrumentName  string  `json:"instrument_name"`
	UnderlyingIndex string  `json:"underlying_index"`
	UnderlyingPrice float64 `json:"underlying_price"`
	BidPrice        float64 `json:"bid_price"`
	AskPrice        float64 `json:"ask_price"`
	MidPrice        float64 `json:"mid_price"`
}

// EnrichedInstrumentRecord is a raw record plus the derived columns. Every
// derived field is a pure function of the raw record and the batch
// timestamp used during enrichment.
type EnrichedInstrumentRecord struct {
	RawInstrumentRecord

	Expiry        time.Time `json:"expiry"`
	Strike        int       `json:"strike"`
	Side          Side      `json:"side"`
	DollarBid     float64   `json:"dollar_bid"`
	DollarAsk     float64   `json:"dollar_ask"`
	DollarMid     float64   `json:"dollar_mid"`
	YearsToExpiry float64   `json:"years_to_expiry"`
}

// Snapshot is the full enriched chain for one underlying as of one fetch.
// A snapshot is never mutated once published; a refresh builds a new one.
type Snapshot struct {
	Symbol    string                     `json:"symbol"`
	FetchedAt time.Time                  `json:"fetched_at"`
	Records   []EnrichedInstrumentRecord `json:"records"`
}
