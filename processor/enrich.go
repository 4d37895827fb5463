package processor

import (
	"math"
	"time"

	"optionflow/logger"
	"optionflow/models"
)

const daysPerYear = 365.0

// Enrich derives the analysis columns for every raw record. The output has
// the same order and cardinality as the input; the single timestamp `at`
// is applied to every row so a batch never skews across rows. Any
// ParseError aborts the whole batch: callers keep their previous snapshot.
func Enrich(records []models.RawInstrumentRecord, at time.Time) ([]models.EnrichedInstrumentRecord, error) {
	enriched := make([]models.EnrichedInstrumentRecord, len(records))
	for i, raw := range records {
		expiry, err := ParseExpiry(raw.UnderlyingIndex)
		if err != nil {
			return nil, err
		}
		strike, err := ParseStrike(raw.InstrumentName)
		if err != nil {
			return nil, err
		}

		enriched[i] = models.EnrichedInstrumentRecord{
			RawInstrumentRecord: raw,
			Expiry:              expiry,
			Strike:              strike,
			Side:                ParseInstrumentSide(raw.InstrumentName),
			DollarBid:           raw.BidPrice * raw.UnderlyingPrice,
			DollarAsk:           raw.AskPrice * raw.UnderlyingPrice,
			DollarMid:           raw.MidPrice * raw.UnderlyingPrice,
			YearsToExpiry:       yearsToExpiry(at, expiry),
		}
	}

	logger.AddRecordsEnriched(len(enriched))
	return enriched, nil
}

// yearsToExpiry counts whole days (floored) between the batch timestamp
// and the expiry date, over a 365 day year.
func yearsToExpiry(at, expiry time.Time) float64 {
	days := math.Floor(expiry.Sub(at).Hours() / 24)
	return days / daysPerYear
}
