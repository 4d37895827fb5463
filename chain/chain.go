package chain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	appconfig "optionflow/config"
	"optionflow/logger"
	"optionflow/models"
	"optionflow/processor"
)

// AllExpiries is the sentinel expiry value selecting every expiry.
const AllExpiries = "all"

// MarketData is the venue surface an OptionsChain needs: one
// request/response exchange per call.
type MarketData interface {
	FetchOptionsSummary(ctx context.Context, currency string) ([]models.RawInstrumentRecord, error)
	FetchTicker(ctx context.Context, instrument string) (models.TickerResult, error)
	FetchPerpetualTicker(ctx context.Context, currency string) (models.TickerResult, error)
	ListInstruments(ctx context.Context, currency string, expired bool) ([]string, error)
}

// OptionsChain owns the current enriched snapshot for one underlying
// symbol. The snapshot is replaced wholesale by Refresh via an atomic
// pointer swap, so concurrent readers always observe a complete snapshot,
// either the previous one or the new one.
type OptionsChain struct {
	config *appconfig.Config
	client MarketData
	log    *logger.Log

	mu       sync.Mutex // guards symbol and serializes Refresh
	symbol   string
	snapshot atomic.Value // *models.Snapshot
}

// New constructs a chain for an underlying symbol. The symbol must be in
// the configured allow-list; matching is case-insensitive and the symbol
// is stored uppercase.
func New(cfg *appconfig.Config, client MarketData, symbol string) (*OptionsChain, error) {
	normalized, err := normalizeSymbol(cfg, symbol)
	if err != nil {
		return nil, err
	}
	return &OptionsChain{
		config: cfg,
		client: client,
		log:    logger.GetLogger(),
		symbol: normalized,
	}, nil
}

func normalizeSymbol(cfg *appconfig.Config, symbol string) (string, error) {
	if !cfg.AllowsSymbol(symbol) {
		return "", &models.InvalidArgumentError{
			Field:  "symbol",
			Reason: fmt.Sprintf("must be one of %v, got %q", cfg.Chain.Symbols, symbol),
		}
	}
	return strings.ToUpper(symbol), nil
}

// Symbol returns the underlying symbol this chain tracks.
func (c *OptionsChain) Symbol() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.symbol
}

// SetSymbol reassigns the underlying symbol after validating it against
// the allow-list. The current snapshot is kept until the next Refresh.
func (c *OptionsChain) SetSymbol(symbol string) error {
	normalized, err := normalizeSymbol(c.config, symbol)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.symbol = normalized
	c.mu.Unlock()
	return nil
}

// Refresh fetches the venue's book summary, enriches every record with a
// single batch timestamp, and swaps in the new snapshot. On any failure
// the previous snapshot stays published and the error is returned
// unchanged.
func (c *OptionsChain) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.log.WithComponent("options_chain").WithFields(logger.Fields{
		"symbol":    c.symbol,
		"operation": "refresh",
	})

	start := time.Now()
	records, err := c.client.FetchOptionsSummary(ctx, c.symbol)
	if err != nil {
		return err
	}

	at := time.Now().UTC()
	enriched, err := processor.Enrich(records, at)
	if err != nil {
		return err
	}

	c.snapshot.Store(&models.Snapshot{
		Symbol:    c.symbol,
		FetchedAt: at,
		Records:   enriched,
	})

	logger.LogPerformanceEntry(log, "options_chain", "refresh", time.Since(start), logger.Fields{
		"records": len(enriched),
	})
	return nil
}

// Snapshot returns the current snapshot, or nil before the first
// successful Refresh. The returned snapshot is immutable.
func (c *OptionsChain) Snapshot() *models.Snapshot {
	v := c.snapshot.Load()
	if v == nil {
		return nil
	}
	return v.(*models.Snapshot)
}

// LastFetch returns when the current snapshot was fetched, zero before the
// first successful Refresh.
func (c *OptionsChain) LastFetch() time.Time {
	snap := c.Snapshot()
	if snap == nil {
		return time.Time{}
	}
	return snap.FetchedAt
}

// Expiries returns the distinct expiry dates in the current snapshot,
// ascending.
func (c *OptionsChain) Expiries() []time.Time {
	snap := c.Snapshot()
	if snap == nil {
		return nil
	}

	seen := make(map[time.Time]struct{})
	var expiries []time.Time
	for _, rec := range snap.Records {
		if _, ok := seen[rec.Expiry]; ok {
			continue
		}
		seen[rec.Expiry] = struct{}{}
		expiries = append(expiries, rec.Expiry)
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })
	return expiries
}

// BySide returns the records matching the side and, unless expiry is the
// "all" sentinel, exactly the given expiry date token. The side must
// case-insensitively be Call or Put; the expiry token uses the same date
// grammar as enrichment.
func (c *OptionsChain) BySide(side string, expiry string) ([]models.EnrichedInstrumentRecord, error) {
	want, err := models.SideFromString(side)
	if err != nil {
		return nil, err
	}

	all := strings.EqualFold(expiry, AllExpiries)
	var wantExpiry time.Time
	if !all {
		wantExpiry, err = processor.ParseDateToken(expiry)
		if err != nil {
			return nil, &models.InvalidArgumentError{
				Field:  "expiry",
				Reason: fmt.Sprintf("must be %q or a date token, got %q", AllExpiries, expiry),
			}
		}
	}

	snap := c.Snapshot()
	if snap == nil {
		return nil, nil
	}

	var matched []models.EnrichedInstrumentRecord
	for _, rec := range snap.Records {
		if rec.Side != want {
			continue
		}
		if !all && !rec.Expiry.Equal(wantExpiry) {
			continue
		}
		matched = append(matched, rec)
	}
	return matched, nil
}

// InstrumentDetail passes a single-instrument ticker lookup through to the
// venue. The payload is not enriched.
func (c *OptionsChain) InstrumentDetail(ctx context.Context, instrumentLabel string) (models.TickerResult, error) {
	return c.client.FetchTicker(ctx, instrumentLabel)
}

// SpotReference returns the last traded price of the symbol's perpetual
// future. It is an independent spot source and is not used by the
// enrichment pipeline, which keeps each record's own underlying price.
func (c *OptionsChain) SpotReference(ctx context.Context, symbol string) (float64, error) {
	ticker, err := c.client.FetchPerpetualTicker(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return ticker.LastPrice, nil
}

// AvailableInstruments lists the venue's option instrument names for a
// currency, optionally including expired ones.
func (c *OptionsChain) AvailableInstruments(ctx context.Context, currency string, expired bool) ([]string, error) {
	return c.client.ListInstruments(ctx, currency, expired)
}
