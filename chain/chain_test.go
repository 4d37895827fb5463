package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	appconfig "optionflow/config"
	"optionflow/models"
)

// fakeMarketData serves canned records and errors without a network.
type fakeMarketData struct {
	records []models.RawInstrumentRecord
	ticker  models.TickerResult
	names   []string
	err     error

	summaryCalls int
}

func (f *fakeMarketData) FetchOptionsSummary(ctx context.Context, currency string) ([]models.RawInstrumentRecord, error) {
	f.summaryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeMarketData) FetchTicker(ctx context.Context, instrument string) (models.TickerResult, error) {
	if f.err != nil {
		return models.TickerResult{}, f.err
	}
	return f.ticker, nil
}

func (f *fakeMarketData) FetchPerpetualTicker(ctx context.Context, currency string) (models.TickerResult, error) {
	if f.err != nil {
		return models.TickerResult{}, f.err
	}
	return f.ticker, nil
}

func (f *fakeMarketData) ListInstruments(ctx context.Context, currency string, expired bool) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.names, nil
}

func testChainConfig() *appconfig.Config {
	return &appconfig.Config{
		Chain: appconfig.ChainConfig{Symbols: []string{"BTC", "ETH"}},
	}
}

func testRecords() []models.RawInstrumentRecord {
	return []models.RawInstrumentRecord{
		{
			InstrumentName:  "BTC-25DEC24-50000-C",
			UnderlyingIndex: "BTC-25DEC24",
			UnderlyingPrice: 60000,
			BidPrice:        0.01,
			AskPrice:        0.02,
			MidPrice:        0.015,
		},
		{
			InstrumentName:  "BTC-25DEC24-50000-P",
			UnderlyingIndex: "BTC-25DEC24",
			UnderlyingPrice: 60000,
			BidPrice:        0.03,
			AskPrice:        0.04,
			MidPrice:        0.035,
		},
		{
			InstrumentName:  "BTC-27JUN25-70000-C",
			UnderlyingIndex: "BTC-27JUN25",
			UnderlyingPrice: 60000,
			BidPrice:        0.05,
			AskPrice:        0.06,
			MidPrice:        0.055,
		},
	}
}

func TestNewRejectsUnknownSymbol(t *testing.T) {
	_, err := New(testChainConfig(), &fakeMarketData{}, "DOGE")
	var invalid *models.InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
}

func TestNewNormalizesSymbol(t *testing.T) {
	c, err := New(testChainConfig(), &fakeMarketData{}, "btc")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Symbol() != "BTC" {
		t.Fatalf("symbol = %q, want BTC", c.Symbol())
	}
}

func TestSetSymbol(t *testing.T) {
	c, err := New(testChainConfig(), &fakeMarketData{}, "BTC")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.SetSymbol("eth"); err != nil {
		t.Fatalf("SetSymbol: %v", err)
	}
	if c.Symbol() != "ETH" {
		t.Fatalf("symbol = %q, want ETH", c.Symbol())
	}
	if err := c.SetSymbol("XRP"); err == nil {
		t.Fatal("expected error for symbol outside allow-list")
	}
	if c.Symbol() != "ETH" {
		t.Fatalf("failed SetSymbol changed symbol to %q", c.Symbol())
	}
}

func TestRefreshAndQueryBySide(t *testing.T) {
	client := &fakeMarketData{records: testRecords()}
	c, err := New(testChainConfig(), client, "BTC")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	calls, err := c.BySide("Call", AllExpiries)
	if err != nil {
		t.Fatalf("BySide: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	first := calls[0]
	if first.Strike != 50000 || first.Side != models.SideCall {
		t.Fatalf("unexpected call record: %+v", first)
	}
	if first.DollarBid != 600.0 || first.DollarAsk != 1200.0 || first.DollarMid != 900.0 {
		t.Fatalf("unexpected dollar prices: %+v", first)
	}

	puts, err := c.BySide("Put", AllExpiries)
	if err != nil {
		t.Fatalf("BySide: %v", err)
	}
	if len(puts) != 1 {
		t.Fatalf("expected 1 put, got %d", len(puts))
	}
	if puts[0].DollarBid != 1800.0 || puts[0].DollarAsk != 2400.0 || puts[0].DollarMid != 2100.0 {
		t.Fatalf("unexpected dollar prices: %+v", puts[0])
	}
}

func TestBySideIsCaseInsensitive(t *testing.T) {
	client := &fakeMarketData{records: testRecords()}
	c, _ := New(testChainConfig(), client, "BTC")
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	lower, err := c.BySide("call", AllExpiries)
	if err != nil {
		t.Fatalf("BySide(call): %v", err)
	}
	upper, err := c.BySide("Call", AllExpiries)
	if err != nil {
		t.Fatalf("BySide(Call): %v", err)
	}
	if len(lower) != len(upper) {
		t.Fatalf("case-sensitive mismatch: %d != %d", len(lower), len(upper))
	}
}

func TestBySideRejectsUnknownSide(t *testing.T) {
	c, _ := New(testChainConfig(), &fakeMarketData{}, "BTC")
	_, err := c.BySide("straddle", AllExpiries)
	var invalid *models.InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
}

func TestBySideWithConcreteExpiry(t *testing.T) {
	client := &fakeMarketData{records: testRecords()}
	c, _ := New(testChainConfig(), client, "BTC")
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	dec, err := c.BySide("Call", "25DEC24")
	if err != nil {
		t.Fatalf("BySide: %v", err)
	}
	if len(dec) != 1 || dec[0].InstrumentName != "BTC-25DEC24-50000-C" {
		t.Fatalf("unexpected records for 25DEC24: %+v", dec)
	}

	_, err = c.BySide("Call", "NOTADATE")
	var invalid *models.InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidArgumentError for bad expiry token, got %v", err)
	}
}

func TestExpiries(t *testing.T) {
	client := &fakeMarketData{records: testRecords()}
	c, _ := New(testChainConfig(), client, "BTC")
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	expiries := c.Expiries()
	if len(expiries) != 2 {
		t.Fatalf("expected 2 distinct expiries, got %d", len(expiries))
	}
	if !expiries[0].Before(expiries[1]) {
		t.Fatalf("expiries not ascending: %v", expiries)
	}
	if !expiries[0].Equal(time.Date(2024, time.December, 25, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first expiry: %v", expiries[0])
	}
}

func TestFailedRefreshKeepsSnapshot(t *testing.T) {
	client := &fakeMarketData{records: testRecords()}
	c, _ := New(testChainConfig(), client, "BTC")
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := c.Snapshot()
	fetchedAt := c.LastFetch()

	client.err = &models.TransportError{Op: "dial", URL: "wss://example.com", Err: errors.New("refused")}
	err := c.Refresh(context.Background())
	var transport *models.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError propagated unchanged, got %v", err)
	}

	if c.Snapshot() != before {
		t.Fatal("failed refresh replaced the snapshot")
	}
	if !c.LastFetch().Equal(fetchedAt) {
		t.Fatal("failed refresh changed the fetch timestamp")
	}
}

func TestFailedEnrichmentKeepsSnapshot(t *testing.T) {
	client := &fakeMarketData{records: testRecords()}
	c, _ := New(testChainConfig(), client, "BTC")
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := c.Snapshot()

	client.records = []models.RawInstrumentRecord{{InstrumentName: "GARBAGE", UnderlyingIndex: "GARBAGE"}}
	err := c.Refresh(context.Background())
	var parseErr *models.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if c.Snapshot() != before {
		t.Fatal("failed enrichment replaced the snapshot")
	}
}

func TestQueriesBeforeFirstRefresh(t *testing.T) {
	c, _ := New(testChainConfig(), &fakeMarketData{}, "BTC")
	if snap := c.Snapshot(); snap != nil {
		t.Fatalf("expected nil snapshot, got %+v", snap)
	}
	if expiries := c.Expiries(); expiries != nil {
		t.Fatalf("expected no expiries, got %v", expiries)
	}
	records, err := c.BySide("Call", AllExpiries)
	if err != nil || records != nil {
		t.Fatalf("expected empty result, got %v, %v", records, err)
	}
	if !c.LastFetch().IsZero() {
		t.Fatalf("expected zero fetch time, got %v", c.LastFetch())
	}
}

func TestSpotReference(t *testing.T) {
	client := &fakeMarketData{ticker: models.TickerResult{InstrumentName: "BTC-PERPETUAL", LastPrice: 60123.5}}
	c, _ := New(testChainConfig(), client, "BTC")
	spot, err := c.SpotReference(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("SpotReference: %v", err)
	}
	if spot != 60123.5 {
		t.Fatalf("spot = %v, want 60123.5", spot)
	}
}

func TestAvailableInstruments(t *testing.T) {
	client := &fakeMarketData{names: []string{"BTC-25DEC24-50000-C", "BTC-25DEC24-50000-P"}}
	c, _ := New(testChainConfig(), client, "BTC")
	names, err := c.AvailableInstruments(context.Background(), "BTC", false)
	if err != nil {
		t.Fatalf("AvailableInstruments: %v", err)
	}
	if len(names) != 2 || names[0] != "BTC-25DEC24-50000-C" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestInstrumentDetail(t *testing.T) {
	client := &fakeMarketData{ticker: models.TickerResult{InstrumentName: "BTC-25DEC24-50000-C", MarkPrice: 0.0123}}
	c, _ := New(testChainConfig(), client, "BTC")
	ticker, err := c.InstrumentDetail(context.Background(), "BTC-25DEC24-50000-C")
	if err != nil {
		t.Fatalf("InstrumentDetail: %v", err)
	}
	if ticker.MarkPrice != 0.0123 {
		t.Fatalf("unexpected ticker: %+v", ticker)
	}
}
