package deribit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	appconfig "optionflow/config"
	"optionflow/logger"
	"optionflow/models"
)

const (
	methodBookSummaryByCurrency = "public/get_book_summary_by_currency"
	methodTicker                = "public/ticker"
	methodGetInstruments        = "public/get_instruments"
)

// Client performs single request/response exchanges against the venue's
// JSON-RPC websocket endpoint. Each call opens its own connection and
// closes it after exactly one response frame; there is no pooling, retry
// or internal timeout.
type Client struct {
	config  *appconfig.Config
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	log     *logger.Log
}

// NewClient creates a venue client from the configured endpoint and rate
// limit.
func NewClient(cfg *appconfig.Config) *Client {
	dialer := &websocket.Dialer{}
	if cfg.Venue.HandshakeTimeout > 0 {
		dialer.HandshakeTimeout = time.Duration(cfg.Venue.HandshakeTimeout)
	}

	rl := cfg.Venue.RateLimit
	rps := rl.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := rl.BurstSize
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		config:  cfg,
		dialer:  dialer,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger.GetLogger(),
	}
}

// FetchOptionsSummary returns the venue's book summary rows for every
// option instrument of the given underlying currency.
func (c *Client) FetchOptionsSummary(ctx context.Context, currency string) ([]models.RawInstrumentRecord, error) {
	log := c.log.WithComponent("venue_client").WithFields(logger.Fields{
		"operation": "fetch_options_summary",
		"currency":  currency,
	})

	params := map[string]any{
		"currency": strings.ToUpper(currency),
		"kind":     "option",
	}

	var records []models.RawInstrumentRecord
	if err := c.call(ctx, methodBookSummaryByCurrency, params, &records); err != nil {
		return nil, err
	}

	logger.LogDataFlowEntry(log, "venue_ws", "chain", len(records), "instrument_records")
	return records, nil
}

// FetchTicker returns the venue's ticker payload for a single named
// instrument.
func (c *Client) FetchTicker(ctx context.Context, instrument string) (models.TickerResult, error) {
	params := map[string]any{"instrument_name": instrument}

	var ticker models.TickerResult
	if err := c.call(ctx, methodTicker, params, &ticker); err != nil {
		return models.TickerResult{}, err
	}
	return ticker, nil
}

// FetchPerpetualTicker returns the ticker of the currency's perpetual
// future, used as an independent spot reference.
func (c *Client) FetchPerpetualTicker(ctx context.Context, currency string) (models.TickerResult, error) {
	params := map[string]any{
		"instrument_name": fmt.Sprintf("%s-PERPETUAL", strings.ToUpper(currency)),
		"kind":            "future",
	}

	var ticker models.TickerResult
	if err := c.call(ctx, methodTicker, params, &ticker); err != nil {
		return models.TickerResult{}, err
	}
	return ticker, nil
}

// ListInstruments returns the bare instrument names of every option
// instrument for the currency, optionally including expired ones.
func (c *Client) ListInstruments(ctx context.Context, currency string, expired bool) ([]string, error) {
	params := map[string]any{
		"currency": strings.ToUpper(currency),
		"kind":     "option",
		"expired":  expired,
	}

	var instruments []models.Instrument
	if err := c.call(ctx, methodGetInstruments, params, &instruments); err != nil {
		return nil, err
	}

	names := make([]string, len(instruments))
	for i, inst := range instruments {
		names[i] = inst.InstrumentName
	}
	return names, nil
}

// call runs one JSON-RPC exchange: dial, write the request, read one
// response frame, close. Connection failures surface as TransportError,
// decoded-but-wrong-shape responses as MalformedResponseError.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	log := c.log.WithComponent("venue_client").WithFields(logger.Fields{"method": method})

	if err := c.limiter.Wait(ctx); err != nil {
		return &models.TransportError{Op: "rate_wait", URL: c.config.Venue.URL, Err: err}
	}

	start := time.Now()

	conn, _, err := c.dialer.DialContext(ctx, c.config.Venue.URL, nil)
	if err != nil {
		return &models.TransportError{Op: "dial", URL: c.config.Venue.URL, Err: err}
	}
	defer conn.Close()

	req := models.RPCRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}

	if err := conn.WriteJSON(req); err != nil {
		return &models.TransportError{Op: "write", URL: c.config.Venue.URL, Err: err}
	}

	_, payload, err := conn.ReadMessage()
	if err != nil {
		return &models.TransportError{Op: "read", URL: c.config.Venue.URL, Err: err}
	}

	var resp models.RPCResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return &models.MalformedResponseError{Method: method, Reason: fmt.Sprintf("not a JSON-RPC frame: %v", err)}
	}

	if resp.Error != nil {
		return &models.MalformedResponseError{
			Method: method,
			Reason: fmt.Sprintf("venue error %d: %s", resp.Error.Code, resp.Error.Message),
		}
	}

	if resp.ID != req.ID {
		return &models.MalformedResponseError{
			Method: method,
			Reason: fmt.Sprintf("correlation id mismatch: sent %s, got %s", req.ID, resp.ID),
		}
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return &models.MalformedResponseError{Method: method, Reason: "missing result"}
	}

	if err := json.Unmarshal(resp.Result, result); err != nil {
		return &models.MalformedResponseError{Method: method, Reason: fmt.Sprintf("unexpected result shape: %v", err)}
	}

	logger.IncrementVenueCall(len(payload))
	logger.LogPerformanceEntry(log, "venue_client", "call", time.Since(start), logger.Fields{
		"payload_bytes": len(payload),
	})

	return nil
}
