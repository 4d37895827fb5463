package models

import "encoding/json"

// RPCRequest is a single JSON-RPC 2.0 request frame sent to the venue.
// The ID is a caller-assigned correlation id echoed back in the response.
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// RPCError is the venue's error object, present instead of a result when
// the request was rejected.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCResponse is a single JSON-RPC 2.0 response frame. Result is left raw
// so each call site can decode its own shape.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// TickerResult is the venue's ticker payload for a single instrument. It
// is passed through to callers without enrichment.
type TickerResult struct {
	InstrumentName string  `json:"instrument_name"`
	State          string  `json:"state"`
	LastPrice      float64 `json:"last_price"`
	MarkPrice      float64 `json:"mark_price"`
	IndexPrice     float64 `json:"index_price"`
	BestBidPrice   float64 `json:"best_bid_price"`
	BestAskPrice   float64 `json:"best_ask_price"`
	Timestamp      int64   `json:"timestamp"`
}

// Instrument is one entry of the venue's instrument listing.
type Instrument struct {
	InstrumentName      string `json:"instrument_name"`
	Kind                string `json:"kind"`
	IsActive            bool   `json:"is_active"`
	ExpirationTimestamp int64  `json:"expiration_timestamp"`
}
