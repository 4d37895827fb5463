package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseSide(t *testing.T) {
	cases := []struct {
		token string
		want  Side
	}{
		{"C", SideCall},
		{"P", SidePut},
		{"X", SideUnknown},
		{"c", SideUnknown},
		{"", SideUnknown},
		{"PERPETUAL", SideUnknown},
	}
	for _, c := range cases {
		if got := ParseSide(c.token); got != c.want {
			t.Errorf("ParseSide(%q) = %v, want %v", c.token, got, c.want)
		}
	}
}

func TestSideFromString(t *testing.T) {
	for _, s := range []string{"call", "Call", "CALL"} {
		got, err := SideFromString(s)
		if err != nil || got != SideCall {
			t.Errorf("SideFromString(%q) = %v, %v", s, got, err)
		}
	}
	if got, err := SideFromString("put"); err != nil || got != SidePut {
		t.Errorf("SideFromString(put) = %v, %v", got, err)
	}

	_, err := SideFromString("straddle")
	if err == nil {
		t.Fatal("expected error for unknown side")
	}
	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidArgumentError, got %T", err)
	}
}

func TestRawInstrumentRecordJSON(t *testing.T) {
	payload := `{
		"instrument_name": "BTC-25DEC24-50000-C",
		"underlying_index": "BTC-25DEC24",
		"underlying_price": 60000,
		"bid_price": 0.01,
		"ask_price": 0.02,
		"mid_price": 0.015,
		"open_interest": 1234.5
	}`
	var rec RawInstrumentRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.InstrumentName != "BTC-25DEC24-50000-C" || rec.UnderlyingIndex != "BTC-25DEC24" {
		t.Fatalf("identifier fields wrong: %+v", rec)
	}
	if rec.UnderlyingPrice != 60000 || rec.BidPrice != 0.01 || rec.AskPrice != 0.02 || rec.MidPrice != 0.015 {
		t.Fatalf("price fields wrong: %+v", rec)
	}
}

func TestRPCResponseDecode(t *testing.T) {
	payload := `{"jsonrpc":"2.0","id":"abc","error":{"code":10009,"message":"invalid currency"}}`
	var resp RPCResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != 10009 {
		t.Fatalf("expected venue error, got %+v", resp)
	}
	if len(resp.Result) != 0 {
		t.Fatalf("expected empty result, got %s", resp.Result)
	}
}
