package wire

import (
	"bytes"
	"strings"
	"testing"
)

func TestDecodeOrder(t *testing.T) {
	raw := []byte(`{
		"version": 1,
		"cl_id": "A1",
		"action": "place",
		"venue_type": "cex",
		"venue": "bybit",
		"product_type": "spot",
		"ts_ns": 1700000000000000000,
		"details": {
			"symbol": "BTC-USDT",
			"side": "buy",
			"order_type": "limit",
			"time_in_force": "GTC",
			"price": 50000,
			"size": 1
		},
		"tags": {"strategy": "momentum"}
	}`)

	ord, err := DecodeOrder(raw)
	if err != nil {
		t.Fatalf("DecodeOrder returned error: %v", err)
	}
	if ord.ClID != "A1" || ord.Action != "place" || ord.Venue != "bybit" {
		t.Fatalf("unexpected header fields: %+v", ord)
	}
	if ord.Details.Price == nil || *ord.Details.Price != 50000 {
		t.Fatalf("price not decoded: %+v", ord.Details)
	}
	if ord.Details.StopPrice != nil {
		t.Fatal("absent stop_price should decode as nil")
	}
	if ord.Tags["strategy"] != "momentum" {
		t.Fatalf("tags not decoded: %v", ord.Tags)
	}
}

func TestDecodeOrderValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bad json", `{"cl_id": `},
		{"missing cl_id", `{"version":1,"action":"place","venue":"bybit"}`},
		{"missing action", `{"version":1,"cl_id":"A1","venue":"bybit"}`},
		{"missing venue", `{"version":1,"cl_id":"A1","action":"place"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeOrder([]byte(tt.raw)); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestPublishMessageRoundTrip(t *testing.T) {
	payload := []byte(`{"cl_id":"A1","status":"accepted"}`)
	m, err := NewPublishMessage(KindReport, TopicReport, payload, 123)
	if err != nil {
		t.Fatalf("NewPublishMessage returned error: %v", err)
	}
	if m.Topic() != TopicReport {
		t.Fatalf("topic=%q", m.Topic())
	}
	if !bytes.Equal(m.Payload(), payload) {
		t.Fatalf("payload mismatch: %q", m.Payload())
	}
	// Value copies keep their own bytes.
	cp := m
	if !bytes.Equal(cp.Payload(), payload) {
		t.Fatal("copied envelope lost payload")
	}
}

func TestPublishMessageOverflow(t *testing.T) {
	big := []byte(strings.Repeat("x", MaxPayload+1))
	if _, err := NewPublishMessage(KindFill, TopicFill, big, 0); err == nil {
		t.Fatal("expected ErrPayloadTooLarge")
	}
	exact := []byte(strings.Repeat("x", MaxPayload))
	if _, err := NewPublishMessage(KindFill, TopicFill, exact, 0); err != nil {
		t.Fatalf("payload at capacity should fit: %v", err)
	}
}
