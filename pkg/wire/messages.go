// Package wire defines the JSON documents exchanged with the upstream
// strategy process and downstream subscribers, plus the fixed-size publish
// envelope handed between the intake and publish goroutines.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Topics on the outbound publish channel.
const (
	TopicReport = "exec.report"
	TopicFill   = "exec.fill"
)

var (
	// ErrMissingField is wrapped with the field name on decode validation.
	ErrMissingField = errors.New("wire: missing required field")
)

// OrderDetails is the action-dependent part of an inbound order document.
// Cancel and Replace carry the target-order reference for those actions.
type OrderDetails struct {
	Symbol      string            `json:"symbol,omitempty"`
	Side        string            `json:"side,omitempty"`
	OrderType   string            `json:"order_type,omitempty"`
	TimeInForce string            `json:"time_in_force,omitempty"`
	Price       *float64          `json:"price,omitempty"`
	Size        *float64          `json:"size,omitempty"`
	StopPrice   *float64          `json:"stop_price,omitempty"`
	ReduceOnly  *bool             `json:"reduce_only,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Cancel      map[string]string `json:"cancel,omitempty"`
	Replace     map[string]string `json:"replace,omitempty"`
}

// ExecutionOrder is one inbound message on the order channel.
type ExecutionOrder struct {
	Version     int               `json:"version"`
	ClID        string            `json:"cl_id"`
	Action      string            `json:"action"`
	VenueType   string            `json:"venue_type"`
	Venue       string            `json:"venue"`
	ProductType string            `json:"product_type"`
	TsNs        uint64            `json:"ts_ns"`
	Details     OrderDetails      `json:"details"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Keys used inside Details.Cancel and Details.Replace.
const (
	KeyCancelTarget  = "cl_id_to_cancel"
	KeyReplaceTarget = "cl_id_to_replace"
	KeyNewPrice      = "new_price"
	KeyNewSize       = "new_size"
)

// DecodeOrder parses an inbound order document and checks the fields every
// action requires. Action-specific validation is the engine's job.
func DecodeOrder(raw []byte) (*ExecutionOrder, error) {
	var ord ExecutionOrder
	if err := json.Unmarshal(raw, &ord); err != nil {
		return nil, fmt.Errorf("wire: decode order: %w", err)
	}
	if ord.ClID == "" {
		return nil, fmt.Errorf("%w: cl_id", ErrMissingField)
	}
	if ord.Action == "" {
		return nil, fmt.Errorf("%w: action", ErrMissingField)
	}
	if ord.Venue == "" {
		return nil, fmt.Errorf("%w: venue", ErrMissingField)
	}
	return &ord, nil
}

// ExecutionReport is one outbound message on the exec.report topic.
type ExecutionReport struct {
	Version         int               `json:"version"`
	ClID            string            `json:"cl_id"`
	Status          string            `json:"status"`
	ExchangeOrderID string            `json:"exchange_order_id,omitempty"`
	ReasonCode      string            `json:"reason_code"`
	ReasonText      string            `json:"reason_text"`
	TsNs            int64             `json:"ts_ns"`
	Tags            map[string]string `json:"tags,omitempty"`
}

// ExecutionFill is one outbound message on the exec.fill topic.
type ExecutionFill struct {
	Version         int               `json:"version"`
	ClID            string            `json:"cl_id"`
	ExchangeOrderID string            `json:"exchange_order_id,omitempty"`
	ExecID          string            `json:"exec_id"`
	SymbolOrPair    string            `json:"symbol_or_pair"`
	Price           float64           `json:"price"`
	Size            float64           `json:"size"`
	FeeCurrency     string            `json:"fee_currency"`
	FeeAmount       float64           `json:"fee_amount"`
	Liquidity       string            `json:"liquidity"`
	TsNs            int64             `json:"ts_ns"`
	Tags            map[string]string `json:"tags,omitempty"`
}

// Encode serializes an outbound document.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return b, nil
}
