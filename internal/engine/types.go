// Package engine implements the order-processing core: parse, dedup,
// dispatch to a venue adapter, and report/fill emission, all on fixed-capacity
// pools and indices owned by a single intake goroutine.
package engine

import (
	"exec-gateway/pkg/fixed"
	"exec-gateway/pkg/venue"
)

// Action is the decoded inbound instruction kind. Decoding happens once at
// parse time; everything downstream switches on the enum.
type Action uint8

const (
	ActionUnknown Action = iota
	ActionPlace
	ActionCancel
	ActionReplace
)

func (a Action) String() string {
	switch a {
	case ActionPlace:
		return "place"
	case ActionCancel:
		return "cancel"
	case ActionReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// OrderRecord is the pooled, allocation-free form of one inbound order. It is
// populated at parse time and, for accepted places, copied into a second slot
// that lives in the pending index until the order goes terminal.
type OrderRecord struct {
	ClID        fixed.Token
	Action      Action
	Venue       fixed.Token // normalized (lowercase) venue key
	VenueType   fixed.Token
	ProductType fixed.Token

	Symbol    fixed.Token // compact form, e.g. BTCUSDT
	HyphenSym fixed.Token // hyphen form, e.g. BTC-USDT
	Side      fixed.Token
	OrderType fixed.Token
	TIF       fixed.Token
	Category  fixed.Token

	Price      float64
	Size       float64
	StopPrice  float64
	HasPrice   bool
	HasStop    bool
	ReduceOnly bool

	// Cancel/replace target reference and replace deltas.
	TargetClID fixed.Token
	NewPrice   fixed.Token
	NewSize    fixed.Token

	// Assigned by the venue on acceptance, kept for cancel/replace routing.
	VenueOrderID fixed.Token

	Params fixed.KVSet
	Tags   fixed.KVSet

	TsNs uint64
}

// ReportRecord is a pooled outbound execution report. Slots are released back
// to their pool immediately after the serialized form is queued.
type ReportRecord struct {
	ClID            fixed.Token
	Status          fixed.Token
	ExchangeOrderID fixed.Token
	ReasonCode      fixed.Token
	ReasonText      fixed.Token
	Tags            fixed.KVSet
	TsNs            int64
}

// FillRecord is a pooled outbound execution fill, same lifetime rule as
// ReportRecord.
type FillRecord struct {
	ClID            fixed.Token
	ExchangeOrderID fixed.Token
	ExecID          fixed.Token
	Symbol          fixed.Token
	FeeCurrency     fixed.Token
	Liquidity       fixed.Token
	Price           float64
	Size            float64
	Fee             float64
	Tags            fixed.KVSet
	TsNs            int64
}

// updateEvent funnels an adapter callback onto the intake goroutine together
// with the venue it came from, so rehydration knows whom to query.
type updateEvent struct {
	venue  string
	update venue.OrderUpdate
}

type fillEvent struct {
	venue string
	fill  venue.FillData
}

// pendingEntry is the pending-index value: a generation-checked handle into
// the order pool plus the first-seen timestamp.
type pendingEntry struct {
	handle fixed.Handle
	seenNs int64
}
