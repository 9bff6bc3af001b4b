// Package venue defines the capability surface an execution venue exposes to
// the engine and the shared request/response types that cross it. Concrete
// venue clients live in subpackages.
package venue

import "context"

// Category partitions venue instruments the way derivatives venues do.
const (
	CategorySpot    = "spot"
	CategoryLinear  = "linear"
	CategoryInverse = "inverse"
)

// Categories lists every category startup reconciliation queries.
var Categories = []string{CategorySpot, CategoryLinear, CategoryInverse}

// OrderRequest is a normalized order intent. Quantities and prices travel as
// strings: each venue formats its own numeric precision and the engine never
// re-rounds.
type OrderRequest struct {
	ClientOrderID string
	Symbol        string
	Side          string // "buy" or "sell"
	OrderType     string // "limit" or "market"
	Quantity      string
	Price         string // required for limit orders
	TimeInForce   string
	Category      string
	ReduceOnly    bool
	ExtraParams   map[string]string
}

// OrderResponse is the venue's synchronous answer to an order operation.
// A transport failure is returned as an error instead; Success=false means
// the venue itself refused the operation.
type OrderResponse struct {
	Success         bool
	Message         string
	ExchangeOrderID string
	ClientOrderID   string
	Status          string
	Extra           map[string]string
}

// OrderUpdate is an asynchronous order state change pushed by the venue. The
// embedded fill, when present, belongs to the same state change.
type OrderUpdate struct {
	ClientOrderID   string
	ExchangeOrderID string
	Status          string
	Reason          string
	TimestampMs     uint64
	Fill            *FillData
}

// FillData describes one execution.
type FillData struct {
	ClientOrderID   string
	ExchangeOrderID string
	ExecID          string
	Symbol          string
	Side            string
	Price           string
	Quantity        string
	Fee             string
	FeeCurrency     string
	Liquidity       string // "maker" or "taker"
	TimestampMs     uint64
}

// OpenOrderBrief is a row of a venue's open-order listing, used to seed the
// pending index at startup.
type OpenOrderBrief struct {
	ClientOrderID   string
	ExchangeOrderID string
	Symbol          string
	Side            string
	OrderType       string
	Qty             string
	ReduceOnly      bool
	Category        string
}

// CancelOptions narrows a cancel to the venue's addressing requirements.
type CancelOptions struct {
	Symbol          string
	ExchangeOrderID string
	Category        string
}

// ModifyOptions carries the fields a modify may change. Empty means keep.
type ModifyOptions struct {
	NewQuantity string
	NewPrice    string
}

// ListFilter narrows an open-order listing.
type ListFilter struct {
	Category   string
	Symbol     string
	SettleCoin string
	BaseCoin   string
}

// Adapter is the uniform surface the engine drives per venue. Every call is
// fallible and may block on network I/O; the engine accepts that cost to keep
// request/response ordering per order. Callbacks are invoked on
// adapter-managed goroutines and must not assume engine-thread affinity.
type Adapter interface {
	Name() string

	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool

	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	CancelOrder(ctx context.Context, clientOrderID string, opts CancelOptions) (OrderResponse, error)
	ModifyOrder(ctx context.Context, clientOrderID string, opts ModifyOptions) (OrderResponse, error)
	QueryOrder(ctx context.Context, clientOrderID string) (OrderResponse, error)
	ListOpenOrders(ctx context.Context, filter ListFilter) ([]OpenOrderBrief, error)

	SetOrderUpdateCallback(fn func(OrderUpdate))
	SetFillCallback(fn func(FillData))
}
