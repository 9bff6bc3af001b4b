// Package paper implements an in-process simulated venue. It honors the full
// adapter surface so the engine can run end to end without touching a real
// exchange: market orders fill immediately, limit orders rest until canceled
// or filled through the test/simulation hooks, and cancel of an absent order
// answers the way derivatives venues do ("order does not exist").
package paper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"exec-gateway/pkg/venue"
)

// Config tunes the simulation.
type Config struct {
	Name        string
	FeeRate     decimal.Decimal // taker fee as a fraction, e.g. 0.0004
	FeeCurrency string
}

type restingOrder struct {
	req        venue.OrderRequest
	exchangeID string
	remaining  decimal.Decimal
}

// Venue is a simulated execution venue. Safe for concurrent use; update and
// fill callbacks are invoked on their own goroutine per event, mimicking
// adapter-managed callback threads.
type Venue struct {
	name string
	cfg  Config

	mu        sync.Mutex
	connected bool
	orders    map[string]*restingOrder // client order id -> resting order
	marks     map[string]decimal.Decimal

	updateCb func(venue.OrderUpdate)
	fillCb   func(venue.FillData)
}

// New builds a paper venue.
func New(cfg Config) *Venue {
	if cfg.Name == "" {
		cfg.Name = "paper"
	}
	if cfg.FeeCurrency == "" {
		cfg.FeeCurrency = "USDT"
	}
	return &Venue{
		name:   cfg.Name,
		cfg:    cfg,
		orders: make(map[string]*restingOrder),
		marks:  make(map[string]decimal.Decimal),
	}
}

func (v *Venue) Name() string { return v.name }

func (v *Venue) Connect(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = true
	return nil
}

func (v *Venue) Disconnect() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = false
}

func (v *Venue) IsConnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connected
}

func (v *Venue) SetOrderUpdateCallback(fn func(venue.OrderUpdate)) { v.updateCb = fn }
func (v *Venue) SetFillCallback(fn func(venue.FillData))           { v.fillCb = fn }

// SetMarkPrice sets the price market orders execute at for a symbol.
func (v *Venue) SetMarkPrice(symbol string, price decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.marks[symbol] = price
}

// PlaceOrder accepts limit and market orders. Market orders fill at the mark
// price (or the request price when no mark is set) and report the fill via
// the fill callback after the synchronous ack.
func (v *Venue) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResponse, error) {
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil || qty.Sign() <= 0 {
		return refuse(req.ClientOrderID, "invalid_size: quantity must be positive"), nil
	}

	var price decimal.Decimal
	switch req.OrderType {
	case "limit":
		price, err = decimal.NewFromString(req.Price)
		if err != nil || price.Sign() <= 0 {
			return refuse(req.ClientOrderID, "invalid_params: limit order requires price"), nil
		}
	case "market":
		// price resolved against the mark below
	default:
		return refuse(req.ClientOrderID, fmt.Sprintf("unsupported_type: %s", req.OrderType)), nil
	}

	v.mu.Lock()
	if _, dup := v.orders[req.ClientOrderID]; dup {
		v.mu.Unlock()
		return refuse(req.ClientOrderID, "duplicate client order id"), nil
	}
	exchangeID := uuid.NewString()
	ord := &restingOrder{req: req, exchangeID: exchangeID, remaining: qty}
	v.orders[req.ClientOrderID] = ord

	if req.OrderType == "market" {
		if mark, ok := v.marks[req.Symbol]; ok {
			price = mark
		} else if req.Price != "" {
			price, _ = decimal.NewFromString(req.Price)
		}
		if price.Sign() <= 0 {
			delete(v.orders, req.ClientOrderID)
			v.mu.Unlock()
			return refuse(req.ClientOrderID, "no liquidity: no mark price for symbol"), nil
		}
	}
	v.mu.Unlock()

	if req.OrderType == "market" {
		v.executeFill(req.ClientOrderID, price, qty, "taker")
	}

	return venue.OrderResponse{
		Success:         true,
		ExchangeOrderID: exchangeID,
		ClientOrderID:   req.ClientOrderID,
		Status:          "New",
	}, nil
}

// CancelOrder removes a resting order. Cancelling an order the venue does not
// know answers Success=false with the venue's "does not exist" spelling; the
// engine maps that to idempotent success.
func (v *Venue) CancelOrder(ctx context.Context, clientOrderID string, opts venue.CancelOptions) (venue.OrderResponse, error) {
	v.mu.Lock()
	ord, ok := v.orders[clientOrderID]
	if ok {
		delete(v.orders, clientOrderID)
	}
	v.mu.Unlock()

	if !ok {
		return venue.OrderResponse{
			Success:       false,
			ClientOrderID: clientOrderID,
			Message:       "order does not exist or has finished",
		}, nil
	}

	v.notifyUpdate(venue.OrderUpdate{
		ClientOrderID:   clientOrderID,
		ExchangeOrderID: ord.exchangeID,
		Status:          "Cancelled",
	})
	return venue.OrderResponse{
		Success:         true,
		ClientOrderID:   clientOrderID,
		ExchangeOrderID: ord.exchangeID,
		Status:          "Cancelled",
	}, nil
}

// ModifyOrder adjusts a resting order's price and/or quantity.
func (v *Venue) ModifyOrder(ctx context.Context, clientOrderID string, opts venue.ModifyOptions) (venue.OrderResponse, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ord, ok := v.orders[clientOrderID]
	if !ok {
		return venue.OrderResponse{
			Success:       false,
			ClientOrderID: clientOrderID,
			Message:       "order does not exist or has finished",
		}, nil
	}
	if opts.NewPrice != "" {
		p, err := decimal.NewFromString(opts.NewPrice)
		if err != nil || p.Sign() <= 0 {
			return refuse(clientOrderID, "invalid_params: bad new price"), nil
		}
		ord.req.Price = opts.NewPrice
	}
	if opts.NewQuantity != "" {
		q, err := decimal.NewFromString(opts.NewQuantity)
		if err != nil || q.Sign() <= 0 {
			return refuse(clientOrderID, "invalid_params: bad new quantity"), nil
		}
		ord.req.Quantity = opts.NewQuantity
		ord.remaining = q
	}
	return venue.OrderResponse{
		Success:         true,
		ClientOrderID:   clientOrderID,
		ExchangeOrderID: ord.exchangeID,
		Status:          "Replaced",
	}, nil
}

// QueryOrder reports a resting order's current state.
func (v *Venue) QueryOrder(ctx context.Context, clientOrderID string) (venue.OrderResponse, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ord, ok := v.orders[clientOrderID]
	if !ok {
		return venue.OrderResponse{
			Success:       false,
			ClientOrderID: clientOrderID,
			Message:       "order does not exist or has finished",
		}, nil
	}
	return venue.OrderResponse{
		Success:         true,
		ClientOrderID:   clientOrderID,
		ExchangeOrderID: ord.exchangeID,
		Status:          "New",
		Extra: map[string]string{
			"symbol":   ord.req.Symbol,
			"category": ord.req.Category,
		},
	}, nil
}

// ListOpenOrders returns resting orders matching the filter.
func (v *Venue) ListOpenOrders(ctx context.Context, filter venue.ListFilter) ([]venue.OpenOrderBrief, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []venue.OpenOrderBrief
	for clID, ord := range v.orders {
		if filter.Category != "" && ord.req.Category != filter.Category {
			continue
		}
		if filter.Symbol != "" && ord.req.Symbol != filter.Symbol {
			continue
		}
		if filter.BaseCoin != "" && !strings.HasPrefix(ord.req.Symbol, filter.BaseCoin) {
			continue
		}
		if filter.SettleCoin != "" && !strings.HasSuffix(ord.req.Symbol, filter.SettleCoin) {
			continue
		}
		out = append(out, venue.OpenOrderBrief{
			ClientOrderID:   clID,
			ExchangeOrderID: ord.exchangeID,
			Symbol:          ord.req.Symbol,
			Side:            ord.req.Side,
			OrderType:       ord.req.OrderType,
			Qty:             ord.remaining.String(),
			ReduceOnly:      ord.req.ReduceOnly,
			Category:        ord.req.Category,
		})
	}
	return out, nil
}

// Fill executes qty of a resting order at price, as if the market traded
// through it. Simulation/test hook.
func (v *Venue) Fill(clientOrderID string, price, qty decimal.Decimal) error {
	v.mu.Lock()
	ord, ok := v.orders[clientOrderID]
	v.mu.Unlock()
	if !ok {
		return fmt.Errorf("paper: no resting order %s", clientOrderID)
	}
	if qty.GreaterThan(ord.remaining) {
		qty = ord.remaining
	}
	v.executeFill(clientOrderID, price, qty, "maker")
	return nil
}

func (v *Venue) executeFill(clientOrderID string, price, qty decimal.Decimal, liquidity string) {
	v.mu.Lock()
	ord, ok := v.orders[clientOrderID]
	if !ok {
		v.mu.Unlock()
		return
	}
	ord.remaining = ord.remaining.Sub(qty)
	done := ord.remaining.Sign() <= 0
	if done {
		delete(v.orders, clientOrderID)
	}
	exchangeID := ord.exchangeID
	symbol := ord.req.Symbol
	side := ord.req.Side
	v.mu.Unlock()

	fee := price.Mul(qty).Mul(v.cfg.FeeRate)
	fill := venue.FillData{
		ClientOrderID:   clientOrderID,
		ExchangeOrderID: exchangeID,
		ExecID:          uuid.NewString(),
		Symbol:          symbol,
		Side:            side,
		Price:           price.String(),
		Quantity:        qty.String(),
		Fee:             fee.String(),
		FeeCurrency:     v.cfg.FeeCurrency,
		Liquidity:       liquidity,
	}

	status := "PartiallyFilled"
	if done {
		status = "Filled"
	}
	// One execution, one delivery: the fill rides inside the order update
	// when an update subscriber exists; the standalone fill callback only
	// serves consumers that did not subscribe to updates.
	if v.updateCb != nil {
		v.notifyUpdate(venue.OrderUpdate{
			ClientOrderID:   clientOrderID,
			ExchangeOrderID: exchangeID,
			Status:          status,
			Fill:            &fill,
		})
		return
	}
	if v.fillCb != nil {
		cb := v.fillCb
		go cb(fill)
	}
}

func (v *Venue) notifyUpdate(u venue.OrderUpdate) {
	if v.updateCb != nil {
		cb := v.updateCb
		go cb(u)
	}
}

func refuse(clientOrderID, msg string) venue.OrderResponse {
	return venue.OrderResponse{
		Success:       false,
		ClientOrderID: clientOrderID,
		Message:       msg,
	}
}
