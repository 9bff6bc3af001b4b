package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"exec-gateway/internal/monitor"
	"exec-gateway/pkg/clock"
	"exec-gateway/pkg/fixed"
	"exec-gateway/pkg/venue"
	"exec-gateway/pkg/wire"
)

// Intake is the non-blocking inbound message source. Poll returns the next
// raw message and true, or false when nothing is waiting.
type Intake interface {
	Poll() ([]byte, bool)
}

// Publisher hands serialized outbound messages to the external transport.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Config sizes the engine's fixed-capacity structures. Zero fields take the
// defaults below.
type Config struct {
	OrderPoolSize     int
	ReportPoolSize    int
	FillPoolSize      int
	ProcessedCapacity int
	PendingCapacity   int
	QueueCapacity     int
	UpdateBuffer      int

	// IdleBackoff is the sleep between empty intake polls.
	IdleBackoff time.Duration

	// ProcessedRetention bounds how long a dedup entry outlives its order.
	// When the processed index passes three quarters full, entries older
	// than this that are no longer pending are swept.
	ProcessedRetention time.Duration

	InstanceTag string
}

func (c *Config) applyDefaults() {
	if c.OrderPoolSize <= 0 {
		c.OrderPoolSize = 8192
	}
	if c.ReportPoolSize <= 0 {
		c.ReportPoolSize = 4096
	}
	if c.FillPoolSize <= 0 {
		c.FillPoolSize = 4096
	}
	if c.ProcessedCapacity <= 0 {
		c.ProcessedCapacity = 65536
	}
	if c.PendingCapacity <= 0 {
		c.PendingCapacity = 8192
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 8192
	}
	if c.UpdateBuffer <= 0 {
		c.UpdateBuffer = 1024
	}
	if c.IdleBackoff <= 0 {
		c.IdleBackoff = time.Millisecond
	}
	if c.ProcessedRetention <= 0 {
		c.ProcessedRetention = 10 * time.Minute
	}
}

// Engine runs the order lifecycle. The pools, indices and dedup state are
// owned by the goroutine running Run; venue callbacks are funneled onto it
// through buffered channels, so no structure here needs a lock. Only the
// outbound queue is shared, with RunPublisher as its sole consumer.
type Engine struct {
	cfg Config

	orders  *fixed.Pool[OrderRecord]
	reports *fixed.Pool[ReportRecord]
	fills   *fixed.Pool[FillRecord]

	processed *fixed.Index[int64]
	pending   *fixed.Index[pendingEntry]

	queue *fixed.Queue[wire.PublishMessage]

	adapters map[string]venue.Adapter

	clk   clock.Source
	stats *monitor.Stats
	hist  *monitor.LatencyHistogram
	log   zerolog.Logger

	updates    chan updateEvent
	fillEvents chan fillEvent
	queries    chan pendingQuery

	lastSweepNs  int64
	sweepScratch []fixed.Token
}

type pendingQuery struct {
	reply chan []PendingOrderView
}

// New builds an engine over the given adapters and registers its callbacks
// on each of them. Pool warmup happens here, before any goroutine starts.
func New(cfg Config, adapters []venue.Adapter, clk clock.Source, stats *monitor.Stats, hist *monitor.LatencyHistogram, log zerolog.Logger) *Engine {
	cfg.applyDefaults()

	e := &Engine{
		cfg:        cfg,
		orders:     fixed.NewPool[OrderRecord](cfg.OrderPoolSize),
		reports:    fixed.NewPool[ReportRecord](cfg.ReportPoolSize),
		fills:      fixed.NewPool[FillRecord](cfg.FillPoolSize),
		processed:  fixed.NewIndex[int64](cfg.ProcessedCapacity),
		pending:    fixed.NewIndex[pendingEntry](cfg.PendingCapacity),
		queue:      fixed.NewQueue[wire.PublishMessage](nextPow2(cfg.QueueCapacity)),
		adapters:   make(map[string]venue.Adapter, len(adapters)),
		clk:        clk,
		stats:      stats,
		hist:       hist,
		log:        log,
		updates:    make(chan updateEvent, cfg.UpdateBuffer),
		fillEvents: make(chan fillEvent, cfg.UpdateBuffer),
		queries:    make(chan pendingQuery, 8),
	}
	e.sweepScratch = make([]fixed.Token, 0, cfg.ProcessedCapacity)
	for _, ad := range adapters {
		name := NormalizeVenueKey(ad.Name())
		e.adapters[name] = ad
		ad.SetOrderUpdateCallback(func(u venue.OrderUpdate) {
			select {
			case e.updates <- updateEvent{venue: name, update: u}:
			default:
				e.stats.UpdatesDropped.Add(1)
			}
		})
		ad.SetFillCallback(func(f venue.FillData) {
			select {
			case e.fillEvents <- fillEvent{venue: name, fill: f}:
			default:
				e.stats.UpdatesDropped.Add(1)
			}
		})
	}
	return e
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Run is the intake loop. It polls the inbound source, drains venue
// callbacks, and sweeps the dedup index, sleeping IdleBackoff when idle so
// cancellation is observed promptly.
func (e *Engine) Run(ctx context.Context, in Intake) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		worked := false
		if raw, ok := in.Poll(); ok {
			e.handleInbound(ctx, raw)
			worked = true
		}
		for drained := 0; drained < 64; drained++ {
			select {
			case ev := <-e.updates:
				e.handleUpdate(ctx, ev)
				worked = true
				continue
			default:
			}
			select {
			case ev := <-e.fillEvents:
				e.handleFill(ev.fill)
				worked = true
				continue
			default:
			}
			select {
			case q := <-e.queries:
				q.reply <- e.PendingOrders()
				worked = true
				continue
			default:
			}
			break
		}
		e.maybeSweep()

		if !worked {
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.cfg.IdleBackoff):
			}
		}
	}
}

// RunPublisher drains the outbound queue into pub. On cancellation it
// finishes the queue's current contents and exits; messages pushed after
// that point are dropped with the process.
func (e *Engine) RunPublisher(ctx context.Context, pub Publisher) {
	for {
		if msg, ok := e.queue.TryPop(); ok {
			e.publishOne(pub, &msg)
			continue
		}
		select {
		case <-ctx.Done():
			for {
				msg, ok := e.queue.TryPop()
				if !ok {
					return
				}
				e.publishOne(pub, &msg)
			}
		case <-time.After(e.cfg.IdleBackoff):
		}
	}
}

func (e *Engine) publishOne(pub Publisher, msg *wire.PublishMessage) {
	if err := pub.Publish(msg.Topic(), msg.Payload()); err != nil {
		e.log.Warn().Err(err).Str("topic", msg.Topic()).Msg("publish failed")
		return
	}
	e.stats.MessagesPublished.Add(1)
}

// Reconcile seeds the pending index from each venue's open-order listing so
// orders placed in a prior process lifetime are not orphaned. Linear
// contracts are listed per settlement asset.
func (e *Engine) Reconcile(ctx context.Context) {
	for name, ad := range e.adapters {
		for _, cat := range venue.Categories {
			filters := []venue.ListFilter{{Category: cat}}
			if cat == venue.CategoryLinear {
				filters = []venue.ListFilter{
					{Category: cat, SettleCoin: "USDT"},
					{Category: cat, SettleCoin: "USDC"},
				}
			}
			for _, f := range filters {
				briefs, err := ad.ListOpenOrders(ctx, f)
				if err != nil {
					e.log.Warn().Err(err).Str("venue", name).Str("category", cat).
						Msg("open-order listing failed")
					continue
				}
				for i := range briefs {
					e.seedPending(name, cat, &briefs[i])
				}
			}
		}
	}
}

func (e *Engine) seedPending(venueName, category string, b *venue.OpenOrderBrief) {
	clid, err := fixed.MakeToken(b.ClientOrderID)
	if err != nil || clid.IsEmpty() {
		return
	}
	if _, found := e.pending.Find(clid); found {
		return
	}
	h, rec, err := e.orders.Allocate()
	if err != nil {
		e.stats.PoolExhausted.Add(1)
		return
	}
	now := e.clk.Now()
	rec.ClID = clid
	rec.Action = ActionPlace
	rec.Venue = fixed.Clip(venueName)
	rec.Symbol = fixed.Clip(CompactSymbol(b.Symbol))
	rec.HyphenSym = fixed.Clip(HyphenSymbol(b.Symbol, category != venue.CategorySpot))
	rec.Side = fixed.Clip(b.Side)
	rec.OrderType = fixed.Clip(b.OrderType)
	rec.Category = fixed.Clip(category)
	rec.VenueOrderID = fixed.Clip(b.ExchangeOrderID)
	rec.ReduceOnly = b.ReduceOnly
	if qty, err := strconv.ParseFloat(b.Qty, 64); err == nil {
		rec.Size = qty
	}
	if err := e.pending.Insert(clid, pendingEntry{handle: h, seenNs: now}); err != nil {
		e.stats.IndexFullRejects.Add(1)
		_ = e.orders.Release(h)
		return
	}
	_ = e.processed.Insert(clid, now)
	e.log.Info().Str("cl_id", b.ClientOrderID).Str("venue", venueName).
		Str("category", category).Msg("reconciled open order")
}

// handleInbound runs one inbound message through the full lifecycle. The
// parse slot is always released on return; accepted places live on in a
// separate slot owned by the pending index.
func (e *Engine) handleInbound(ctx context.Context, raw []byte) {
	e.stats.OrdersReceived.Add(1)
	start := e.clk.Now()

	doc, err := wire.DecodeOrder(raw)
	if err != nil {
		clID := ""
		if doc != nil {
			clID = doc.ClID
		}
		e.reject(clID, "invalid_params", err.Error(), nil)
		return
	}

	act := ParseAction(doc.Action)
	if act == ActionUnknown {
		e.reject(doc.ClID, "invalid_action", "unsupported action: "+doc.Action, doc.Tags)
		return
	}

	h, rec, err := e.orders.Allocate()
	if err != nil {
		e.stats.PoolExhausted.Add(1)
		e.reject(doc.ClID, "engine_capacity", "order pool exhausted", doc.Tags)
		return
	}
	defer func() { _ = e.orders.Release(h) }()

	if reason := populateRecord(rec, doc, act); reason != "" {
		e.reject(doc.ClID, CanonicalReason(reason), reason, doc.Tags)
		return
	}

	now := e.clk.Now()
	if act == ActionPlace {
		if _, seen := e.processed.Find(rec.ClID); seen {
			if _, live := e.pending.Find(rec.ClID); live {
				e.stats.DuplicatesDropped.Add(1)
				return
			}
		}
	}
	ad, ok := e.adapters[rec.Venue.String()]
	if !ok {
		e.reject(doc.ClID, "unknown_venue", "no adapter for venue: "+doc.Venue, doc.Tags)
		return
	}

	// Processing will proceed from here; only now does the id earn a
	// dedup slot.
	if err := e.processed.Insert(rec.ClID, now); err != nil {
		e.stats.IndexFullRejects.Add(1)
		e.reject(doc.ClID, "engine_capacity", "dedup index full", doc.Tags)
		return
	}

	switch act {
	case ActionPlace:
		e.dispatchPlace(ctx, ad, rec)
	case ActionCancel:
		e.dispatchCancel(ctx, ad, rec)
	case ActionReplace:
		e.dispatchReplace(ctx, ad, rec)
	}

	e.stats.OrdersProcessed.Add(1)
	if elapsed := e.clk.Now() - start; elapsed > 0 {
		e.stats.RecordLatency(uint64(elapsed))
		if e.hist != nil {
			e.hist.RecordNs(uint64(elapsed))
		}
	}
}

func (e *Engine) dispatchPlace(ctx context.Context, ad venue.Adapter, rec *OrderRecord) {
	req := venue.OrderRequest{
		ClientOrderID: rec.ClID.String(),
		Symbol:        rec.Symbol.String(),
		Side:          rec.Side.String(),
		OrderType:     rec.OrderType.String(),
		Quantity:      formatQty(rec.Size),
		TimeInForce:   rec.TIF.String(),
		Category:      rec.Category.String(),
		ReduceOnly:    rec.ReduceOnly,
	}
	if rec.HasPrice {
		req.Price = formatQty(rec.Price)
	}
	if rec.Params.Len() > 0 || rec.HasStop {
		req.ExtraParams = make(map[string]string, rec.Params.Len()+1)
		rec.Params.Range(func(k, v fixed.Token) bool {
			req.ExtraParams[k.String()] = v.String()
			return true
		})
		if rec.HasStop {
			req.ExtraParams["triggerPrice"] = formatQty(rec.StopPrice)
		}
	}

	resp, err := ad.PlaceOrder(ctx, req)
	if err != nil {
		e.reject(rec.ClID.String(), "network_error", err.Error(), kvToMap(&rec.Tags))
		return
	}
	if !resp.Success {
		e.reject(rec.ClID.String(), ReasonForVenueMessage(resp.Message), resp.Message, kvToMap(&rec.Tags))
		return
	}

	// Track the live order in its own slot; the parse slot is released by
	// the caller. Losing the slot here is recoverable: the order is live at
	// the venue and lazy rehydration will pick it up on the next update.
	ph, pendingRec, aerr := e.orders.Allocate()
	if aerr != nil {
		e.stats.PoolExhausted.Add(1)
		e.log.Error().Str("cl_id", rec.ClID.String()).Msg("accepted order not tracked: pool exhausted")
	} else {
		*pendingRec = *rec
		pendingRec.VenueOrderID = fixed.Clip(resp.ExchangeOrderID)
		if ierr := e.pending.Insert(rec.ClID, pendingEntry{handle: ph, seenNs: e.clk.Now()}); ierr != nil {
			e.stats.IndexFullRejects.Add(1)
			_ = e.orders.Release(ph)
			e.log.Error().Str("cl_id", rec.ClID.String()).Msg("accepted order not tracked: pending index full")
		}
	}

	e.emitReport(rec.ClID.String(), "accepted", resp.ExchangeOrderID, "ok", "OK", kvToMap(&rec.Tags))
}

func (e *Engine) dispatchCancel(ctx context.Context, ad venue.Adapter, rec *OrderRecord) {
	target := rec.TargetClID
	opts := venue.CancelOptions{
		Symbol:   rec.Symbol.String(),
		Category: rec.Category.String(),
	}
	targetTags := kvToMap(&rec.Tags)
	venueOrderID := ""
	if entry, found := e.pending.Find(target); found {
		if trec, ok := e.orders.Get(entry.handle); ok {
			opts.Symbol = trec.Symbol.String()
			opts.Category = trec.Category.String()
			opts.ExchangeOrderID = trec.VenueOrderID.String()
			venueOrderID = trec.VenueOrderID.String()
			targetTags = kvToMap(&trec.Tags)
		}
	}

	resp, err := ad.CancelOrder(ctx, target.String(), opts)
	if err != nil {
		e.reject(rec.ClID.String(), "network_error", err.Error(), kvToMap(&rec.Tags))
		return
	}
	if !resp.Success && !IsAbsentOrderMessage(resp.Message) {
		e.reject(rec.ClID.String(), ReasonForVenueMessage(resp.Message), resp.Message, kvToMap(&rec.Tags))
		return
	}

	// A successful cancel produces two reports: an acceptance for the
	// cancel request itself and a synthetic terminal report for the target.
	e.emitReport(rec.ClID.String(), "accepted", resp.ExchangeOrderID, "ok", "OK", kvToMap(&rec.Tags))
	e.emitReport(target.String(), "canceled", venueOrderID, "ok", "Order cancelled", targetTags)
	e.dropPending(target)
}

func (e *Engine) dispatchReplace(ctx context.Context, ad venue.Adapter, rec *OrderRecord) {
	target := rec.TargetClID
	opts := venue.ModifyOptions{
		NewQuantity: rec.NewSize.String(),
		NewPrice:    rec.NewPrice.String(),
	}
	targetTags := kvToMap(&rec.Tags)
	entry, tracked := e.pending.Find(target)
	if tracked {
		if trec, ok := e.orders.Get(entry.handle); ok {
			targetTags = kvToMap(&trec.Tags)
		}
	}

	resp, err := ad.ModifyOrder(ctx, target.String(), opts)
	if err != nil {
		e.reject(rec.ClID.String(), "network_error", err.Error(), kvToMap(&rec.Tags))
		return
	}
	if !resp.Success {
		e.reject(rec.ClID.String(), ReasonForVenueMessage(resp.Message), resp.Message, kvToMap(&rec.Tags))
		return
	}

	if tracked {
		if trec, ok := e.orders.Get(entry.handle); ok {
			if p, perr := strconv.ParseFloat(rec.NewPrice.String(), 64); perr == nil && p > 0 {
				trec.Price = p
				trec.HasPrice = true
			}
			if q, qerr := strconv.ParseFloat(rec.NewSize.String(), 64); qerr == nil && q > 0 {
				trec.Size = q
			}
		}
	}

	e.emitReport(rec.ClID.String(), "accepted", resp.ExchangeOrderID, "ok", "OK", kvToMap(&rec.Tags))
	e.emitReport(target.String(), "replaced", resp.ExchangeOrderID, "ok", "Order replaced", targetTags)
}

// handleUpdate processes one asynchronous venue order update on the intake
// goroutine.
func (e *Engine) handleUpdate(ctx context.Context, ev updateEvent) {
	u := ev.update
	// A truncated id could alias a different pending order, so an
	// oversize one drops the whole event.
	clid, terr := fixed.MakeToken(u.ClientOrderID)
	if terr != nil {
		e.stats.UpdatesDropped.Add(1)
		e.log.Warn().Str("cl_id", u.ClientOrderID).Msg("update dropped: client id exceeds token length")
		return
	}

	norm, recognized := NormalizeStatus(u.Status)

	entry, found := e.pending.Find(clid)
	if !found {
		if IsTerminal(u.Status) {
			// Late duplicate for an already cleaned-up order.
			if u.Fill != nil {
				e.handleFill(*u.Fill)
			}
			return
		}
		if !e.rehydrate(ctx, ev.venue, u.ClientOrderID) {
			e.stats.UpdatesDropped.Add(1)
			if u.Fill != nil {
				e.handleFill(*u.Fill)
			}
			return
		}
		entry, found = e.pending.Find(clid)
	}

	var tags map[string]string
	if found {
		if trec, ok := e.orders.Get(entry.handle); ok {
			tags = kvToMap(&trec.Tags)
			if trec.VenueOrderID.IsEmpty() && u.ExchangeOrderID != "" {
				trec.VenueOrderID = fixed.Clip(u.ExchangeOrderID)
			}
		}
	}

	if recognized {
		code := "ok"
		if norm == "rejected" {
			code = ReasonForVenueMessage(u.Reason)
		}
		e.emitReport(u.ClientOrderID, norm, u.ExchangeOrderID, code, ReasonText(norm, u.Reason), tags)
	} else {
		e.stats.UpdatesDropped.Add(1)
		e.log.Debug().Str("cl_id", u.ClientOrderID).Str("status", u.Status).
			Msg("unrecognized order status dropped")
	}

	if u.Fill != nil {
		e.handleFill(*u.Fill)
	}
	if IsTerminal(u.Status) {
		e.dropPending(clid)
	}
}

// rehydrate reconstructs a minimal pending entry for an order the engine lost
// track of, by querying the venue once. Returns false when the venue does not
// know the order either.
func (e *Engine) rehydrate(ctx context.Context, venueName, clientOrderID string) bool {
	ad, ok := e.adapters[venueName]
	if !ok {
		return false
	}
	resp, err := ad.QueryOrder(ctx, clientOrderID)
	if err != nil || !resp.Success {
		return false
	}
	clid, terr := fixed.MakeToken(clientOrderID)
	if terr != nil {
		return false
	}
	h, rec, aerr := e.orders.Allocate()
	if aerr != nil {
		e.stats.PoolExhausted.Add(1)
		return false
	}
	rec.ClID = clid
	rec.Action = ActionPlace
	rec.Venue = fixed.Clip(venueName)
	rec.VenueOrderID = fixed.Clip(resp.ExchangeOrderID)
	if sym := resp.Extra["symbol"]; sym != "" {
		rec.Symbol = fixed.Clip(CompactSymbol(sym))
		rec.HyphenSym = fixed.Clip(HyphenSymbol(sym, resp.Extra["category"] != venue.CategorySpot))
	}
	if cat := resp.Extra["category"]; cat != "" {
		rec.Category = fixed.Clip(cat)
	}
	if err := e.pending.Insert(clid, pendingEntry{handle: h, seenNs: e.clk.Now()}); err != nil {
		e.stats.IndexFullRejects.Add(1)
		_ = e.orders.Release(h)
		return false
	}
	e.log.Info().Str("cl_id", clientOrderID).Str("venue", venueName).Msg("rehydrated untracked order")
	return true
}

// handleFill republishes one execution. Fills are never gated by dedup; a
// fill with no tracked order is forwarded as externally sourced.
func (e *Engine) handleFill(f venue.FillData) {
	clid, terr := fixed.MakeToken(f.ClientOrderID)
	if terr != nil {
		e.stats.UpdatesDropped.Add(1)
		e.log.Warn().Str("cl_id", f.ClientOrderID).Msg("fill dropped: client id exceeds token length")
		return
	}
	e.stats.FillsReceived.Add(1)

	fh, frec, err := e.fills.Allocate()
	if err != nil {
		e.stats.PoolExhausted.Add(1)
		e.log.Error().Str("cl_id", f.ClientOrderID).Msg("fill dropped: pool exhausted")
		return
	}
	defer func() { _ = e.fills.Release(fh) }()

	frec.ClID = clid
	frec.ExchangeOrderID = fixed.Clip(f.ExchangeOrderID)
	frec.ExecID = fixed.Clip(f.ExecID)
	frec.FeeCurrency = fixed.Clip(f.FeeCurrency)
	frec.Liquidity = fixed.Clip(f.Liquidity)
	frec.Price, _ = strconv.ParseFloat(f.Price, 64)
	frec.Size, _ = strconv.ParseFloat(f.Quantity, 64)
	frec.Fee, _ = strconv.ParseFloat(f.Fee, 64)
	frec.TsNs = e.clk.Now()

	source := "external"
	var tags map[string]string
	symbol := f.Symbol
	if entry, found := e.pending.Find(clid); found {
		if trec, ok := e.orders.Get(entry.handle); ok {
			source = "internal"
			tags = kvToMap(&trec.Tags)
			if !trec.HyphenSym.IsEmpty() {
				symbol = trec.HyphenSym.String()
			}
		}
	}
	frec.Symbol = fixed.Clip(symbol)

	if tags == nil {
		tags = make(map[string]string, 2)
	}
	tags["execution_source"] = source
	if e.cfg.InstanceTag != "" {
		tags["instance"] = e.cfg.InstanceTag
	}

	doc := wire.ExecutionFill{
		Version:         1,
		ClID:            frec.ClID.String(),
		ExchangeOrderID: frec.ExchangeOrderID.String(),
		ExecID:          frec.ExecID.String(),
		SymbolOrPair:    frec.Symbol.String(),
		Price:           frec.Price,
		Size:            frec.Size,
		FeeCurrency:     frec.FeeCurrency.String(),
		FeeAmount:       frec.Fee,
		Liquidity:       frec.Liquidity.String(),
		TsNs:            frec.TsNs,
		Tags:            tags,
	}
	e.enqueue(wire.KindFill, wire.TopicFill, doc, frec.TsNs)
}

func (e *Engine) reject(clID, code, text string, tags map[string]string) {
	e.stats.OrdersRejected.Add(1)
	e.emitReport(clID, "rejected", "", code, text, tags)
}

func (e *Engine) emitReport(clID, status, exchangeOrderID, code, text string, tags map[string]string) {
	rh, rr, err := e.reports.Allocate()
	if err != nil {
		e.stats.PoolExhausted.Add(1)
		e.log.Error().Str("cl_id", clID).Msg("report dropped: pool exhausted")
		return
	}
	defer func() { _ = e.reports.Release(rh) }()

	rr.ClID = fixed.Clip(clID)
	rr.Status = fixed.Clip(status)
	rr.ExchangeOrderID = fixed.Clip(exchangeOrderID)
	rr.ReasonCode = fixed.Clip(code)
	rr.ReasonText = fixed.Clip(text)
	rr.TsNs = e.clk.Now()

	if e.cfg.InstanceTag != "" {
		if tags == nil {
			tags = make(map[string]string, 1)
		}
		tags["instance"] = e.cfg.InstanceTag
	}

	doc := wire.ExecutionReport{
		Version:         1,
		ClID:            rr.ClID.String(),
		Status:          rr.Status.String(),
		ExchangeOrderID: rr.ExchangeOrderID.String(),
		ReasonCode:      rr.ReasonCode.String(),
		ReasonText:      rr.ReasonText.String(),
		TsNs:            rr.TsNs,
		Tags:            tags,
	}
	e.enqueue(wire.KindReport, wire.TopicReport, doc, rr.TsNs)
}

func (e *Engine) enqueue(kind wire.Kind, topic string, doc any, tsNs int64) {
	payload, err := wire.Encode(doc)
	if err != nil {
		e.log.Error().Err(err).Str("topic", topic).Msg("encode failed")
		return
	}
	msg, err := wire.NewPublishMessage(kind, topic, payload, tsNs)
	if err != nil {
		e.log.Error().Err(err).Str("topic", topic).Msg("message exceeds publish envelope")
		return
	}
	if !e.queue.TryPush(msg) {
		e.stats.QueueFullDrops.Add(1)
		e.log.Warn().Str("topic", topic).Msg("outbound queue full, message dropped")
	}
}

// dropPending removes and releases a pending entry. Removal and release are
// one step on the intake goroutine: never one without the other.
func (e *Engine) dropPending(clid fixed.Token) {
	entry, found := e.pending.Find(clid)
	if !found {
		return
	}
	h := entry.handle
	e.pending.Erase(clid)
	if err := e.orders.Release(h); err != nil {
		e.log.Error().Str("cl_id", clid.String()).Err(err).Msg("pending slot release failed")
	}
}

// maybeSweep evicts stale dedup entries once the processed index passes
// three quarters full. Entries still pending are kept regardless of age.
func (e *Engine) maybeSweep() {
	if e.processed.Len()*4 < e.processed.Capacity()*3 {
		return
	}
	now := e.clk.Now()
	if now-e.lastSweepNs < int64(time.Second) {
		return
	}
	e.lastSweepNs = now
	cutoff := now - int64(e.cfg.ProcessedRetention)
	e.sweepScratch = e.sweepScratch[:0]
	e.processed.Range(func(k fixed.Token, v *int64) bool {
		if *v < cutoff {
			if _, live := e.pending.Find(k); !live {
				e.sweepScratch = append(e.sweepScratch, k)
			}
		}
		return true
	})
	for _, k := range e.sweepScratch {
		e.processed.Erase(k)
	}
	if len(e.sweepScratch) > 0 {
		e.log.Info().Int("evicted", len(e.sweepScratch)).Msg("dedup index swept")
	}
}

// PendingCount reports how many orders are tracked as live. Advisory only.
func (e *Engine) PendingCount() int { return e.pending.Len() }

// ProcessedCount reports the dedup index population. Advisory only.
func (e *Engine) ProcessedCount() int { return e.processed.Len() }

// QueueDepth reports the outbound queue's approximate depth.
func (e *Engine) QueueDepth() int { return e.queue.Len() }

// SnapshotPending asks the intake goroutine for a copy of the tracked
// orders. This is the only safe way to read the pending index while Run is
// active.
func (e *Engine) SnapshotPending(ctx context.Context) ([]PendingOrderView, error) {
	q := pendingQuery{reply: make(chan []PendingOrderView, 1)}
	select {
	case e.queries <- q:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case views := <-q.reply:
		return views, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PendingOrders builds the tracked-order projection. It touches the pending
// index and must only run on the intake goroutine (or before Run starts);
// other goroutines go through SnapshotPending.
func (e *Engine) PendingOrders() []PendingOrderView {
	out := make([]PendingOrderView, 0, e.pending.Len())
	e.pending.Range(func(k fixed.Token, v *pendingEntry) bool {
		rec, ok := e.orders.Get(v.handle)
		if !ok {
			return true
		}
		out = append(out, PendingOrderView{
			ClID:         k.String(),
			Venue:        rec.Venue.String(),
			Symbol:       rec.HyphenSym.String(),
			Side:         rec.Side.String(),
			OrderType:    rec.OrderType.String(),
			Price:        rec.Price,
			Size:         rec.Size,
			Category:     rec.Category.String(),
			VenueOrderID: rec.VenueOrderID.String(),
			SeenNs:       v.seenNs,
		})
		return true
	})
	return out
}

// PendingOrderView is the read-only projection of one tracked order.
type PendingOrderView struct {
	ClID         string  `json:"cl_id"`
	Venue        string  `json:"venue"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	OrderType    string  `json:"order_type"`
	Price        float64 `json:"price"`
	Size         float64 `json:"size"`
	Category     string  `json:"category"`
	VenueOrderID string  `json:"venue_order_id"`
	SeenNs       int64   `json:"seen_ns"`
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func kvToMap(kv *fixed.KVSet) map[string]string {
	if kv == nil || kv.Len() == 0 {
		return nil
	}
	m := make(map[string]string, kv.Len())
	kv.Range(func(k, v fixed.Token) bool {
		m[k.String()] = v.String()
		return true
	})
	return m
}
