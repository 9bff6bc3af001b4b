package engine

import (
	"strings"

	"exec-gateway/pkg/fixed"
	"exec-gateway/pkg/wire"
)

// populateRecord fills rec from a decoded document and validates the fields
// the action requires. The return value is a raw reason code; empty means the
// record is ready to dispatch. All strings land in bounded tokens so nothing
// here allocates past the parse slot.
func populateRecord(rec *OrderRecord, doc *wire.ExecutionOrder, act Action) string {
	clid, err := fixed.MakeToken(doc.ClID)
	if err != nil {
		return "invalid_params"
	}
	rec.ClID = clid
	rec.Action = act
	rec.Venue = fixed.Clip(NormalizeVenueKey(doc.Venue))
	rec.VenueType = fixed.Clip(strings.ToLower(doc.VenueType))
	rec.ProductType = fixed.Clip(strings.ToLower(doc.ProductType))
	rec.TsNs = doc.TsNs

	for k, v := range doc.Tags {
		kt, kerr := fixed.MakeToken(k)
		vt, verr := fixed.MakeToken(v)
		if kerr != nil || verr != nil || !rec.Tags.Put(kt, vt) {
			return "invalid_params"
		}
	}

	switch act {
	case ActionPlace:
		return populatePlace(rec, doc)
	case ActionCancel:
		target := doc.Details.Cancel[wire.KeyCancelTarget]
		if target == "" {
			return "missing_cancel_id"
		}
		tt, terr := fixed.MakeToken(target)
		if terr != nil {
			return "invalid_params"
		}
		rec.TargetClID = tt
		if doc.Details.Symbol != "" {
			rec.Symbol = fixed.Clip(CompactSymbol(doc.Details.Symbol))
			rec.Category = fixed.Clip(CategoryFor(doc.ProductType, doc.Details.Symbol))
		}
		return ""
	case ActionReplace:
		target := doc.Details.Replace[wire.KeyReplaceTarget]
		if target == "" {
			return "missing_replace_id"
		}
		tt, terr := fixed.MakeToken(target)
		if terr != nil {
			return "invalid_params"
		}
		rec.TargetClID = tt
		rec.NewPrice = fixed.Clip(doc.Details.Replace[wire.KeyNewPrice])
		rec.NewSize = fixed.Clip(doc.Details.Replace[wire.KeyNewSize])
		if rec.NewPrice.IsEmpty() && rec.NewSize.IsEmpty() {
			return "missing_parameters"
		}
		return ""
	}
	return "invalid_action"
}

func populatePlace(rec *OrderRecord, doc *wire.ExecutionOrder) string {
	d := &doc.Details
	if d.Symbol == "" {
		return "invalid_symbol"
	}
	side := strings.ToLower(d.Side)
	if side != "buy" && side != "sell" {
		return "invalid_parameters"
	}
	if d.Size == nil || *d.Size <= 0 {
		return "invalid_size"
	}

	rec.Symbol = fixed.Clip(CompactSymbol(d.Symbol))
	rec.HyphenSym = fixed.Clip(HyphenSymbol(d.Symbol, IsPerp(doc.ProductType)))
	rec.Side = fixed.Clip(side)
	rec.Category = fixed.Clip(CategoryFor(doc.ProductType, d.Symbol))
	rec.TIF = fixed.Clip(MapTimeInForce(d.TimeInForce))
	rec.Size = *d.Size

	if d.ReduceOnly != nil && *d.ReduceOnly {
		if !IsPerp(doc.ProductType) {
			return "invalid_reduce_only"
		}
		rec.ReduceOnly = true
	}

	// Stop orders translate to the venue's base primitives plus a trigger
	// price carried as a pass-through parameter.
	orderType := strings.ToLower(d.OrderType)
	switch orderType {
	case "limit":
		if d.Price == nil || *d.Price <= 0 {
			return "missing_price"
		}
		rec.OrderType = fixed.Clip("limit")
		rec.Price = *d.Price
		rec.HasPrice = true
	case "market":
		rec.OrderType = fixed.Clip("market")
	case "stop", "stop_market":
		if d.StopPrice == nil || *d.StopPrice <= 0 {
			return "missing_stop_price"
		}
		rec.OrderType = fixed.Clip("market")
		rec.StopPrice = *d.StopPrice
		rec.HasStop = true
	case "stop_limit":
		if d.Price == nil || *d.Price <= 0 {
			return "missing_price"
		}
		if d.StopPrice == nil || *d.StopPrice <= 0 {
			return "missing_stop_price"
		}
		rec.OrderType = fixed.Clip("limit")
		rec.Price = *d.Price
		rec.HasPrice = true
		rec.StopPrice = *d.StopPrice
		rec.HasStop = true
	default:
		return "unsupported_type"
	}

	for k, v := range d.Params {
		kt, kerr := fixed.MakeToken(k)
		vt, verr := fixed.MakeToken(v)
		if kerr != nil || verr != nil || !rec.Params.Put(kt, vt) {
			return "invalid_parameters"
		}
	}
	return ""
}
