package engine

import (
	"strings"

	"exec-gateway/pkg/venue"
)

// ParseAction decodes the inbound action field. Matching is ASCII
// case-insensitive; anything outside the three known verbs is Unknown and is
// rejected before it can consume dedup-index space.
func ParseAction(s string) Action {
	switch strings.ToLower(s) {
	case "place":
		return ActionPlace
	case "cancel":
		return ActionCancel
	case "replace":
		return ActionReplace
	default:
		return ActionUnknown
	}
}

// NormalizeVenueKey canonicalizes a venue name for adapter lookup.
func NormalizeVenueKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// quoteAssets are the quote currencies recognized when splitting a compact
// symbol like BNBUSDT. Longer quotes are listed first so FDUSD wins over
// USD and USDT.
var quoteAssets = []string{"FDUSD", "USDT", "USDC", "BTC", "ETH", "USD", "EUR", "DAI"}

func splitCompactSymbol(s string) (base, quote string, ok bool) {
	for _, q := range quoteAssets {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return s[:len(s)-len(q)], q, true
		}
	}
	return "", "", false
}

// CompactSymbol normalizes any supported symbol spelling (BASE/QUOTE,
// BASE/QUOTE:SETTLE, BASE-QUOTE, BASE-QUOTE-PERP) to the compact uppercase
// form venues key their books by, e.g. BTCUSDT.
func CompactSymbol(symbol string) string {
	if symbol == "" {
		return symbol
	}
	s := symbol
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	s = strings.ToUpper(s)
	s = strings.TrimSuffix(s, "-PERP")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	if s == "" {
		return strings.ToUpper(symbol)
	}
	return s
}

// HyphenSymbol converts any supported symbol spelling to the hyphenated
// upstream form, BASE-QUOTE with a -PERP suffix for perpetuals.
func HyphenSymbol(symbol string, perp bool) string {
	s := symbol
	if s == "" {
		return s
	}
	suffix := ""
	if perp {
		suffix = "-PERP"
	}
	if colon := strings.IndexByte(s, ':'); colon >= 0 {
		left := s[:colon]
		if slash := strings.IndexByte(left, '/'); slash >= 0 {
			return left[:slash] + "-" + left[slash+1:] + suffix
		}
	}
	if slash := strings.IndexByte(s, '/'); slash >= 0 {
		return s[:slash] + "-" + s[slash+1:] + suffix
	}
	if strings.Contains(s, "-") {
		if perp && !strings.HasSuffix(s, "-PERP") {
			return s + "-PERP"
		}
		return s
	}
	if base, quote, ok := splitCompactSymbol(s); ok {
		return base + "-" + quote + suffix
	}
	return s
}

// MapTimeInForce translates upstream time-in-force codes to the venue
// vocabulary. Unrecognized codes pass through unchanged so venue-specific
// values survive the trip.
func MapTimeInForce(tif string) string {
	switch strings.ToUpper(tif) {
	case "":
		return ""
	case "GTC":
		return "GTC"
	case "IOC":
		return "IOC"
	case "FOK":
		return "FOK"
	case "PO", "POST_ONLY":
		return "PostOnly"
	default:
		return tif
	}
}

// NormalizeStatus maps a venue's raw order status into the fixed republish
// vocabulary. ok=false means the raw status is not recognized and the update
// must be dropped rather than forwarded unnormalized.
func NormalizeStatus(raw string) (string, bool) {
	switch strings.ToLower(raw) {
	case "new", "partiallyfilled", "filled", "accepted":
		return "accepted", true
	case "cancelled", "canceled", "partiallyfilledcancelled", "partiallyfilledcanceled", "inactive", "deactivated":
		return "canceled", true
	case "rejected":
		return "rejected", true
	case "amended", "replaced":
		return "replaced", true
	default:
		return "", false
	}
}

// IsTerminal reports whether a raw venue status ends the order's life and so
// must trigger pending-entry cleanup.
func IsTerminal(raw string) bool {
	switch strings.ToLower(raw) {
	case "filled", "cancelled", "canceled", "rejected",
		"partiallyfilledcancelled", "partiallyfilledcanceled", "deactivated":
		return true
	default:
		return false
	}
}

// CanonicalReason collapses the many internal and venue reason spellings into
// the small reason-code vocabulary reports carry upstream.
func CanonicalReason(raw string) string {
	switch lower := strings.ToLower(raw); lower {
	case "", "ok", "accepted":
		return "ok"
	case "invalid_params", "invalid_parameters", "invalid_parameter",
		"missing_parameters", "missing_parameter", "missing_price",
		"missing_stop_price", "missing_cancel_id", "missing_replace_id",
		"missing_action", "unsupported_type", "invalid_size",
		"invalid_reduce_only", "parameter_error", "invalid_symbol":
		return "invalid_params"
	case "invalid_action":
		return "invalid_action"
	case "unknown_venue":
		return "unknown_venue"
	case "engine_capacity", "pool_exhausted", "index_full":
		return "engine_capacity"
	case "risk_blocked", "risk_violation":
		return "risk_blocked"
	case "insufficient_balance", "balance_insufficient":
		return "insufficient_balance"
	case "post_only_violation", "post_only_reject":
		return "post_only_violation"
	case "min_size", "size_too_small":
		return "min_size"
	case "price_out_of_bounds", "price_too_far":
		return "price_out_of_bounds"
	case "rate_limited", "too_many_requests":
		return "rate_limited"
	case "network_error", "exchange_error", "processing_error", "timeout", "transport_error":
		return "network_error"
	case "expired", "ttl_expired":
		return "expired"
	default:
		return "venue_reject"
	}
}

// ReasonForVenueMessage infers a canonical reason code from a venue's
// free-text refusal message.
func ReasonForVenueMessage(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "balance"):
		return "insufficient_balance"
	case strings.Contains(lower, "rate") || strings.Contains(lower, "too many"):
		return "rate_limited"
	case strings.Contains(lower, "post only") || strings.Contains(lower, "post-only"):
		return "post_only_violation"
	default:
		return "venue_reject"
	}
}

// IsAbsentOrderMessage matches the venue refusals that mean the cancel target
// was already gone, which the engine treats as an idempotent success.
func IsAbsentOrderMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "not found") ||
		strings.Contains(lower, "does not exist") ||
		strings.Contains(lower, "has finished") ||
		strings.Contains(lower, "already closed")
}

// ReasonText fills the human-readable slot of a report when the venue gave no
// text of its own.
func ReasonText(status, raw string) string {
	if raw != "" {
		if raw == "EC_NoError" {
			return "OK"
		}
		return raw
	}
	switch status {
	case "canceled":
		return "Order cancelled"
	case "rejected":
		return "Order rejected"
	case "replaced":
		return "Order replaced"
	default:
		return "OK"
	}
}

// CategoryFor derives the venue instrument category from the upstream product
// type. Perpetuals settle in the quote asset unless the pair is coin-margined.
func CategoryFor(productType, symbol string) string {
	switch strings.ToLower(productType) {
	case "perp", "perpetual", "swap", "futures", "linear":
		if strings.HasSuffix(CompactSymbol(symbol), "USD") {
			return venue.CategoryInverse
		}
		return venue.CategoryLinear
	case "inverse":
		return venue.CategoryInverse
	default:
		return venue.CategorySpot
	}
}

// IsPerp reports whether a product type names a derivative instrument, which
// controls the -PERP suffix and reduce-only eligibility.
func IsPerp(productType string) bool {
	switch strings.ToLower(productType) {
	case "perp", "perpetual", "swap", "futures", "linear", "inverse":
		return true
	default:
		return false
	}
}
