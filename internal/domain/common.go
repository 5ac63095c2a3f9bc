package domain

import "strings"

// OrderSide represents the side of a trade (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// ParseOrderSide normalizes a side string from an export ("buy", "Sell", ...).
// Unknown values are returned upper-cased so they still filter consistently.
func ParseOrderSide(s string) OrderSide {
	return OrderSide(strings.ToUpper(strings.TrimSpace(s)))
}
