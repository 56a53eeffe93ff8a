package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of a fill.
type TradeSide string

const (
	SideBuy  TradeSide = "Buy"
	SideSell TradeSide = "Sell"
)

// ParseTradeSide maps the backend's wire value ("BUY"/"SELL") to a TradeSide.
func ParseTradeSide(wire string) (TradeSide, error) {
	switch wire {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return "", &ValidationError{Field: "trade_type", Value: wire, Reason: "unknown trade side"}
	}
}

// TradeEvent is one fill reported by a bot.
type TradeEvent struct {
	BaseAsset  string
	QuoteAsset string
	Amount     decimal.Decimal
	Price      decimal.Decimal
	Timestamp  uint64
	Side       TradeSide
}

// Notional returns amount * price in quote asset units.
func (t TradeEvent) Notional() decimal.Decimal {
	return t.Amount.Mul(t.Price)
}

// Pair returns the BASE/QUOTE label of the trade.
func (t TradeEvent) Pair() string {
	return t.BaseAsset + "/" + t.QuoteAsset
}

// ValidationError reports a wire field whose value cannot be mapped to the
// internal model. It fails the decode of a single event only.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
