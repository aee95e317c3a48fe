package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker mirrors the external feeder's hash (sym_<SYMBOL>, spec.md §6).
// The engine never writes these fields; they are read-only here.
type Ticker struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	BidVolume decimal.Decimal `json:"bidVolume"`
	AskVolume decimal.Decimal `json:"askVolume"`
}

// Age returns how long ago the ticker was written, relative to now.
func (t Ticker) Age(now time.Time) time.Duration {
	return now.Sub(t.Timestamp)
}

// SplitSymbol splits "BTC/USDT" into base="BTC", quote="USDT".
func SplitSymbol(symbol string) (base, quote string, ok bool) {
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == '/' {
			return symbol[:i], symbol[i+1:], true
		}
	}
	return "", "", false
}
