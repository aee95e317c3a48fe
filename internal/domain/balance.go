package domain

import "github.com/shopspring/decimal"

// Balance is one asset's row in the Portfolio (spec.md §3). Free and Used
// are both held non-negative by the Portfolio's operations; Total is
// computed, never stored.
type Balance struct {
	Asset string          `json:"asset"`
	Free  decimal.Decimal `json:"free"`
	Used  decimal.Decimal `json:"used"`
}

// Total returns free+used.
func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Used)
}
