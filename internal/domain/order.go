package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// Status is the order state-machine tag (spec.md §3).
type Status string

const (
	StatusNew                Status = "new"
	StatusPartiallyFilled    Status = "partially_filled"
	StatusFilled             Status = "filled"
	StatusPartiallyCanceled  Status = "partially_canceled"
	StatusCanceled           Status = "canceled"
	StatusExpired            Status = "expired"
	StatusRejected           Status = "rejected"
)

// Open reports whether s is one of the OPEN statuses {new, partially_filled}.
func (s Status) Open() bool {
	return s == StatusNew || s == StatusPartiallyFilled
}

// Terminal reports whether s is one of the terminal statuses.
func (s Status) Terminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusPartiallyCanceled, StatusExpired, StatusRejected:
		return true
	default:
		return false
	}
}

// transitions enumerates the legal edges of the state machine in spec.md §3.
// A transition not listed here is illegal and must be rejected loudly.
var transitions = map[Status]map[Status]bool{
	StatusNew: {
		StatusFilled:            true,
		StatusPartiallyCanceled: true,
		StatusPartiallyFilled:   true,
		StatusCanceled:          true,
		StatusExpired:           true,
		StatusRejected:          true,
	},
	StatusPartiallyFilled: {
		StatusFilled:            true,
		StatusPartiallyCanceled: true,
		StatusCanceled:          true,
		StatusExpired:           true,
	},
}

// CanTransition reports whether from -> to is a legal edge of the order
// state machine. The zero status ("" meaning "being created") may only
// become StatusNew.
func CanTransition(from, to Status) bool {
	if from == "" {
		return to == StatusNew
	}
	edges, ok := transitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// Order is the full order record (spec.md §3). Immutable-on-creation
// fields are set once by the Engine at intake; mutable fields are only
// ever changed through Orderbook.Update's conditional transition.
type Order struct {
	OID            string          `json:"oid"`
	Symbol         string          `json:"symbol"`
	Side           Side            `json:"side"`
	Type           OrderType       `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	LimitPrice     decimal.Decimal `json:"limit_price,omitempty"`
	TsCreate       time.Time       `json:"ts_create"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	CashAsset      string          `json:"cash_asset"`

	// Reserved is the amount held in the portfolio's `used` bucket for
	// this order at placement time, in the asset named by ReservedAsset.
	// It shrinks as the order is released/settled and must reach zero by
	// the time the order goes terminal.
	Reserved      decimal.Decimal `json:"reserved"`
	ReservedAsset string          `json:"reserved_asset"`

	Status       Status          `json:"status"`
	Filled       decimal.Decimal `json:"filled"`
	Notional     decimal.Decimal `json:"notional"`
	Fee          decimal.Decimal `json:"fee"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	TsUpdate     time.Time       `json:"ts_update"`
	TsFinal      time.Time       `json:"ts_final,omitempty"`
	CancelReason string          `json:"cancel_reason,omitempty"`
}

// Remaining returns amount - filled, floored at zero.
func (o *Order) Remaining() decimal.Decimal {
	rem := o.Amount.Sub(o.Filled)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}
