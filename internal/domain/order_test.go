package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/didac-crst/mockexchange-api/internal/domain"
)

func TestCanTransitionFromZeroStatus(t *testing.T) {
	assert.True(t, domain.CanTransition("", domain.StatusNew))
	assert.False(t, domain.CanTransition("", domain.StatusFilled))
}

func TestCanTransitionFromNew(t *testing.T) {
	allowed := []domain.Status{
		domain.StatusFilled,
		domain.StatusPartiallyFilled,
		domain.StatusPartiallyCanceled,
		domain.StatusCanceled,
		domain.StatusExpired,
		domain.StatusRejected,
	}
	for _, to := range allowed {
		assert.True(t, domain.CanTransition(domain.StatusNew, to), "new -> %s should be legal", to)
	}
	assert.False(t, domain.CanTransition(domain.StatusNew, domain.StatusNew))
}

func TestCanTransitionFromPartiallyFilled(t *testing.T) {
	assert.True(t, domain.CanTransition(domain.StatusPartiallyFilled, domain.StatusFilled))
	assert.True(t, domain.CanTransition(domain.StatusPartiallyFilled, domain.StatusPartiallyCanceled))
	assert.False(t, domain.CanTransition(domain.StatusPartiallyFilled, domain.StatusRejected),
		"a partially filled order already escaped rejection eligibility")
}

func TestCanTransitionFromTerminalIsAlwaysIllegal(t *testing.T) {
	terminal := []domain.Status{
		domain.StatusFilled, domain.StatusCanceled, domain.StatusPartiallyCanceled,
		domain.StatusExpired, domain.StatusRejected,
	}
	for _, from := range terminal {
		assert.False(t, domain.CanTransition(from, domain.StatusCanceled), "%s has no outgoing edges", from)
	}
}

func TestStatusOpenAndTerminal(t *testing.T) {
	assert.True(t, domain.StatusNew.Open())
	assert.True(t, domain.StatusPartiallyFilled.Open())
	assert.False(t, domain.StatusFilled.Open())

	assert.True(t, domain.StatusFilled.Terminal())
	assert.True(t, domain.StatusRejected.Terminal())
	assert.False(t, domain.StatusNew.Terminal())
}

func TestOrderRemaining(t *testing.T) {
	o := &domain.Order{Amount: decimal.NewFromInt(10), Filled: decimal.NewFromInt(3)}
	assert.True(t, o.Remaining().Equal(decimal.NewFromInt(7)))

	overfilled := &domain.Order{Amount: decimal.NewFromInt(5), Filled: decimal.NewFromInt(9)}
	assert.True(t, overfilled.Remaining().IsZero(), "remaining floors at zero, never goes negative")
}

func TestSplitSymbol(t *testing.T) {
	base, quote, ok := domain.SplitSymbol("BTC/USDT")
	assert.True(t, ok)
	assert.Equal(t, "BTC", base)
	assert.Equal(t, "USDT", quote)

	_, _, ok = domain.SplitSymbol("BTCUSDT")
	assert.False(t, ok)
}
