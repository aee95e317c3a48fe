package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/didac-crst/mockexchange-api/internal/domain"
)

func TestTickerAge(t *testing.T) {
	written := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ticker := domain.Ticker{Symbol: "BTC/USDT", Price: decimal.NewFromInt(50000), Timestamp: written}

	now := written.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, ticker.Age(now))
}

func TestBalanceTotal(t *testing.T) {
	b := domain.Balance{Asset: "USDT", Free: decimal.NewFromInt(100), Used: decimal.NewFromInt(25)}
	assert.True(t, b.Total().Equal(decimal.NewFromInt(125)))
}
