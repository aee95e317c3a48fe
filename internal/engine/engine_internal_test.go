package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/didac-crst/mockexchange-api/internal/config"
	"github.com/didac-crst/mockexchange-api/internal/domain"
	"github.com/didac-crst/mockexchange-api/internal/logging"
)

// newTestEngine builds an Engine whose market/portfolio/orderbook/store
// fields are left nil: only valid for exercising pure helpers
// (computeReservation, validateIntake, tickerStale) that never touch them.
func newTestEngine(t *testing.T, cfg config.Config, now time.Time) *Engine {
	t.Helper()
	return New(nil, nil, nil, nil, cfg, logging.NewNop(), WithClock(func() time.Time { return now }))
}

func TestComputeReservationBuyIncludesCommission(t *testing.T) {
	cfg := config.Default()
	cfg.CommissionRate = decimal.NewFromFloat(0.001)
	e := newTestEngine(t, cfg, time.Now())

	res := e.computeReservation(domain.Buy, domain.Market, decimal.NewFromInt(2), decimal.Zero, "BTC", "USDT", decimal.NewFromInt(100))
	assert.Equal(t, "USDT", res.asset)
	// 2 * 100 * 1.001 = 200.2
	assert.True(t, res.amount.Equal(decimal.NewFromFloat(200.2)), "got %s", res.amount)
}

func TestComputeReservationSellReservesBaseAsset(t *testing.T) {
	e := newTestEngine(t, config.Default(), time.Now())
	res := e.computeReservation(domain.Sell, domain.Market, decimal.NewFromInt(3), decimal.Zero, "BTC", "USDT", decimal.NewFromInt(100))
	assert.Equal(t, "BTC", res.asset)
	assert.True(t, res.amount.Equal(decimal.NewFromInt(3)))
}

func TestComputeReservationLimitUsesLimitPriceNotLastPrice(t *testing.T) {
	e := newTestEngine(t, config.Default(), time.Now())
	res := e.computeReservation(domain.Buy, domain.Limit, decimal.NewFromInt(1), decimal.NewFromInt(90), "BTC", "USDT", decimal.NewFromInt(100))
	assert.True(t, res.effectivePrice.Equal(decimal.NewFromInt(90)))
}

func TestValidateIntakeRejectsNonPositiveAmount(t *testing.T) {
	e := newTestEngine(t, config.Default(), time.Now())
	_, _, err := e.validateIntake("BTC/USDT", domain.Market, decimal.Zero, decimal.Zero)
	assert.Error(t, err)
}

func TestValidateIntakeRejectsLimitWithoutPrice(t *testing.T) {
	e := newTestEngine(t, config.Default(), time.Now())
	_, _, err := e.validateIntake("BTC/USDT", domain.Limit, decimal.NewFromInt(1), decimal.Zero)
	assert.Error(t, err)
}

func TestValidateIntakeRejectsMalformedSymbol(t *testing.T) {
	e := newTestEngine(t, config.Default(), time.Now())
	_, _, err := e.validateIntake("BTCUSDT", domain.Market, decimal.NewFromInt(1), decimal.Zero)
	assert.Error(t, err)
}

func TestValidateIntakeSplitsSymbol(t *testing.T) {
	e := newTestEngine(t, config.Default(), time.Now())
	base, quote, err := e.validateIntake("ETH/USDT", domain.Market, decimal.NewFromInt(1), decimal.Zero)
	assert.NoError(t, err)
	assert.Equal(t, "ETH", base)
	assert.Equal(t, "USDT", quote)
}

func TestTickerStaleDisabledByDefault(t *testing.T) {
	cfg := config.Default() // StaleTickerMaxAge is 0 (disabled) by default
	now := time.Now()
	e := newTestEngine(t, cfg, now)

	old := domain.Ticker{Timestamp: now.Add(-48 * time.Hour)}
	assert.False(t, e.tickerStale(old), "staleness check is off unless configured")
}

func TestTickerStaleHonorsConfiguredMaxAge(t *testing.T) {
	cfg := config.Default()
	cfg.StaleTickerMaxAge = time.Minute
	now := time.Now()
	e := newTestEngine(t, cfg, now)

	fresh := domain.Ticker{Timestamp: now.Add(-10 * time.Second)}
	stale := domain.Ticker{Timestamp: now.Add(-10 * time.Minute)}
	assert.False(t, e.tickerStale(fresh))
	assert.True(t, e.tickerStale(stale))
}

func TestUpdateConfigIsVisibleToSubsequentReads(t *testing.T) {
	e := newTestEngine(t, config.Default(), time.Now())
	updated := config.Default()
	updated.CommissionRate = decimal.NewFromFloat(0.5)
	e.UpdateConfig(updated)
	assert.True(t, e.cfg().CommissionRate.Equal(decimal.NewFromFloat(0.5)))
}
