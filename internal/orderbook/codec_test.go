package orderbook

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didac-crst/mockexchange-api/internal/apperr"
	"github.com/didac-crst/mockexchange-api/internal/domain"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Nanosecond)
	o := &domain.Order{
		OID:            "abc123",
		Symbol:         "BTC/USDT",
		Side:           domain.Buy,
		Type:           domain.Limit,
		Amount:         decimal.NewFromFloat(1.5),
		LimitPrice:     decimal.NewFromInt(50000),
		TsCreate:       now,
		CommissionRate: decimal.NewFromFloat(0.001),
		CashAsset:      "USDT",
		Reserved:       decimal.NewFromFloat(75.075),
		ReservedAsset:  "USDT",
		Status:         domain.StatusPartiallyFilled,
		Filled:         decimal.NewFromFloat(0.5),
		Notional:       decimal.NewFromInt(25000),
		Fee:            decimal.NewFromFloat(25),
		AvgPrice:       decimal.NewFromInt(50000),
		TsUpdate:       now,
	}

	fields := serialize(o)
	got, err := deserialize(fields)
	require.NoError(t, err)

	assert.Equal(t, o.OID, got.OID)
	assert.Equal(t, o.Symbol, got.Symbol)
	assert.Equal(t, o.Side, got.Side)
	assert.Equal(t, o.Type, got.Type)
	assert.True(t, o.Amount.Equal(got.Amount))
	assert.True(t, o.LimitPrice.Equal(got.LimitPrice))
	assert.True(t, o.TsCreate.Equal(got.TsCreate))
	assert.True(t, o.Reserved.Equal(got.Reserved))
	assert.Equal(t, o.Status, got.Status)
	assert.True(t, o.Filled.Equal(got.Filled))
	assert.True(t, got.TsFinal.IsZero())
}

func TestSerializeOmitsLimitPriceForMarketOrders(t *testing.T) {
	o := &domain.Order{Type: domain.Market, LimitPrice: decimal.Zero, Amount: decimal.NewFromInt(1),
		CommissionRate: decimal.Zero, Reserved: decimal.Zero, TsCreate: time.Now(), TsUpdate: time.Now()}
	fields := serialize(o)
	_, present := fields["limit_price"]
	assert.False(t, present)
}

func TestSerializeIncludesTsFinalAndCancelReasonWhenSet(t *testing.T) {
	now := time.Now().UTC()
	o := &domain.Order{
		Amount: decimal.NewFromInt(1), CommissionRate: decimal.Zero, Reserved: decimal.Zero,
		TsCreate: now, TsUpdate: now, TsFinal: now, CancelReason: "user_cancel",
	}
	fields := serialize(o)
	assert.NotEmpty(t, fields["ts_final"])
	assert.Equal(t, "user_cancel", fields["cancel_reason"])

	got, err := deserialize(fields)
	require.NoError(t, err)
	assert.Equal(t, "user_cancel", got.CancelReason)
	assert.True(t, got.TsFinal.Equal(now))
}

func TestDeserializeCorruptNumericFieldIsFatal(t *testing.T) {
	fields := map[string]string{
		"oid": "x", "amount": "not-a-number", "commission_rate": "0", "reserved": "0",
		"ts_create": "1", "ts_update": "1",
	}
	_, err := deserialize(fields)
	require.Error(t, err)
	assert.Equal(t, apperr.Fatal, apperr.KindOf(err))
}

func TestDeserializeMissingRequiredFieldIsFatal(t *testing.T) {
	fields := map[string]string{"oid": "x"}
	_, err := deserialize(fields)
	require.Error(t, err)
	assert.Equal(t, apperr.Fatal, apperr.KindOf(err))
}
