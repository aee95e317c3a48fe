package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseBalanceDefaultsMissingFieldsToZero(t *testing.T) {
	b := parseBalance("BTC", map[string]string{})
	assert.Equal(t, "BTC", b.Asset)
	assert.True(t, b.Free.IsZero())
	assert.True(t, b.Used.IsZero())
}

func TestParseBalanceReadsFreeAndUsed(t *testing.T) {
	b := parseBalance("USDT", map[string]string{"free": "100.5", "used": "20"})
	assert.True(t, b.Free.Equal(decimal.NewFromFloat(100.5)))
	assert.True(t, b.Used.Equal(decimal.NewFromInt(20)))
}

func TestDecOrZeroOnCorruptValueReturnsZeroRatherThanError(t *testing.T) {
	assert.True(t, decOrZero("not-a-number").IsZero())
}
