package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecFromStringRejectsEmpty(t *testing.T) {
	_, err := decFromString("")
	assert.Error(t, err)
}

func TestDecFromStringParsesValue(t *testing.T) {
	d, err := decFromString("123.45")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromFloat(123.45)))
}

func TestDecOrZeroOnEmptyOrCorruptReturnsZero(t *testing.T) {
	assert.True(t, decOrZero("").IsZero())
	assert.True(t, decOrZero("not-a-number").IsZero())
}

func TestDecOrZeroParsesValue(t *testing.T) {
	assert.True(t, decOrZero("42").Equal(decimal.NewFromInt(42)))
}

func TestTsFromStringRejectsEmpty(t *testing.T) {
	_, err := tsFromString("")
	assert.Error(t, err)
}

func TestTsFromStringRoundTripsUnixSeconds(t *testing.T) {
	ts, err := tsFromString("1700000000.5")
	require.NoError(t, err)
	want := time.Unix(1700000000, 5e8).UTC()
	assert.WithinDuration(t, want, ts, time.Millisecond)
}

func TestTickerKeyUsesPrefix(t *testing.T) {
	assert.Equal(t, "sym_BTC/USDT", tickerKey("BTC/USDT"))
}
