package httpapi

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didac-crst/mockexchange-api/internal/apperr"
	"github.com/didac-crst/mockexchange-api/internal/domain"
)

func TestPlaceOrderRequestParseValidMarketOrder(t *testing.T) {
	r := placeOrderRequest{Symbol: "BTC/USDT", Side: "buy", Type: "market", Amount: "1.5"}
	side, typ, amount, limitPrice, err := r.parse()
	require.NoError(t, err)
	assert.Equal(t, domain.Buy, side)
	assert.Equal(t, domain.Market, typ)
	assert.True(t, amount.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, limitPrice.IsZero())
}

func TestPlaceOrderRequestParseLimitOrderWithPrice(t *testing.T) {
	r := placeOrderRequest{Symbol: "BTC/USDT", Side: "sell", Type: "limit", Amount: "1", LimitPrice: "50000"}
	_, _, _, limitPrice, err := r.parse()
	require.NoError(t, err)
	assert.True(t, limitPrice.Equal(decimal.NewFromInt(50000)))
}

func TestPlaceOrderRequestParseRejectsMalformedAmount(t *testing.T) {
	r := placeOrderRequest{Symbol: "BTC/USDT", Side: "buy", Type: "market", Amount: "abc"}
	_, _, _, _, err := r.parse()
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
}

func TestPlaceOrderRequestParseRejectsMalformedLimitPrice(t *testing.T) {
	r := placeOrderRequest{Symbol: "BTC/USDT", Side: "buy", Type: "limit", Amount: "1", LimitPrice: "abc"}
	_, _, _, _, err := r.parse()
	require.Error(t, err)
}

func TestParseIntQueryParsesPositiveAndNegative(t *testing.T) {
	n, err := parseIntQuery("42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = parseIntQuery("-7")
	require.NoError(t, err)
	assert.Equal(t, -7, n)
}

func TestParseIntQueryRejectsNonDigits(t *testing.T) {
	_, err := parseIntQuery("12x")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
}

func TestParseIntQueryEmptyStringYieldsZero(t *testing.T) {
	n, err := parseIntQuery("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWriteErrorMapsApperrKindsToHTTPStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.UnknownSymbol, 404},
		{apperr.NotFound, 404},
		{apperr.InvalidArgument, 400},
		{apperr.InsufficientFunds, 409},
		{apperr.Conflict, 409},
		{apperr.StaleTicker, 503},
		{apperr.Transient, 502},
		{apperr.IllegalTransition, 500},
		{apperr.Fatal, 500},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeError(c, apperr.New("op", tc.kind, errors.New("boom")))
		assert.Equal(t, tc.want, w.Code, "kind %s", tc.kind)
	}
}

func TestWriteErrorFallsBackTo500ForNonApperr(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeError(c, errors.New("unexpected"))
	assert.Equal(t, 500, w.Code)
}
