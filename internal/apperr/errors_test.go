package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/didac-crst/mockexchange-api/internal/apperr"
)

func TestErrorMessage(t *testing.T) {
	withCause := apperr.New("engine.Place", apperr.InvalidArgument, fmt.Errorf("amount must be > 0"))
	assert.Equal(t, "engine.Place: amount must be > 0", withCause.Error())

	bare := apperr.New("engine.Cancel", apperr.IllegalTransition, nil)
	assert.Equal(t, "engine.Cancel: illegal_transition", bare.Error())
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := apperr.New("store.Get", apperr.Transient, cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsMatchesByKindNotByOpOrCause(t *testing.T) {
	a := apperr.New("engine.Place", apperr.NotFound, fmt.Errorf("one"))
	b := apperr.New("engine.Cancel", apperr.NotFound, fmt.Errorf("two"))
	c := apperr.New("engine.Cancel", apperr.Conflict, fmt.Errorf("two"))

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestIsRetriable(t *testing.T) {
	assert.True(t, apperr.IsRetriable(apperr.New("store.Get", apperr.Transient, nil)))
	assert.False(t, apperr.IsRetriable(apperr.New("store.Get", apperr.Fatal, nil)))
	assert.False(t, apperr.IsRetriable(fmt.Errorf("plain error")))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, apperr.InsufficientFunds, apperr.KindOf(apperr.New("portfolio.Reserve", apperr.InsufficientFunds, nil)))
	assert.Equal(t, apperr.Kind(""), apperr.KindOf(fmt.Errorf("plain error")))
}

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	inner := apperr.New("orderbook.Get", apperr.NotFound, nil)
	wrapped := fmt.Errorf("orderbook.List: %w", inner)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(wrapped))
}
