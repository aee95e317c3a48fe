package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeSortedRemovesDuplicatesAndSorts(t *testing.T) {
	got := dedupeSorted([]string{"USDT", "BTC", "USDT", "ETH", "BTC"})
	assert.Equal(t, []string{"BTC", "ETH", "USDT"}, got)
}

func TestDedupeSortedEmptyInput(t *testing.T) {
	assert.Empty(t, dedupeSorted(nil))
}

func TestDedupeSortedSingleAsset(t *testing.T) {
	assert.Equal(t, []string{"BTC"}, dedupeSorted([]string{"BTC"}))
}
