package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXidTokenIsUniquePerCall(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		tok := xidToken()
		assert.False(t, seen[tok], "token %q collided", tok)
		seen[tok] = true
	}
}
