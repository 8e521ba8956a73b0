package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDigits(t *testing.T) {
	for _, n := range []int{6, 8} {
		s, err := RandomDigits(n)
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^\d+$`), s)
		assert.Len(t, s, n)
	}
}

func TestNewReference(t *testing.T) {
	a, b := NewReference("order"), NewReference("order")
	assert.Regexp(t, `^order_[0-9a-f]{16}$`, a)
	assert.NotEqual(t, a, b)
}
