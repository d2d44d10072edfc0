package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentAddress(t *testing.T) {
	a1, err := ContentAddress([]byte("all_badges_classes"))
	require.NoError(t, err)

	a2, err := ContentAddress([]byte("all_badges_classes"))
	require.NoError(t, err)
	assert.Equal(t, a1, a2, "same bytes must give the same address")

	other, err := ContentAddress([]byte("all_badge_classes"))
	require.NoError(t, err)
	assert.NotEqual(t, a1, other)

	assert.True(t, IsContentAddress(a1))
	assert.False(t, IsContentAddress("0X04ABCD"))
}

func TestVerifyContentAddress(t *testing.T) {
	data := []byte("badge class")
	addr, err := ContentAddress(data)
	require.NoError(t, err)

	require.NoError(t, VerifyContentAddress(addr, data))
	assert.ErrorIs(t, VerifyContentAddress(addr, []byte("tampered")), ErrCIDMismatch)
	assert.Error(t, VerifyContentAddress("not-a-cid", data))
}
