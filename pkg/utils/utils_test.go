package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPassword("secret123", hash))
	assert.False(t, CheckPassword("secret124", hash))
	assert.False(t, CheckPassword("secret123", ""))

	_, err = HashPassword(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(24)
	require.NoError(t, err)
	b, err := RandomToken(24)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestTokensEqual(t *testing.T) {
	assert.True(t, TokensEqual("WS-123", "WS-123"))
	assert.False(t, TokensEqual("WS-123", "WS-124"))
	assert.False(t, TokensEqual("WS-123", "ws-123"))
	assert.False(t, TokensEqual("WS-123", ""))
}

func TestMinInt(t *testing.T) {
	zero, five := 0, 5
	assert.Error(t, MinInt(1).Validate(0))
	assert.Error(t, MinInt(1).Validate(&zero))
	assert.NoError(t, MinInt(1).Validate(&five))
	assert.NoError(t, MinInt(1).Validate((*int)(nil)))
	assert.NoError(t, MinInt(0).Validate(0))
}

func TestNotBlank(t *testing.T) {
	blank, title := "  ", "Go"
	assert.Error(t, NotBlank.Validate(&blank))
	assert.NoError(t, NotBlank.Validate(&title))
	assert.NoError(t, NotBlank.Validate((*string)(nil)))
}
