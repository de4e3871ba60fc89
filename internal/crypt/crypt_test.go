package crypt

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sha512CryptShape = regexp.MustCompile(`^\$6\$[a-zA-Z0-9]{16}\$[a-zA-Z0-9./]{86}$`)

func TestHashPasswordEmptyIsLocked(t *testing.T) {
	hash, err := HashPassword("")
	require.NoError(t, err)
	require.Equal(t, "!", hash)
}

func TestHashPasswordIsSalted(t *testing.T) {
	first, err := HashPassword("samevalue")
	require.NoError(t, err)
	second, err := HashPassword("samevalue")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	assert.Regexp(t, sha512CryptShape, first)
	assert.Regexp(t, sha512CryptShape, second)

	assert.True(t, VerifyPassword(first, "samevalue"))
	assert.True(t, VerifyPassword(second, "samevalue"))
	assert.False(t, VerifyPassword(first, "othervalue"))
}

func TestVerifyPasswordLocked(t *testing.T) {
	assert.False(t, VerifyPassword(LockedPassword, ""))
	assert.False(t, VerifyPassword(LockedPassword, "!"))
	assert.False(t, VerifyPassword("plaintext", "plaintext"))
}
