package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^sk_live_[0-9a-f]{24}$`), key)

	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestHashAndCheckAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)

	hashed, err := HashAPIKey(key)
	require.NoError(t, err)
	assert.NotEqual(t, key, hashed)

	assert.True(t, CheckAPIKey(hashed, key))
	assert.False(t, CheckAPIKey(hashed, key+"x"))
}

func TestHashAPIKey_RejectsForeignFormat(t *testing.T) {
	_, err := HashAPIKey("hunter2")
	assert.Error(t, err)
}

func TestIDsFromTime(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "app_1700000000123", NewAppID(now))
	assert.Equal(t, "crash_1700000000123", NewCrashID(now))
}
