package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost   = 12
	APIKeyPrefix = "sk_live_"
	apiKeyBytes  = 12 // 24 hex characters
)

// NewAppID returns an app id derived from the creation instant.
func NewAppID(now time.Time) string {
	return fmt.Sprintf("app_%d", now.UnixMilli())
}

// NewCrashID returns a crash report id derived from the creation instant.
func NewCrashID(now time.Time) string {
	return fmt.Sprintf("crash_%d", now.UnixMilli())
}

// GenerateAPIKey returns a fresh secret in the sk_live_<24 hex> form.
func GenerateAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return APIKeyPrefix + hex.EncodeToString(b), nil
}

func HashAPIKey(key string) (string, error) {
	if !strings.HasPrefix(key, APIKeyPrefix) {
		return "", fmt.Errorf("api key must start with %q", APIKeyPrefix)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckAPIKey(hashedKey string, key string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedKey), []byte(key))
	return err == nil
}
