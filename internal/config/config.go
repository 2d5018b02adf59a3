package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerPort  string
	Env         string
	LogLevel    string
	DatabaseURL string
	RedisURL    string // optional, enables presence cache + cross-instance fan-out

	CORSAllowedOrigins []string

	WSSendQueue       int
	WSWriteTimeout    time.Duration
	WSMaxMessageBytes int64

	PresenceTTL     time.Duration
	LogHistoryLimit int
}

func LoadConfig() (*Config, error) {
	writeTimeout, err := time.ParseDuration(getEnv("WS_WRITE_TIMEOUT", "10s"))
	if err != nil {
		return nil, errors.New("invalid WS_WRITE_TIMEOUT format")
	}
	presenceTTL, err := time.ParseDuration(getEnv("PRESENCE_TTL", "60s"))
	if err != nil {
		return nil, errors.New("invalid PRESENCE_TTL format")
	}
	sendQueue, err := getEnvInt("WS_SEND_QUEUE", 256)
	if err != nil {
		return nil, err
	}
	maxMessage, err := getEnvInt("WS_MAX_MESSAGE_BYTES", 4<<20)
	if err != nil {
		return nil, err
	}
	historyLimit, err := getEnvInt("LOG_HISTORY_LIMIT", 100)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		Env:                getEnv("APP_ENV", "dev"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		WSSendQueue:        sendQueue,
		WSWriteTimeout:     writeTimeout,
		WSMaxMessageBytes:  int64(maxMessage),
		PresenceTTL:        presenceTTL,
		LogHistoryLimit:    historyLimit,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses a positive int env var with a fallback
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
