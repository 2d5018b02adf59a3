package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type LogEntry struct {
	ID        uuid.UUID `json:"id"`
	DeviceID  string    `json:"deviceId"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Tag       string    `json:"tag"`
	Timestamp string    `json:"timestamp"` // client-supplied, stored verbatim
	IsAnomaly bool      `json:"isAnomaly"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsAnomalous reports whether a log line looks like an error condition.
// Case-sensitive on purpose: "exception" in prose is not flagged.
func IsAnomalous(level, message string) bool {
	return level == "error" || strings.Contains(message, "Exception")
}

// NewLogEntry builds an entry with its anomaly flag fixed at creation.
func NewLogEntry(deviceID, level, message, tag, timestamp string, now time.Time) *LogEntry {
	return &LogEntry{
		ID:        uuid.New(),
		DeviceID:  deviceID,
		Level:     level,
		Message:   message,
		Tag:       tag,
		Timestamp: timestamp,
		IsAnomaly: IsAnomalous(level, message),
		CreatedAt: now,
	}
}
