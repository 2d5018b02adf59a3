package models

import "time"

type DeviceStatus string

const (
	DeviceOnline  DeviceStatus = "online"
	DeviceOffline DeviceStatus = "offline"
)

type Device struct {
	ID           string        `json:"id"`
	AppID        string        `json:"appId"`
	Model        string        `json:"model"`
	OSVersion    string        `json:"osVersion"`
	UserName     string        `json:"userName"`
	BatteryLevel *int          `json:"batteryLevel,omitempty"`
	IP           *string       `json:"ip,omitempty"`
	Status       DeviceStatus  `json:"status"`
	Health       *DeviceHealth `json:"health,omitempty"`
	LastSeen     time.Time     `json:"lastSeen"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// DeviceHealth is stored as a JSONB column on devices.
type DeviceHealth struct {
	Score             int    `json:"score"`
	UXScore           int    `json:"uxScore"`
	PerformanceIndex  int    `json:"performanceIndex"`
	CrashFreeSessions int    `json:"crashFreeSessions"`
	ChurnRisk         string `json:"churnRisk"`
}

// DeviceUpdate is the payload of the device:update event.
type DeviceUpdate struct {
	ID     string       `json:"id"`
	Status DeviceStatus `json:"status"`
}
