package models

import "time"

// Presence is the cached, TTL-bound view of a device's liveness.
type Presence struct {
	DeviceID string       `json:"deviceId"`
	AppID    string       `json:"appId"`
	Status   DeviceStatus `json:"status"`
	LastSeen time.Time    `json:"lastSeen"`
}
