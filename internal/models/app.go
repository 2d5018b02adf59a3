package models

import "time"

type App struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	Platform    string    `json:"platform"`
	Description string    `json:"description"`
	APIKey      string    `json:"apiKey,omitempty"` // only populated on create
	APIKeyHash  string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}
