package models

import "time"

// Session records one refresh-token grant together with the request metadata
// captured at issuance. Rows are append-only: a login always inserts, logout
// and refresh rotation delete, nothing updates.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	DeviceInfo   string    `json:"device_info,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
