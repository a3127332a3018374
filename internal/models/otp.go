package models

import "time"

// OTP is a one-time email verification code. At most one row exists per user
// (unique constraint on user_id); reissuing overwrites the row.
type OTP struct {
	ID        string
	UserID    string
	Code      string
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}

// Expired reports whether the code is past its expiry at the given instant.
func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
