package otps

import (
	"context"
	"time"

	"github.com/gieogita/portal-auth/internal/models"
)

type Repository interface {
	// FindActive returns the user's unexpired OTP, or common.ErrNotFound.
	FindActive(ctx context.Context, userID string) (*models.OTP, error)
	// Upsert writes a fresh code for the user, replacing any previous row.
	Upsert(ctx context.Context, userID, code string, ttl time.Duration) error
	// Latest returns the most recently created OTP row for the user
	// regardless of expiry, or common.ErrNotFound.
	Latest(ctx context.Context, userID string) (*models.OTP, error)
	MarkUsed(ctx context.Context, id string) error
}
