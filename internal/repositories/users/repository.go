package users

import (
	"context"

	"github.com/gieogita/portal-auth/internal/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByGoogleIDOrEmail resolves a federated login against either the
	// stored Google subject or the email address.
	GetByGoogleIDOrEmail(ctx context.Context, googleID, email string) (*models.User, error)
	SetVerified(ctx context.Context, id string) error
}
