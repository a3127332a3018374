package sessions

import (
	"context"

	"github.com/gieogita/portal-auth/internal/models"
)

type Repository interface {
	Create(ctx context.Context, session *models.Session) error
	// FindByToken returns the session for the given refresh token string,
	// or common.ErrNotFound.
	FindByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID string) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Session, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}
