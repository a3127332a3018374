// Package otps provides the PostgreSQL-backed repository for one-time email
// verification codes. The table carries a unique constraint on user_id, so
// reissuing a code is an upsert rather than check-then-insert.
package otps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gieogita/portal-auth/internal/common"
	"github.com/gieogita/portal-auth/internal/dbx"
	"github.com/gieogita/portal-auth/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindActive(ctx context.Context, userID string) (*models.OTP, error) {
	query := `
		SELECT id, user_id, otp_code, expires_at, is_used, created_at
		FROM otps
		WHERE user_id = $1 AND expires_at > now()
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID))
}

// Upsert inserts a code with expiry now+ttl, or overwrites the user's existing
// row. The unique constraint makes two concurrent requests converge on a
// single row instead of racing on check-then-insert.
func (r *PostgresRepository) Upsert(ctx context.Context, userID, code string, ttl time.Duration) error {
	query := `
		INSERT INTO otps (id, user_id, otp_code, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, $4, FALSE, now())
		ON CONFLICT (user_id) DO UPDATE
		SET otp_code = EXCLUDED.otp_code, expires_at = EXCLUDED.expires_at,
		    is_used = FALSE, created_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, code, time.Now().Add(ttl)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Latest(ctx context.Context, userID string) (*models.OTP, error) {
	query := `
		SELECT id, user_id, otp_code, expires_at, is_used, created_at
		FROM otps
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id string) error {
	query := `UPDATE otps SET is_used = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.OTP, error) {
	otp := &models.OTP{}
	err := row.Scan(&otp.ID, &otp.UserID, &otp.Code, &otp.ExpiresAt, &otp.IsUsed, &otp.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return otp, nil
}
