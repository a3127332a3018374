// Package sessions provides the PostgreSQL-backed repository for the
// refresh-token session ledger. Rows are append-only: login inserts, logout
// and rotation delete.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, refresh_token, expires_at, ip_address, user_agent, device_info)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
	`
	session.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.RefreshToken, session.ExpiresAt,
		session.IPAddress, session.UserAgent, session.DeviceInfo)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT id, user_id, refresh_token, expires_at,
		       COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(device_info, ''), created_at
		FROM sessions
		WHERE refresh_token = $1
	`
	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&s.ID, &s.UserID, &s.RefreshToken, &s.ExpiresAt,
		&s.IPAddress, &s.UserAgent, &s.DeviceInfo, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) DeleteByToken(ctx context.Context, token string) error {
	query := `DELETE FROM sessions WHERE refresh_token = $1`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	query := `DELETE FROM sessions WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Session, error) {
	query := `
		SELECT id, user_id, refresh_token, expires_at,
		       COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(device_info, ''), created_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var list []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.RefreshToken, &s.ExpiresAt,
			&s.IPAddress, &s.UserAgent, &s.DeviceInfo, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return list, nil
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM sessions WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}
