// Package users provides the PostgreSQL-backed repository for user records.
package users

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

const userColumns = `id, username, COALESCE(google_id, ''), email, COALESCE(password, ''),
		       name, role, COALESCE(avatar, ''), is_verified, created_at`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user and returns it with the generated id and
// creation timestamp filled in. Empty GoogleID/Password/Avatar are stored
// as NULL so the partial unique index on google_id holds.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, google_id, email, password, name, role, avatar, is_verified)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9)
		RETURNING created_at
	`
	user.ID = uuid.NewString()
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.GoogleID, user.Email, user.Password,
		user.Name, user.Role, user.Avatar, user.IsVerified).Scan(&user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByGoogleIDOrEmail(ctx context.Context, googleID, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE google_id = $1 OR email = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, googleID, email))
}

// SetVerified flips is_verified to true. The transition is one-way; nothing
// ever resets it.
func (r *PostgresRepository) SetVerified(ctx context.Context, id string) error {
	query := `UPDATE users SET is_verified = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.GoogleID, &user.Email, &user.Password,
		&user.Name, &user.Role, &user.Avatar, &user.IsVerified, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
