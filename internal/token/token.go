// Package token implements the token issuer: minting and verification of the
// two JWT classes (access, refresh). The classes use distinct HMAC secrets and
// distinct lifetimes, so neither can be forged from the other's secret.
// Minting a refresh token also appends one row to the session ledger.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gieogita/portal-auth/internal/common"
	"github.com/gieogita/portal-auth/internal/config"
	"github.com/gieogita/portal-auth/internal/dbx"
	"github.com/gieogita/portal-auth/internal/models"
	"github.com/gieogita/portal-auth/internal/repositories/sessions"
)

// Claims carries the principal claims embedded in an access token. Refresh
// tokens carry only the registered Subject.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Name   string `json:"name,omitempty"`
}

// RequestMeta is the best-effort request metadata recorded with a session.
// Empty fields are stored as NULL; absence never blocks issuance.
type RequestMeta struct {
	IPAddress  string
	UserAgent  string
	DeviceInfo string
}

// SessionVendor returns a session repository bound to the given DBTX. It is
// satisfied by repomanager.RepositoryManager.
type SessionVendor interface {
	Sessions(db dbx.DBTX) sessions.Repository
}

// Issuer signs and verifies tokens. Secrets and TTLs come from configuration,
// loaded once at startup and immutable afterwards.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	vendor        SessionVendor
}

func NewIssuer(cfg *config.Config, vendor SessionVendor) *Issuer {
	return &Issuer{
		accessSecret:  []byte(cfg.Auth.AccessSecret),
		refreshSecret: []byte(cfg.Auth.RefreshSecret),
		accessTTL:     cfg.Auth.AccessTokenTTL,
		refreshTTL:    cfg.Auth.RefreshTokenTTL,
		vendor:        vendor,
	}
}

// CreateAccessToken mints a short-lived token carrying the full principal
// claims. No side effects.
func (i *Issuer) CreateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Name:   user.Name,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.accessSecret)
}

// CreateRefreshToken mints a long-lived token carrying only the subject id and
// appends one session row whose expires_at matches the embedded expiry claim.
func (i *Issuer) CreateRefreshToken(ctx context.Context, db dbx.DBTX, userID string, meta RequestMeta) (string, error) {
	now := time.Now()
	expiresAt := now.Add(i.refreshTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", err
	}

	session := &models.Session{
		UserID:       userID,
		RefreshToken: signed,
		ExpiresAt:    expiresAt,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		DeviceInfo:   meta.DeviceInfo,
	}
	if err := i.vendor.Sessions(db).Create(ctx, session); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken checks signature and expiry against the access secret.
// All failures collapse to common.ErrUnauthenticated so callers react
// uniformly to malformed, forged and expired tokens.
func (i *Issuer) VerifyAccessToken(tokenString string) (*Claims, error) {
	return verify(tokenString, i.accessSecret)
}

// VerifyRefreshToken is the refresh-class counterpart of VerifyAccessToken.
func (i *Issuer) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return verify(tokenString, i.refreshSecret)
}

func verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, common.ErrUnauthenticated
	}
	return claims, nil
}
