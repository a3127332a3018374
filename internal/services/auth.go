// Package services contains the business logic of the auth subsystem.
// AuthService is the only component that mutates user and OTP state in
// response to credential flows.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"database/sql"

	"golang.org/x/crypto/bcrypt"

	"github.com/gieogita/portal-auth/internal/common"
	"github.com/gieogita/portal-auth/internal/config"
	"github.com/gieogita/portal-auth/internal/dbx"
	"github.com/gieogita/portal-auth/internal/googleid"
	"github.com/gieogita/portal-auth/internal/logging"
	"github.com/gieogita/portal-auth/internal/mail"
	"github.com/gieogita/portal-auth/internal/models"
	"github.com/gieogita/portal-auth/internal/repositories/repomanager"
	"github.com/gieogita/portal-auth/internal/token"
)

const otpMailSubject = "GIEO Gita: Account Verification"

// TokenPair bundles a freshly minted access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is returned by the login flows: the public user projection plus
// both tokens. Transport (cookie and/or body) is the HTTP layer's concern.
type LoginResult struct {
	User         models.PublicUser
	AccessToken  string
	RefreshToken string
}

// SessionPage is one page of a user's session ledger.
type SessionPage struct {
	Sessions   []models.Session
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

type AuthService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	issuer *token.Issuer
	mailer mail.Mailer
	google googleid.Verifier
	log    logging.Logger

	otpTTL     time.Duration
	bcryptCost int
}

func NewAuthService(db *sql.DB, repos repomanager.RepositoryManager, issuer *token.Issuer,
	mailer mail.Mailer, google googleid.Verifier, log logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		db:         db,
		repos:      repos,
		issuer:     issuer,
		mailer:     mailer,
		google:     google,
		log:        log,
		otpTTL:     cfg.Auth.OTPTTL,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates an unverified user with a bcrypt-hashed password and a
// username derived from the email local part. No tokens are issued; the email
// must be proven first via the OTP flow.
func (s *AuthService) Register(ctx context.Context, name, email, password string) error {
	const op = "services.Register"

	if name == "" || email == "" || password == "" {
		return common.ErrValidation
	}

	_, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err == nil {
		return common.ErrConflict
	}
	if !errors.Is(err, common.ErrNotFound) {
		return s.internal(ctx, op, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return s.internal(ctx, op, err)
	}

	user := &models.User{
		Username: deriveUsername(email),
		Email:    email,
		Password: string(hash),
		Name:     name,
		Role:     models.RoleUser,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repos.Users(tx).Create(ctx, user)
		return err
	})
	if err != nil {
		return s.internal(ctx, op, err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return nil
}

// RequestOTP issues (or idempotently re-issues) the verification code for an
// unverified account and emails it. A delivery failure is surfaced but the
// code stays persisted, so a retry reuses it.
func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	const op = "services.RequestOTP"

	if email == "" {
		return common.ErrValidation
	}

	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return s.internal(ctx, op, err)
	}
	if user.IsVerified {
		return common.ErrAlreadyVerified
	}

	otpRepo := s.repos.OTPs(s.db)

	var code string
	active, err := otpRepo.FindActive(ctx, user.ID)
	switch {
	case err == nil:
		code = active.Code
	case errors.Is(err, common.ErrNotFound):
		code, err = generateOTPCode()
		if err != nil {
			return s.internal(ctx, op, err)
		}
		if err := otpRepo.Upsert(ctx, user.ID, code, s.otpTTL); err != nil {
			return s.internal(ctx, op, err)
		}
	default:
		return s.internal(ctx, op, err)
	}

	body := fmt.Sprintf(
		"<h1>Jai Shri Krishna %s!</h1><p>Your verification code is</p><h1><strong>%s</strong></h1><p>This code will expire in %d minutes.</p>",
		user.Name, code, int(s.otpTTL.Minutes()))
	if err := s.mailer.Send(ctx, email, otpMailSubject, body); err != nil {
		s.log.Error(ctx, "otp mail delivery failed", "op", op, "error", err)
		return common.ErrDelivery
	}
	return nil
}

// VerifyOTP checks the submitted code against the user's most recent OTP row
// and, on success, marks the code used and the user verified in one
// transaction. Verification is terminal; a second call conflicts.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) error {
	const op = "services.VerifyOTP"

	if email == "" || code == "" {
		return common.ErrValidation
	}

	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return s.internal(ctx, op, err)
	}
	if user.IsVerified {
		return common.ErrAlreadyVerified
	}

	otp, err := s.repos.OTPs(s.db).Latest(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return s.internal(ctx, op, err)
	}
	if otp.Expired(time.Now()) {
		return common.ErrOTPExpired
	}
	if otp.IsUsed || otp.Code != code {
		return common.ErrInvalidCredentials
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.OTPs(tx).MarkUsed(ctx, otp.ID); err != nil {
			return err
		}
		return s.repos.Users(tx).SetVerified(ctx, user.ID)
	})
	if err != nil {
		return s.internal(ctx, op, err)
	}

	s.log.Info(ctx, "user verified", "user_id", user.ID)
	return nil
}

// Login authenticates an email/password pair. Unknown email and wrong
// password are indistinguishable to the caller; the verification check runs
// strictly after the password check so it leaks nothing on bad credentials.
func (s *AuthService) Login(ctx context.Context, email, password string, meta token.RequestMeta) (*LoginResult, error) {
	const op = "services.Login"

	if email == "" || password == "" {
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.internal(ctx, op, err)
	}
	if user.Password == "" {
		// Google-only account.
		return nil, common.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, common.ErrUnverified
	}

	return s.issueTokens(ctx, op, user, meta)
}

// LoginWithGoogle verifies a Google ID token and logs the holder in, creating
// the account on first sight. A federated login implies proven email
// ownership, so the account is verified immediately and a pre-existing
// unverified account is healed.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string, meta token.RequestMeta) (*LoginResult, error) {
	const op = "services.LoginWithGoogle"

	if idToken == "" {
		return nil, common.ErrInvalidCredentials
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}

	userRepo := s.repos.Users(s.db)

	user, err := userRepo.GetByGoogleIDOrEmail(ctx, identity.Subject, identity.Email)
	switch {
	case errors.Is(err, common.ErrNotFound):
		user = &models.User{
			Username:   deriveUsername(identity.Email),
			GoogleID:   identity.Subject,
			Email:      identity.Email,
			Name:       identity.Name,
			Role:       models.RoleUser,
			Avatar:     identity.Picture,
			IsVerified: true,
		}
		if _, err := userRepo.Create(ctx, user); err != nil {
			return nil, s.internal(ctx, op, err)
		}
		s.log.Info(ctx, "user created via google login", "user_id", user.ID)
	case err != nil:
		return nil, s.internal(ctx, op, err)
	case !user.IsVerified:
		if err := userRepo.SetVerified(ctx, user.ID); err != nil {
			return nil, s.internal(ctx, op, err)
		}
		user.IsVerified = true
	}

	return s.issueTokens(ctx, op, user, meta)
}

// Refresh rotates a refresh token: the presented token must verify, its
// session row must exist and be unexpired, and both the deletion of the old
// row and the insertion of the new one happen in a single transaction.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta token.RequestMeta) (*TokenPair, error) {
	const op = "services.Refresh"

	claims, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, common.ErrUnauthenticated
	}

	session, err := s.repos.Sessions(s.db).FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, s.internal(ctx, op, err)
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, common.ErrUnauthenticated
	}

	user, err := s.repos.Users(s.db).GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, s.internal(ctx, op, err)
	}

	access, err := s.issuer.CreateAccessToken(user)
	if err != nil {
		return nil, s.internal(ctx, op, err)
	}

	var refresh string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Sessions(tx).DeleteByToken(ctx, refreshToken); err != nil {
			return err
		}
		refresh, err = s.issuer.CreateRefreshToken(ctx, tx, user.ID, meta)
		return err
	})
	if err != nil {
		return nil, s.internal(ctx, op, err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout revokes the presented refresh token by deleting its session row.
// Deleting an already-deleted token succeeds; the outcome is the same.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	const op = "services.Logout"

	if _, err := s.issuer.VerifyRefreshToken(refreshToken); err != nil {
		return common.ErrUnauthenticated
	}
	if err := s.repos.Sessions(s.db).DeleteByToken(ctx, refreshToken); err != nil {
		return s.internal(ctx, op, err)
	}
	return nil
}

// ListSessions returns one page of the user's session ledger, newest first.
func (s *AuthService) ListSessions(ctx context.Context, userID string, page, limit int) (*SessionPage, error) {
	const op = "services.ListSessions"

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	repo := s.repos.Sessions(s.db)
	list, err := repo.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, s.internal(ctx, op, err)
	}
	total, err := repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, s.internal(ctx, op, err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &SessionPage{Sessions: list, Page: page, Limit: limit, Total: total, TotalPages: totalPages}, nil
}

// GetUserByID loads the principal for the request guard. The guard re-fetches
// on every request rather than trusting token claims for authorization.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repos.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, s.internal(ctx, "services.GetUserByID", err)
	}
	return user, nil
}

func (s *AuthService) issueTokens(ctx context.Context, op string, user *models.User, meta token.RequestMeta) (*LoginResult, error) {
	access, err := s.issuer.CreateAccessToken(user)
	if err != nil {
		return nil, s.internal(ctx, op, err)
	}
	refresh, err := s.issuer.CreateRefreshToken(ctx, s.db, user.ID, meta)
	if err != nil {
		return nil, s.internal(ctx, op, err)
	}
	return &LoginResult{User: user.Public(), AccessToken: access, RefreshToken: refresh}, nil
}

// internal logs the underlying failure and returns the opaque sentinel, so
// database and signing details never reach a client.
func (s *AuthService) internal(ctx context.Context, op string, err error) error {
	s.log.Error(ctx, "internal error", "op", op, "error", err)
	return common.ErrInternal
}

func deriveUsername(email string) string {
	local := email
	if i := strings.Index(email, "@"); i > 0 {
		local = email[:i]
	}
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return local
	}
	return fmt.Sprintf("%s%d", local, n.Int64()+1000)
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
