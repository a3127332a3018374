// Package httpapi exposes the auth subsystem over HTTP: route handlers, the
// request guard middleware, and the sentinel-to-status error mapping.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gieogita/portal-auth/internal/common"
	"github.com/gieogita/portal-auth/internal/config"
	"github.com/gieogita/portal-auth/internal/logging"
	"github.com/gieogita/portal-auth/internal/services"
	"github.com/gieogita/portal-auth/internal/token"
)

// Service is the slice of the auth service the HTTP layer consumes.
type Service interface {
	Register(ctx context.Context, name, email, password string) error
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string, meta token.RequestMeta) (*services.LoginResult, error)
	LoginWithGoogle(ctx context.Context, idToken string, meta token.RequestMeta) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, meta token.RequestMeta) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ListSessions(ctx context.Context, userID string, page, limit int) (*services.SessionPage, error)
}

type Handler struct {
	service Service
	log     logging.Logger

	accessMaxAge  int // cookie lifetimes in seconds
	refreshMaxAge int
	secureCookies bool
}

func NewHandler(service Service, log logging.Logger, cfg *config.Config) *Handler {
	return &Handler{
		service:       service,
		log:           log,
		accessMaxAge:  int(cfg.Auth.AccessTokenTTL.Seconds()),
		refreshMaxAge: int(cfg.Auth.RefreshTokenTTL.Seconds()),
		secureCookies: cfg.Env != "local",
	}
}

func requestMeta(c *gin.Context) token.RequestMeta {
	return token.RequestMeta{
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		DeviceInfo: c.GetHeader("Sec-CH-UA"),
	}
}

// setTokenCookies delivers both tokens as HTTP-only cookies alongside the
// JSON body, so browser and non-browser clients can both consume them.
func (h *Handler) setTokenCookies(c *gin.Context, access, refresh string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, access, h.accessMaxAge, "/", "", h.secureCookies, true)
	c.SetCookie(refreshTokenCookie, refresh, h.refreshMaxAge, "/", "", h.secureCookies, true)
}

// POST /v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.service.Register(c.Request.Context(), req.Name, req.Email, req.Password); err != nil {
		if errors.Is(err, common.ErrValidation) {
			newErrorResponse(c, http.StatusBadRequest, "name, email, and password are required.")
			return
		}
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": true, "message": "User registered successfully."})
}

// POST /v1/auth/send-otp
func (h *Handler) SendOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Email is required.")
		return
	}

	if err := h.service.RequestOTP(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			newErrorResponse(c, http.StatusNotFound, "Email not found. Please register first.")
			return
		}
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": true, "message": "Verification code sent to " + req.Email})
}

// POST /v1/auth/verify-otp
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Email and OTP are required.")
		return
	}

	if err := h.service.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			newErrorResponse(c, http.StatusNotFound, "No OTP found for this user. Please request a new OTP.")
		case errors.Is(err, common.ErrInvalidCredentials):
			newErrorResponse(c, http.StatusUnauthorized, "Invalid OTP. Please try again.")
		default:
			abortWithError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": true, "message": "OTP verified successfully. User is now verified."})
}

// POST /v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Email and password are required.")
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Email, req.Password, requestMeta(c))
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			newErrorResponse(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		abortWithError(c, err)
		return
	}

	h.setTokenCookies(c, result.AccessToken, result.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"status":        true,
		"user":          result.User,
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
	})
}

// POST /v1/auth/google
func (h *Handler) GoogleLogin(c *gin.Context) {
	var req struct {
		IDToken string `json:"id_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "id_token is required.")
		return
	}

	result, err := h.service.LoginWithGoogle(c.Request.Context(), req.IDToken, requestMeta(c))
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			newErrorResponse(c, http.StatusUnauthorized, "Invalid ID token")
			return
		}
		abortWithError(c, err)
		return
	}

	h.setTokenCookies(c, result.AccessToken, result.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"status":        true,
		"user":          result.User,
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
	})
}

// refreshTokenFrom reads the refresh token from the body, falling back to the
// refresh cookie for browser clients.
func refreshTokenFrom(c *gin.Context) string {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if cookie, err := c.Cookie(refreshTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// POST /v1/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	refreshToken := refreshTokenFrom(c)
	if refreshToken == "" {
		abortWithError(c, common.ErrUnauthenticated)
		return
	}

	pair, err := h.service.Refresh(c.Request.Context(), refreshToken, requestMeta(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	h.setTokenCookies(c, pair.AccessToken, pair.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"status":        true,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// POST /v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	refreshToken := refreshTokenFrom(c)
	if refreshToken == "" {
		abortWithError(c, common.ErrUnauthenticated)
		return
	}

	if err := h.service.Logout(c.Request.Context(), refreshToken); err != nil {
		abortWithError(c, err)
		return
	}

	// Expire both cookies.
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", "", h.secureCookies, true)

	c.JSON(http.StatusOK, gin.H{"status": true, "message": "Logged out."})
}

// GET /v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	user, ok := Principal(c)
	if !ok {
		abortWithError(c, common.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": true, "user": user.Public()})
}

// GET /v1/auth/sessions
func (h *Handler) MySessions(c *gin.Context) {
	user, ok := Principal(c)
	if !ok {
		abortWithError(c, common.ErrUnauthenticated)
		return
	}
	h.listSessions(c, user.ID)
}

// GET /v1/admin/users/:id/sessions
func (h *Handler) UserSessions(c *gin.Context) {
	h.listSessions(c, c.Param("id"))
}

func (h *Handler) listSessions(c *gin.Context, userID string) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.service.ListSessions(c.Request.Context(), userID, page, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      true,
		"sessions":    result.Sessions,
		"page":        result.Page,
		"limit":       result.Limit,
		"total":       result.Total,
		"total_pages": result.TotalPages,
	})
}
