package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gieogita/portal-auth/internal/common"
	"github.com/gieogita/portal-auth/internal/config"
	"github.com/gieogita/portal-auth/internal/logging"
	"github.com/gieogita/portal-auth/internal/models"
	"github.com/gieogita/portal-auth/internal/services"
	"github.com/gieogita/portal-auth/internal/token"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

// stubService returns canned results per method; err (when set) wins.
type stubService struct {
	err         error
	loginResult *services.LoginResult
	pair        *services.TokenPair
	page        *services.SessionPage

	lastMeta         token.RequestMeta
	lastRefreshToken string
}

func (s *stubService) Register(ctx context.Context, name, email, password string) error {
	return s.err
}
func (s *stubService) RequestOTP(ctx context.Context, email string) error { return s.err }
func (s *stubService) VerifyOTP(ctx context.Context, email, code string) error {
	return s.err
}
func (s *stubService) Login(ctx context.Context, email, password string, meta token.RequestMeta) (*services.LoginResult, error) {
	s.lastMeta = meta
	if s.err != nil {
		return nil, s.err
	}
	return s.loginResult, nil
}
func (s *stubService) LoginWithGoogle(ctx context.Context, idToken string, meta token.RequestMeta) (*services.LoginResult, error) {
	s.lastMeta = meta
	if s.err != nil {
		return nil, s.err
	}
	return s.loginResult, nil
}
func (s *stubService) Refresh(ctx context.Context, refreshToken string, meta token.RequestMeta) (*services.TokenPair, error) {
	s.lastRefreshToken = refreshToken
	if s.err != nil {
		return nil, s.err
	}
	return s.pair, nil
}
func (s *stubService) Logout(ctx context.Context, refreshToken string) error {
	s.lastRefreshToken = refreshToken
	return s.err
}
func (s *stubService) ListSessions(ctx context.Context, userID string, page, limit int) (*services.SessionPage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

func newTestHandler(svc Service) *Handler {
	cfg := &config.Config{
		Env: "local",
		Auth: config.Auth{
			AccessTokenTTL:  12 * time.Hour,
			RefreshTokenTTL: 168 * time.Hour,
		},
	}
	return NewHandler(svc, nopLogger{}, cfg)
}

func performJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func cookieValues(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestRegisterHandler(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		serviceErr error
		wantCode   int
		wantBody   string
	}{
		{"created", `{"name":"Asha","email":"asha@x.com","password":"pw"}`, nil,
			http.StatusCreated, "User registered successfully."},
		{"malformed json", `{`, nil,
			http.StatusBadRequest, "Invalid request body."},
		{"missing fields", `{"email":"asha@x.com"}`, common.ErrValidation,
			http.StatusBadRequest, "name, email, and password are required."},
		{"duplicate email", `{"name":"Asha","email":"asha@x.com","password":"pw"}`, common.ErrConflict,
			http.StatusConflict, "Email is already registered."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(&stubService{err: tc.serviceErr})
			r := gin.New()
			r.POST("/register", h.Register)

			w := performJSON(r, http.MethodPost, "/register", tc.body)
			assert.Equal(t, tc.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
		})
	}
}

func TestSendOTPHandler(t *testing.T) {
	t.Run("sent", func(t *testing.T) {
		h := newTestHandler(&stubService{})
		r := gin.New()
		r.POST("/send-otp", h.SendOTP)

		w := performJSON(r, http.MethodPost, "/send-otp", `{"email":"asha@x.com"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Verification code sent to asha@x.com")
	})

	t.Run("unknown email", func(t *testing.T) {
		h := newTestHandler(&stubService{err: common.ErrNotFound})
		r := gin.New()
		r.POST("/send-otp", h.SendOTP)

		w := performJSON(r, http.MethodPost, "/send-otp", `{"email":"ghost@x.com"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Email not found. Please register first.")
	})

	t.Run("smtp failure", func(t *testing.T) {
		h := newTestHandler(&stubService{err: common.ErrDelivery})
		r := gin.New()
		r.POST("/send-otp", h.SendOTP)

		w := performJSON(r, http.MethodPost, "/send-otp", `{"email":"asha@x.com"}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestVerifyOTPHandler(t *testing.T) {
	cases := []struct {
		name       string
		serviceErr error
		wantCode   int
		wantBody   string
	}{
		{"verified", nil, http.StatusOK, "OTP verified successfully. User is now verified."},
		{"wrong code", common.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid OTP. Please try again."},
		{"expired", common.ErrOTPExpired, http.StatusBadRequest, "OTP has expired. Please request a new OTP."},
		{"no code requested", common.ErrNotFound, http.StatusNotFound, "No OTP found for this user. Please request a new OTP."},
		{"already verified", common.ErrAlreadyVerified, http.StatusConflict, "User already verified. Please login."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(&stubService{err: tc.serviceErr})
			r := gin.New()
			r.POST("/verify-otp", h.VerifyOTP)

			w := performJSON(r, http.MethodPost, "/verify-otp", `{"email":"asha@x.com","otp":"482913"}`)
			assert.Equal(t, tc.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
		})
	}
}

func TestLoginHandler_Success(t *testing.T) {
	svc := &stubService{loginResult: &services.LoginResult{
		User:         models.PublicUser{ID: "u-1", Name: "Asha", Email: "asha@x.com", Role: models.RoleUser},
		AccessToken:  "access-jwt",
		RefreshToken: "refresh-jwt",
	}}
	h := newTestHandler(svc)
	r := gin.New()
	r.POST("/login", h.Login)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"asha@x.com","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "go-test")
	req.Header.Set("Sec-CH-UA", `"Chromium"`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"access-jwt"`)
	assert.Contains(t, w.Body.String(), `"refresh_token":"refresh-jwt"`)
	assert.Contains(t, w.Body.String(), `"email":"asha@x.com"`)

	cookies := cookieValues(w)
	require.Contains(t, cookies, accessTokenCookie)
	require.Contains(t, cookies, refreshTokenCookie)
	assert.Equal(t, "access-jwt", cookies[accessTokenCookie].Value)
	assert.Equal(t, "refresh-jwt", cookies[refreshTokenCookie].Value)
	assert.True(t, cookies[accessTokenCookie].HttpOnly)
	assert.Equal(t, int((12 * time.Hour).Seconds()), cookies[accessTokenCookie].MaxAge)

	assert.Equal(t, "go-test", svc.lastMeta.UserAgent)
	assert.Equal(t, `"Chromium"`, svc.lastMeta.DeviceInfo)
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	h := newTestHandler(&stubService{err: common.ErrInvalidCredentials})
	r := gin.New()
	r.POST("/login", h.Login)

	w := performJSON(r, http.MethodPost, "/login", `{"email":"asha@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")
	assert.Empty(t, w.Result().Cookies())
}

func TestLoginHandler_Unverified(t *testing.T) {
	h := newTestHandler(&stubService{err: common.ErrUnverified})
	r := gin.New()
	r.POST("/login", h.Login)

	w := performJSON(r, http.MethodPost, "/login", `{"email":"asha@x.com","password":"pw"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Email not verified. Please verify your email before logging in.")
}

func TestGoogleLoginHandler_InvalidToken(t *testing.T) {
	h := newTestHandler(&stubService{err: common.ErrInvalidCredentials})
	r := gin.New()
	r.POST("/google", h.GoogleLogin)

	w := performJSON(r, http.MethodPost, "/google", `{"id_token":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid ID token")
}

func TestRefreshHandler(t *testing.T) {
	t.Run("from body", func(t *testing.T) {
		svc := &stubService{pair: &services.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}}
		h := newTestHandler(svc)
		r := gin.New()
		r.POST("/refresh", h.Refresh)

		w := performJSON(r, http.MethodPost, "/refresh", `{"refresh_token":"old-refresh"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "old-refresh", svc.lastRefreshToken)
		assert.Contains(t, w.Body.String(), `"refresh_token":"new-refresh"`)
	})

	t.Run("from cookie", func(t *testing.T) {
		svc := &stubService{pair: &services.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}}
		h := newTestHandler(svc)
		r := gin.New()
		r.POST("/refresh", h.Refresh)

		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: "cookie-refresh"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "cookie-refresh", svc.lastRefreshToken)
	})

	t.Run("missing token", func(t *testing.T) {
		h := newTestHandler(&stubService{})
		r := gin.New()
		r.POST("/refresh", h.Refresh)

		w := performJSON(r, http.MethodPost, "/refresh", `{}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		h := newTestHandler(&stubService{err: common.ErrUnauthenticated})
		r := gin.New()
		r.POST("/refresh", h.Refresh)

		w := performJSON(r, http.MethodPost, "/refresh", `{"refresh_token":"revoked"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLogoutHandler_ExpiresCookies(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(svc)
	r := gin.New()
	r.POST("/logout", h.Logout)

	w := performJSON(r, http.MethodPost, "/logout", `{"refresh_token":"refresh-jwt"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "refresh-jwt", svc.lastRefreshToken)

	cookies := cookieValues(w)
	require.Contains(t, cookies, accessTokenCookie)
	require.Contains(t, cookies, refreshTokenCookie)
	assert.Empty(t, cookies[accessTokenCookie].Value)
	assert.Negative(t, cookies[refreshTokenCookie].MaxAge)
}

func TestMySessionsHandler(t *testing.T) {
	svc := &stubService{page: &services.SessionPage{
		Sessions:   []models.Session{{ID: "s-1", IPAddress: "203.0.113.9"}},
		Page:       2,
		Limit:      5,
		Total:      11,
		TotalPages: 3,
	}}
	h := newTestHandler(svc)
	r := gin.New()
	r.GET("/sessions", func(c *gin.Context) {
		c.Set(principalKey, &models.User{ID: "u-1", Role: models.RoleUser})
		h.MySessions(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/sessions?page=2&limit=5", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":11`)
	assert.Contains(t, w.Body.String(), `"total_pages":3`)
	assert.Contains(t, w.Body.String(), `"ip_address":"203.0.113.9"`)
}

func TestMeHandler(t *testing.T) {
	h := newTestHandler(&stubService{})
	r := gin.New()
	r.GET("/me", func(c *gin.Context) {
		c.Set(principalKey, &models.User{
			ID: "u-1", Name: "Asha", Email: "asha@x.com",
			Password: "hash", Role: models.RoleUser,
		})
		h.Me(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"asha@x.com"`)
	assert.NotContains(t, w.Body.String(), "hash", "password hash must never be serialized")
}
