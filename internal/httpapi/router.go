package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/gieogita/portal-auth/internal/models"
)

// NewRouter wires the public and guarded route groups. The admin group takes
// its role allow-list here, not inside the handlers.
func NewRouter(h *Handler, verifier TokenVerifier, principals PrincipalSource) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	authn := Authenticate(verifier, principals)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/send-otp", h.SendOTP)
		auth.POST("/verify-otp", h.VerifyOTP)
		auth.POST("/login", h.Login)
		auth.POST("/google", h.GoogleLogin)
		auth.POST("/refresh", h.Refresh)

		authed := auth.Group("", authn)
		authed.POST("/logout", h.Logout)
		authed.GET("/me", h.Me)
		authed.GET("/sessions", h.MySessions)
	}

	admin := v1.Group("/admin", authn, RequireRole(models.RoleAdmin, models.RoleSuperadmin))
	{
		admin.GET("/users/:id/sessions", h.UserSessions)
	}

	return router
}
