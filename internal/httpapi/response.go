package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gieogita/portal-auth/internal/common"
)

// Every response carries a boolean status flag and a human-readable message;
// internals (queries, secrets, stack traces) never leak to the client.
type errorResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

func newErrorResponse(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, errorResponse{Status: false, Message: message})
}

// statusCode maps a sentinel error to its HTTP status.
func statusCode(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrOTPExpired):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrUnverified), errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflict), errors.Is(err, common.ErrAlreadyVerified):
		return http.StatusConflict
	case errors.Is(err, common.ErrDelivery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the default client-facing message per sentinel. Handlers
// override it where a flow has more specific wording.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrValidation):
		return "Required fields are missing or invalid."
	case errors.Is(err, common.ErrConflict):
		return "Email is already registered."
	case errors.Is(err, common.ErrAlreadyVerified):
		return "User already verified. Please login."
	case errors.Is(err, common.ErrNotFound):
		return "Not found."
	case errors.Is(err, common.ErrInvalidCredentials):
		return "Invalid credentials."
	case errors.Is(err, common.ErrUnverified):
		return "Email not verified. Please verify your email before logging in."
	case errors.Is(err, common.ErrOTPExpired):
		return "OTP has expired. Please request a new OTP."
	case errors.Is(err, common.ErrUnauthenticated):
		return "Invalid or expired token."
	case errors.Is(err, common.ErrForbidden):
		return "Access denied."
	case errors.Is(err, common.ErrDelivery):
		return "Failed to send email. Please try again later."
	default:
		return "Internal server error."
	}
}

func abortWithError(c *gin.Context, err error) {
	newErrorResponse(c, statusCode(err), errorMessage(err))
}
