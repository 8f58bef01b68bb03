package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	catalogdomain "github.com/dairylink/creditledger/internal/catalog/domain"
	enginedomain "github.com/dairylink/creditledger/internal/creditengine/domain"
	profiledomain "github.com/dairylink/creditledger/internal/creditprofile/domain"
	requestdomain "github.com/dairylink/creditledger/internal/creditrequest/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ErrorHandlingMiddleware converts the last handler error into a structured
// JSON response. Handlers that already wrote a body are left alone.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case isUnprocessableError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: err.Error(),
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, enginedomain.ErrInvalidAmount),
		errors.Is(err, enginedomain.ErrFreezeReasonRequired),
		errors.Is(err, requestdomain.ErrInvalidQuantity),
		errors.Is(err, requestdomain.ErrRejectionReasonRequired),
		errors.Is(err, requestdomain.ErrProductNotCreditEligible),
		errors.Is(err, catalogdomain.ErrInvalidName),
		errors.Is(err, catalogdomain.ErrInvalidPrice):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, profiledomain.ErrProfileNotFound),
		errors.Is(err, catalogdomain.ErrProductNotFound),
		errors.Is(err, catalogdomain.ErrPackagingNotFound),
		errors.Is(err, requestdomain.ErrRequestNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// isUnprocessableError covers requests that are well-formed but collide with
// the ledger's current state.
func isUnprocessableError(err error) bool {
	switch {
	case errors.Is(err, enginedomain.ErrAlreadyGranted),
		errors.Is(err, enginedomain.ErrAccountFrozen),
		errors.Is(err, enginedomain.ErrNotEligible),
		errors.Is(err, requestdomain.ErrInvalidStatusTransition):
		return true
	default:
		return false
	}
}
