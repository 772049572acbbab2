package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int                    `json:"code"`
	Kind    errors.Kind            `json:"kind"`
	Reason  errors.ErrorCode       `json:"reason,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	RespondWithStatus(c, http.StatusOK, data)
}

func RespondWithStatus(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response. Errors that are not AppErrors are
// reported as internal without leaking their text.
func RespondWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(ErrorBody(err))
}

// ErrorBody builds the status and envelope for err.
func ErrorBody(err error) (int, Response) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	status := appErr.StatusCode()

	return status, Response{
		Success: false,
		Error: &Error{
			Code:    status,
			Kind:    appErr.Kind,
			Reason:  appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	}
}

// RespondWithTooManyRequests is used by the rate limiter, which sits outside
// the domain error taxonomy.
func RespondWithTooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{
		Success: false,
		Error: &Error{
			Code:    http.StatusTooManyRequests,
			Kind:    "RateLimited",
			Message: "rate limit exceeded",
		},
	})
}
