package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/airguard/pkg/errors"
)

const codeInternal = "internal_error"

// renderedError is what a client sees for a failed request.
type renderedError struct {
	Status  int
	Code    string
	Message string
}

// statusForCode maps AppError codes onto HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeUpdateInProgress:
		return http.StatusConflict
	case apperrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.CodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// renderError keeps only the outermost AppError message; causes and foreign
// errors never reach the client.
func renderError(err error) renderedError {
	code := apperrors.CodeOf(err)
	if code == "" {
		return renderedError{Status: http.StatusInternalServerError, Code: codeInternal, Message: "something went wrong"}
	}
	status := statusForCode(code)
	message := apperrors.MessageOf(err)
	if message == "" {
		message = http.StatusText(status)
	}
	return renderedError{Status: status, Code: code, Message: message}
}

func abortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
