package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-scheduler/pkg/errors"
)

// ContextRequestID is the gin context key holding the request id
const ContextRequestID = "request_id"

// Response wraps successful API responses
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// ErrorResponse wraps failed API responses. Code lets clients tell a booking
// conflict apart from other failures.
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindConflict:
		return http.StatusConflict
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindUnauthorized:
		return http.StatusUnauthorized
	case errors.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Status: "success", Data: data})
}

// RespondWithError sends an error response. Internal errors are logged by the
// error middleware through c.Errors and never leak their cause to the client.
func RespondWithError(c *gin.Context, err error) {
	kind := errors.KindOf(err)
	status := StatusFor(kind)

	message := "internal server error"
	if kind != errors.KindInternal {
		message = err.Error()
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			message = appErr.Message
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Status:  "error",
		Code:    kind.String(),
		Message: message,
		TraceID: c.GetString(ContextRequestID),
	})
}

// RespondWithMessage sends an error response for transport-level failures
// such as unparsable input.
func RespondWithMessage(c *gin.Context, status int, message string) {
	code := "validation"
	switch status {
	case http.StatusUnauthorized:
		code = "unauthorized"
	case http.StatusForbidden:
		code = "forbidden"
	case http.StatusNotFound:
		code = "not_found"
	case http.StatusTooManyRequests:
		code = "rate_limited"
	case http.StatusRequestEntityTooLarge:
		code = "too_large"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: c.GetString(ContextRequestID),
	})
}
