package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErr "github.com/eventconnect/backend/pkg/errors"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Reason  string            `json:"reason,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Accepted sends a 202 JSON response with data.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err, Code: string(appErr.CodeValidation)})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err, Code: string(appErr.CodeUnauthorized)})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err, Code: string(appErr.CodeForbidden)})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err, Code: string(appErr.CodeNotFound)})
}

// TooManyRequests sends 429.
func TooManyRequests(c *gin.Context, err string) {
	c.JSON(http.StatusTooManyRequests, Body{Success: false, Error: err, Code: string(appErr.CodeTooManyRequests)})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err, Code: string(appErr.CodeUnavailable)})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err, Code: string(appErr.CodeInternal)})
}

// Error maps a service error to a status code and envelope. Errors outside the
// taxonomy are reported as internal without leaking their text.
func Error(c *gin.Context, err error) {
	ae, ok := appErr.As(err)
	if !ok {
		Internal(c, "internal server error")
		return
	}
	msg := ae.Message
	if ae.Code == appErr.CodeInternal {
		msg = "internal server error"
	}
	c.JSON(StatusFor(ae.Code), Body{
		Success: false,
		Error:   msg,
		Code:    string(ae.Code),
		Reason:  ae.Reason,
		Fields:  ae.Fields,
	})
}

// Fail logs errors outside the taxonomy and internal errors, then writes the
// error response.
func Fail(c *gin.Context, logger *zap.Logger, err error) {
	if ae, ok := appErr.As(err); !ok || ae.Code == appErr.CodeInternal {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	Error(c, err)
}

// StatusFor returns the HTTP status for an error code. Domain rejections
// (conflicts, capacity) are reported as 400 to match the public API contract.
func StatusFor(code appErr.Code) int {
	switch code {
	case appErr.CodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.CodeForbidden:
		return http.StatusForbidden
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeConflict, appErr.CodeCapacityExceeded, appErr.CodeValidation:
		return http.StatusBadRequest
	case appErr.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case appErr.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
