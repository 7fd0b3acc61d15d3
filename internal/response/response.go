// Package response writes the JSON envelopes shared by every endpoint:
// {"success":true,"data":...} and {"success":false,"error":{"code","message"}}.
package response

import (
	"github.com/gin-gonic/gin"
)

const (
	CodeAuthRequired           = "AUTH_REQUIRED"
	CodeAuthInvalid            = "AUTH_INVALID"
	CodeAuthExpired            = "AUTH_EXPIRED"
	CodeAuthForbidden          = "AUTH_FORBIDDEN"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeInsufficientPrivileges = "INSUFFICIENT_PRIVILEGES"
	CodeAccountInactive        = "ACCOUNT_INACTIVE"
	CodeSessionUnavailable     = "SESSION_UNAVAILABLE"
	CodeValidation             = "VALIDATION_ERROR"
	CodeNotFound               = "NOT_FOUND"
	CodeInternal               = "INTERNAL_ERROR"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Fail aborts the handler chain with an error envelope.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}
