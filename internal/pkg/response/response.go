package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Body struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func Success(c *gin.Context, status int, data any) {
	c.JSON(status, Body{Success: true, Data: data})
}

func Error(c *gin.Context, status int, err error) {
	ErrorWithMessage(c, status, err.Error())
}

func ErrorWithMessage(c *gin.Context, status int, message string) {
	ErrorWithType(c, status, TypeFor(status), message)
}

// ErrorWithType interrompe a cadeia de handlers com o envelope de erro.
func ErrorWithType(c *gin.Context, status int, errType, message string) {
	c.AbortWithStatusJSON(status, Body{
		Success: false,
		Error:   &ErrorBody{Type: errType, Message: message},
	})
}

func TypeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusBadGateway:
		return "gateway_error"
	default:
		return "internal_error"
	}
}
