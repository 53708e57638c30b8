// Package httpresponse is the gin response envelope for the
// coordinator's operator-facing HTTP surface (spec.md §6).
package httpresponse

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/saga-coordinator/internal/apperrors"
)

// Response is the uniform JSON envelope for every coordinator route.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes a 200 envelope with Code=0.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// Created writes a 201 envelope with Code=0, used for POST /orders.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "success", Data: data})
}

// Accepted writes a 202 envelope with Code=0: the saga has been
// registered and its task launched, but has not necessarily reached a
// terminal status yet (spec.md §5 "one logical task per saga" runs
// independently of the request that created it).
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{Code: 0, Message: "accepted", Data: data})
}

// Error extracts an *apperrors.AppError from err and writes the
// matching HTTP status. Business codes (4xxxx) map to 400/404, system
// codes (5xxxx) map to 500/502/504 depending on kind.
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	c.JSON(statusFor(appErr.Code), Response{Code: appErr.Code, Message: appErr.Message})
}

// ErrorWithCode writes a caller-supplied business code and message.
func ErrorWithCode(c *gin.Context, status, code int, message string) {
	c.JSON(status, Response{Code: code, Message: message})
}

func statusFor(code int) int {
	switch {
	case code == apperrors.ErrCodeSagaNotFound:
		return http.StatusNotFound
	case code == apperrors.ErrCodeInvalidParams || code == apperrors.ErrCodeBindError:
		return http.StatusBadRequest
	case code == apperrors.ErrCodeCommTimeout:
		return http.StatusGatewayTimeout
	case code >= 50100 && code < 50200:
		return http.StatusBadGateway
	case code >= 50000:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
