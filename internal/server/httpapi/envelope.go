// Package httpapi exposes registration, login, refresh and "who am I" over
// HTTP using gin. Application-level failures (wrong password, bad refresh
// token) are answered with HTTP 200 and isSuccess=false; transport-level
// failures use the matching HTTP status.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	msgWrongPassword   = "Password is incorrect."
	msgAccountNotFound = "Account does not exist."
	msgAccountExists   = "Account already exists."
	msgMissingFields   = "Email and password are required."
	msgInvalidRefresh  = "Invalid refresh token"
	msgUnavailable     = "Service temporarily unavailable"
	msgUnauthorized    = "Unauthorized"
	msgTooManyRequests = "Too many requests"
	msgBadRequest      = "Malformed request body"
	msgInternal        = "Internal server error"
)

// Envelope is the body of every /auth response.
type Envelope struct {
	IsSuccess bool   `json:"isSuccess"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{IsSuccess: true, Data: data})
}

func failure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{IsSuccess: false, Message: message})
}
