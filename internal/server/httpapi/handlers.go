package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/users"
	"github.com/gin-gonic/gin"
)

// Accounts is the part of users.Service the handlers need.
type Accounts interface {
	Register(ctx context.Context, email, password string) (*models.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Profile(ctx context.Context, id string) (*models.User, error)
}

// Rotator exchanges a refresh token for a new pair.
type Rotator interface {
	Rotate(ctx context.Context, oldValue string) (*models.TokenPair, error)
}

// AccessTokenDecoder validates bearer tokens.
type AccessTokenDecoder interface {
	Decode(token string) (*auth.Claims, error)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profile struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthHandler struct {
	accounts Accounts
	rotator  Rotator
	log      logging.Logger
}

func NewAuthHandler(accounts Accounts, rotator Rotator, log logging.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, rotator: rotator, log: log.With("module", "httpapi")}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	pair, err := h.accounts.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.accountFailure(c, err)
		return
	}
	success(c, pair)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	pair, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.accountFailure(c, err)
		return
	}
	success(c, pair)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	pair, err := h.rotator.Rotate(c.Request.Context(), c.Query("refreshToken"))
	switch {
	case err == nil:
		success(c, pair)
	case errors.Is(err, common.ErrorUnauthorized):
		failure(c, http.StatusOK, msgInvalidRefresh)
	case errors.Is(err, common.ErrStoreUnavailable):
		failure(c, http.StatusServiceUnavailable, msgUnavailable)
	default:
		h.log.Error(c.Request.Context(), "refresh failed", "error", err)
		failure(c, http.StatusInternalServerError, msgInternal)
	}
}

// Me answers with the identity carried by a valid bearer token. The account
// must still exist.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		failure(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	user, err := h.accounts.Profile(c.Request.Context(), claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, users.ErrAccountNotFound):
		failure(c, http.StatusUnauthorized, msgUnauthorized)
		return
	default:
		h.log.Error(c.Request.Context(), "profile lookup failed", "user_id", claims.Subject, "error", err)
		failure(c, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	out := profile{UserID: user.ID, Email: user.Email}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	success(c, out)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *AuthHandler) accountFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, users.ErrWrongPassword):
		failure(c, http.StatusOK, msgWrongPassword)
	case errors.Is(err, users.ErrAccountNotFound):
		failure(c, http.StatusOK, msgAccountNotFound)
	case errors.Is(err, users.ErrMissingFields):
		failure(c, http.StatusOK, msgMissingFields)
	case errors.Is(err, common.ErrorAlreadyExists):
		failure(c, http.StatusOK, msgAccountExists)
	case errors.Is(err, common.ErrStoreUnavailable):
		failure(c, http.StatusServiceUnavailable, msgUnavailable)
	default:
		h.log.Error(c.Request.Context(), "account request failed", "path", c.FullPath(), "error", err)
		failure(c, http.StatusInternalServerError, msgInternal)
	}
}
