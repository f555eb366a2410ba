// Package users implements registration and password login. Both end by
// handing the authenticated user to the token issuer.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	usersrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
)

var (
	ErrAccountNotFound = errors.New("account does not exist")
	ErrWrongPassword   = errors.New("password is incorrect")
	ErrMissingFields   = errors.New("email and password are required")
)

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type Service struct {
	repo   usersrepo.Repository
	hasher PasswordHasher
	issuer tokens.PairIssuer
	log    logging.Logger
}

func NewService(repo usersrepo.Repository, hasher PasswordHasher, issuer tokens.PairIssuer, log logging.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		issuer: issuer,
		log:    log.With("module", "users"),
	}
}

// Register creates an account and returns its first token pair. An email
// already in use yields common.ErrorAlreadyExists.
func (s *Service) Register(ctx context.Context, email, password string) (*models.TokenPair, error) {
	email = models.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, ErrMissingFields
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	user, err := s.repo.Create(ctx, &models.User{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		s.log.Error(ctx, "user create failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return s.issuer.IssuePair(ctx, user)
}

// Login checks the credentials and returns a new token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrAccountNotFound
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		s.log.Info(ctx, "login rejected", "user_id", user.ID)
		return nil, ErrWrongPassword
	}

	return s.issuer.IssuePair(ctx, user)
}

// Profile returns the stored profile for id, used by the "who am I" endpoints.
func (s *Service) Profile(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return user, nil
}
