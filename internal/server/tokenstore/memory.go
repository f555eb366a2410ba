package tokenstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// MemoryStore keeps tokens in process memory. Profiles come from a
// users.Repository.
type MemoryStore struct {
	users users.Repository

	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
	byUser map[string][]string
}

func NewMemoryStore(profiles users.Repository) *MemoryStore {
	return &MemoryStore{
		users:  profiles,
		tokens: make(map[string]*models.RefreshToken),
		byUser: make(map[string][]string),
	}
}

func (s *MemoryStore) FindOwnerByTokenValue(ctx context.Context, value string) (*models.User, error) {
	s.mu.Lock()
	tok, ok := s.tokens[value]
	var userID string
	if ok {
		userID = tok.UserID
	}
	s.mu.Unlock()

	if !ok {
		return nil, common.ErrorNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.byUser[userID] {
		user.RefreshTokens = append(user.RefreshTokens, s.tokens[v].Clone())
	}
	return user, nil
}

func (s *MemoryStore) Save(ctx context.Context, user *models.User) error {
	if !user.HasPendingChanges() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	added, revoked := user.PendingChanges()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range revoked {
		t, ok := s.tokens[v]
		if !ok || t.Revoked {
			return common.ErrTokenConsumed
		}
	}
	for _, t := range added {
		if _, ok := s.tokens[t.Value]; ok {
			return common.ErrorAlreadyExists
		}
	}

	for _, v := range revoked {
		s.tokens[v].Revoke()
	}
	for _, t := range added {
		s.tokens[t.Value] = t.Clone()
		s.byUser[t.UserID] = append(s.byUser[t.UserID], t.Value)
	}

	user.CommitChanges()
	return nil
}
