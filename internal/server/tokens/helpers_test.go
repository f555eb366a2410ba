package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokenstore"
	"github.com/stretchr/testify/require"
)

const (
	accessLifetime  = 15 * time.Minute
	refreshLifetime = 7 * 24 * time.Hour
)

type testEnv struct {
	users   *users.MemoryRepository
	store   tokenstore.Store
	codec   *auth.Codec
	issuer  *Issuer
	rotator *RotationService
}

func newCodec(t *testing.T) *auth.Codec {
	t.Helper()
	c, err := auth.NewCodec(auth.CodecConfig{
		SigningKey: []byte("test-signing-key-0123456789abcdef"),
		Issuer:     "authkeeper",
		Audience:   "authkeeper-clients",
		Lifetime:   accessLifetime,
	})
	require.NoError(t, err)
	return c
}

func newEnv(t *testing.T, makeStore func(users.Repository) tokenstore.Store) *testEnv {
	t.Helper()
	repo := users.NewMemoryRepository()
	if makeStore == nil {
		makeStore = func(r users.Repository) tokenstore.Store { return tokenstore.NewMemoryStore(r) }
	}
	store := makeStore(repo)
	codec := newCodec(t)
	issuer := NewIssuer(codec, store, refreshLifetime, logging.Nop(), nil)
	return &testEnv{
		users:   repo,
		store:   store,
		codec:   codec,
		issuer:  issuer,
		rotator: NewRotationService(store, issuer, logging.Nop(), nil),
	}
}

func (e *testEnv) newUser(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), &models.User{Email: email, PasswordHash: "h"})
	require.NoError(t, err)
	return u
}

func (e *testEnv) owner(t *testing.T, value string) *models.User {
	t.Helper()
	u, err := e.store.FindOwnerByTokenValue(context.Background(), value)
	require.NoError(t, err)
	return u
}

type fakeStore struct {
	findUser *models.User
	findErr  error
	saveErr  error
	saves    int
}

func (f *fakeStore) FindOwnerByTokenValue(ctx context.Context, value string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findUser, nil
}

func (f *fakeStore) Save(ctx context.Context, user *models.User) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	user.CommitChanges()
	return nil
}

type fakeEncoder struct {
	err error
}

func (f *fakeEncoder) Encode(s auth.Subject) (string, *auth.Claims, error) {
	return "", nil, f.err
}

type fakeIssuer struct {
	err   error
	calls int
}

func (f *fakeIssuer) IssuePair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}
