package tokenstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, repo *users.MemoryRepository, email string) *models.User {
	t.Helper()
	u, err := repo.Create(context.Background(), &models.User{Email: email, PasswordHash: "h"})
	require.NoError(t, err)
	return u
}

func seedToken(t *testing.T, s Store, u *models.User, value string, issued time.Time) {
	t.Helper()
	u.AddRefreshToken(models.NewRefreshToken(value, u.ID, issued, 24*time.Hour))
	require.NoError(t, s.Save(context.Background(), u))
}

// raceRotate has workers goroutines try to retire value and add a
// replacement at the same time; it returns how many succeeded.
func raceRotate(t *testing.T, s Store, value string, workers int) int {
	t.Helper()
	ctx := context.Background()
	now := baseTime.Add(time.Minute)

	var (
		wins  atomic.Int32
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			<-start

			u, err := s.FindOwnerByTokenValue(ctx, value)
			if err != nil {
				t.Errorf("find: %v", err)
				return
			}
			if err := u.RevokeRefreshToken(value, now); err != nil {
				return
			}
			next, err := common.MakeRandHexString(common.RefreshTokenBytes)
			if err != nil {
				t.Errorf("rand: %v", err)
				return
			}
			u.AddRefreshToken(models.NewRefreshToken(next, u.ID, now, 24*time.Hour))

			switch err := s.Save(ctx, u); {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, common.ErrTokenConsumed):
			default:
				t.Errorf("save: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()
	return int(wins.Load())
}
