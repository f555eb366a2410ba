package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "authkeeper:"

// RedisStore keeps one hash per token and a sorted set (scored by issue
// time) per user. Save watches every touched token key and applies the
// change set in one MULTI/EXEC.
type RedisStore struct {
	rdb   redis.UniversalClient
	users users.Repository
}

func NewRedisStore(rdb redis.UniversalClient, profiles users.Repository) *RedisStore {
	return &RedisStore{rdb: rdb, users: profiles}
}

func tokenKey(value string) string { return redisKeyPrefix + "rt:" + value }

func userTokensKey(userID string) string { return redisKeyPrefix + "user:" + userID + ":rt" }

func (s *RedisStore) FindOwnerByTokenValue(ctx context.Context, value string) (*models.User, error) {
	userID, err := s.rdb.HGet(ctx, tokenKey(value), "user_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}

	values, err := s.rdb.ZRange(ctx, userTokensKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(values))
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, v := range values {
			cmds[i] = pipe.HGetAll(ctx, tokenKey(v))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	for i, cmd := range cmds {
		t, err := decodeToken(values[i], cmd.Val())
		if err != nil {
			return nil, err
		}
		user.RefreshTokens = append(user.RefreshTokens, t)
	}
	return user, nil
}

func (s *RedisStore) Save(ctx context.Context, user *models.User) error {
	if !user.HasPendingChanges() {
		return nil
	}
	added, revoked := user.PendingChanges()

	keys := make([]string, 0, len(added)+len(revoked))
	for _, v := range revoked {
		keys = append(keys, tokenKey(v))
	}
	for _, t := range added {
		keys = append(keys, tokenKey(t.Value))
	}

	txf := func(tx *redis.Tx) error {
		for _, v := range revoked {
			flag, err := tx.HGet(ctx, tokenKey(v), "revoked").Result()
			if errors.Is(err, redis.Nil) {
				return common.ErrTokenConsumed
			}
			if err != nil {
				return err
			}
			if flag != "0" {
				return common.ErrTokenConsumed
			}
		}
		for _, t := range added {
			n, err := tx.Exists(ctx, tokenKey(t.Value)).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return common.ErrorAlreadyExists
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, v := range revoked {
				pipe.HSet(ctx, tokenKey(v), "revoked", "1")
			}
			for _, t := range added {
				pipe.HSet(ctx, tokenKey(t.Value), encodeToken(t))
				pipe.ZAdd(ctx, userTokensKey(t.UserID), redis.Z{
					Score:  float64(t.IssuedAt.UnixNano()),
					Member: t.Value,
				})
			}
			return nil
		})
		return err
	}

	err := s.rdb.Watch(ctx, txf, keys...)
	switch {
	case err == nil:
		user.CommitChanges()
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return common.ErrTokenConsumed
	case errors.Is(err, common.ErrTokenConsumed), errors.Is(err, common.ErrorAlreadyExists):
		return err
	default:
		return fmt.Errorf("redis error: %w", err)
	}
}

func encodeToken(t *models.RefreshToken) map[string]any {
	revoked := "0"
	if t.Revoked {
		revoked = "1"
	}
	return map[string]any{
		"user_id":    t.UserID,
		"issued_at":  strconv.FormatInt(t.IssuedAt.UnixNano(), 10),
		"expires_at": strconv.FormatInt(t.ExpiresAt.UnixNano(), 10),
		"revoked":    revoked,
	}
}

func decodeToken(value string, h map[string]string) (*models.RefreshToken, error) {
	if len(h) == 0 {
		return nil, fmt.Errorf("redis error: token %s listed but missing", common.Fingerprint(value))
	}
	issued, err := strconv.ParseInt(h["issued_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis error: issued_at: %w", err)
	}
	expires, err := strconv.ParseInt(h["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis error: expires_at: %w", err)
	}
	return &models.RefreshToken{
		Value:     value,
		UserID:    h["user_id"],
		IssuedAt:  time.Unix(0, issued).UTC(),
		ExpiresAt: time.Unix(0, expires).UTC(),
		Revoked:   h["revoked"] == "1",
	}, nil
}
