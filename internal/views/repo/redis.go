package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/ebaypulse/server/internal/core/error"
	"github.com/ebaypulse/server/internal/views/model"
	logx "github.com/ebaypulse/server/pkg/logger"
)

// maxTxAttempts bounds optimistic-lock retries when two requests of the
// same session race on Update.
const maxTxAttempts = 10

// getter is the read surface shared by the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type RedisSessionRepository struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisSessionRepository(rdb redis.UniversalClient, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) sessionKey(id string) string {
	return fmt.Sprintf("session:%s:views", id)
}

func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	return r.read(ctx, r.rdb, id)
}

func (r *RedisSessionRepository) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	key := r.sessionKey(id)

	var (
		out   *model.Session
		fnErr error
	)
	txf := func(tx *redis.Tx) error {
		s, err := r.read(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			fnErr = err
			return err
		}
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, r.ttl)
			return nil
		})
		if err == nil {
			out = s
		}
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		fnErr = nil
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if fnErr != nil {
			return nil, fnErr
		}
		if errors.Is(err, redis.TxFailedErr) {
			logx.Debug().Str("key", key).Int("attempt", attempt+1).Msg("session update conflicted; retrying")
			continue
		}
		var appErr *errx.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to update session in redis")
		return nil, errx.WrapRedis(err)
	}

	logx.Warn().Str("key", key).Int("attempts", maxTxAttempts).Msg("session update gave up after repeated conflicts")
	return nil, errx.WrapRedis(redis.TxFailedErr)
}

func (r *RedisSessionRepository) read(ctx context.Context, c getter, id string) (*model.Session, error) {
	key := r.sessionKey(id)

	raw, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.NewSession(id), nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}

	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		// unreadable state is transient; start over rather than wedge the client
		logx.Warn().Err(err).Str("key", key).Msg("failed to unmarshal session; resetting")
		return model.NewSession(id), nil
	}
	return &s, nil
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)
