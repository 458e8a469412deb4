package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/KotFed0t/finplan/internal/model"
	"github.com/KotFed0t/finplan/utils"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

type RedisSession struct {
	redis      *redis.Client
	expiration time.Duration
}

func NewRedisSession(redisClient *redis.Client, expiration time.Duration) *RedisSession {
	return &RedisSession{redis: redisClient, expiration: expiration}
}

func key(chatID int64) string {
	return keyPrefix + strconv.FormatInt(chatID, 10)
}

// Get returns the stored session, or an empty one in DefaultState when the chat has none.
func (s *RedisSession) Get(ctx context.Context, chatID int64) (model.Session, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := s.redis.Get(ctx, key(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Session{State: model.DefaultState}, nil
	}
	if err != nil {
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.Int64("chatID", chatID))
		return model.Session{}, err
	}

	var sess model.Session
	if err = json.Unmarshal(res, &sess); err != nil {
		return model.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}

	return sess, nil
}

func (s *RedisSession) Set(ctx context.Context, chatID int64, sess model.Session) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err = s.redis.Set(ctx, key(chatID), data, s.expiration).Err(); err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.Int64("chatID", chatID))
		return err
	}

	return nil
}

func (s *RedisSession) Reset(ctx context.Context, chatID int64) error {
	return s.redis.Del(ctx, key(chatID)).Err()
}
