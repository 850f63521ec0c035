package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ActivityChannel is the Redis Pub/Sub channel of the live activity feed.
const ActivityChannel = "silva:actividad"

func (s *Service) RedisEnabled() bool {
	return s.Redis != nil
}

// RevokeSession denylists a session id until its token would have expired.
func (s *Service) RevokeSession(ctx context.Context, jti string, ttl time.Duration) error {
	if s.Redis == nil || ttl <= 0 {
		return nil
	}
	return s.Redis.Set(ctx, "session:revoked:"+jti, "1", ttl).Err()
}

// IsSessionRevoked reports whether the session id was denylisted at logout.
func (s *Service) IsSessionRevoked(ctx context.Context, jti string) (bool, error) {
	if s.Redis == nil {
		return false, nil
	}
	status, err := s.Redis.Get(ctx, "session:revoked:"+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// HitLoginAttempt counts one attempt for key within window and returns the
// running total. Without Redis it always reports zero.
func (s *Service) HitLoginAttempt(ctx context.Context, key string, window time.Duration) (int64, error) {
	if s.Redis == nil {
		return 0, nil
	}
	k := "login:attempts:" + key
	n, err := s.Redis.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.Redis.Expire(ctx, k, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (s *Service) ResetLoginAttempts(ctx context.Context, key string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(ctx, "login:attempts:"+key).Err()
}

// SubscribeActivity returns nil when Redis is disabled.
func (s *Service) SubscribeActivity(ctx context.Context) *redis.PubSub {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Subscribe(ctx, ActivityChannel)
}

// publishActivity is best effort: the entry is already committed.
func (s *Service) publishActivity(ctx context.Context, e *models.ActivityLogEntry) {
	if s.Redis == nil {
		return
	}
	actor := ""
	if e.Actor != nil {
		actor = e.Actor.Username
	}
	msg, err := json.Marshal(models.NewFeedEvent(e, actor))
	if err != nil {
		s.Log.Error("encode feed event", zap.Error(err))
		return
	}
	if err := s.Redis.Publish(ctx, ActivityChannel, msg).Err(); err != nil {
		s.Log.Warn("publish feed event", zap.Uint("log_id", e.ID), zap.Error(err))
	}
}
