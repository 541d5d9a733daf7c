package repository

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"sitechat/internal/domain/entity"
	"sitechat/internal/domain/repository"
	"sitechat/pkg/errors"
)

const (
	presenceOnlineKeyPrefix   = "presence:online:"
	presenceLastSeenKeyPrefix = "presence:last_seen:"
	defaultPresenceTTL        = 90 * time.Second
)

// redisPresenceRepository keeps presence as heartbeat keys: a user is online
// while their online key lives, and the last heartbeat or disconnect time is
// kept without expiry.
type redisPresenceRepository struct {
	rdb   *redis.Client
	ttl   time.Duration
	clock func() time.Time
}

func NewRedisPresenceRepository(rdb *redis.Client, ttl time.Duration) repository.PresenceRepository {
	if ttl <= 0 {
		ttl = defaultPresenceTTL
	}
	return &redisPresenceRepository{
		rdb:   rdb,
		ttl:   ttl,
		clock: time.Now,
	}
}

func (r *redisPresenceRepository) GetStatus(ctx context.Context, userID string) (*entity.Presence, error) {
	online, err := r.rdb.Exists(ctx, presenceOnlineKeyPrefix+userID).Result()
	if err != nil {
		return nil, errors.Internal("Failed to read presence", err)
	}

	presence := &entity.Presence{IsOnline: online > 0}

	raw, err := r.rdb.Get(ctx, presenceLastSeenKeyPrefix+userID).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return presence, nil
		}
		return nil, errors.Internal("Failed to read last seen", err)
	}

	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return presence, nil
	}
	lastSeen := time.Unix(unix, 0)
	presence.LastSeen = &lastSeen
	if presence.IsOnline {
		lastActivity := lastSeen
		presence.LastActivity = &lastActivity
	}
	return presence, nil
}

func (r *redisPresenceRepository) Heartbeat(ctx context.Context, userID string) error {
	now := strconv.FormatInt(r.clock().Unix(), 10)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetEx(ctx, presenceOnlineKeyPrefix+userID, now, r.ttl)
		pipe.Set(ctx, presenceLastSeenKeyPrefix+userID, now, 0)
		return nil
	})
	if err != nil {
		return errors.Internal("Failed to record heartbeat", err)
	}
	return nil
}

func (r *redisPresenceRepository) MarkOffline(ctx context.Context, userID string) error {
	now := strconv.FormatInt(r.clock().Unix(), 10)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, presenceOnlineKeyPrefix+userID)
		pipe.Set(ctx, presenceLastSeenKeyPrefix+userID, now, 0)
		return nil
	})
	if err != nil {
		return errors.Internal("Failed to record offline status", err)
	}
	return nil
}
