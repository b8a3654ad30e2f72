package trainingload

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultLockTTL = 5 * time.Minute
	lockKeyPrefix  = "trainingload||rebuild-lock||"
)

// releaseScript deletes the lock only if it is still held by the caller's token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Locker serializes rebuilds of the same athlete.
type Locker interface {
	Lock(ctx context.Context, athleteID int64) (unlock func(context.Context) error, err error)
}

// RedisLocker is a per-athlete SETNX lock with a TTL, so a crashed
// rebuild cannot hold an athlete forever.
type RedisLocker struct {
	redisClient *redis.Client
	ttl         time.Duration
	// ability to inject the token generator (for unit testing)
	TokenFunc func() string
}

func NewRedisLocker(redisClient *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{
		redisClient: redisClient,
		ttl:         ttl,
		TokenFunc:   uuid.NewString,
	}
}

func lockKey(athleteID int64) string {
	return fmt.Sprintf("%s%d", lockKeyPrefix, athleteID)
}

func (l *RedisLocker) Lock(ctx context.Context, athleteID int64) (func(context.Context) error, error) {
	key := lockKey(athleteID)
	token := l.TokenFunc()

	acquired, err := l.redisClient.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire rebuild lock: %w", err)
	}
	if !acquired {
		return nil, ErrRebuildInProgress
	}

	unlock := func(ctx context.Context) error {
		released, err := l.redisClient.Eval(ctx, releaseScript, []string{key}, token).Int64()
		if err != nil {
			return fmt.Errorf("release rebuild lock: %w", err)
		}
		if released == 0 {
			log.Warnf("rebuild lock for athlete %d expired before release", athleteID)
		}
		return nil
	}

	return unlock, nil
}
