package lock

import (
	"buyer-intent-engine/internal/config"
	"buyer-intent-engine/internal/logger"
	"buyer-intent-engine/internal/metrics"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "intent:lock:"
	redisRetryDelay  = 25 * time.Millisecond
	redisCallTimeout = 3 * time.Second
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil // Redis is optional
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// CloseRedisClient closes Redis client connection
func CloseRedisClient(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}

// RedisLocker is a SET NX lease lock shared by every engine replica.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	log    *logger.Logger
}

func NewRedisLocker(client *redis.Client, ttl, wait time.Duration, log *logger.Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait, log: log}
}

func (l *RedisLocker) Acquire(key string) (func(), error) {
	start := time.Now()
	deadline := start.Add(l.wait)
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}

		if ok {
			metrics.LockWaitTime.WithLabelValues("redis").Observe(time.Since(start).Seconds())
			return func() { l.release(redisKey, token) }, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		time.Sleep(redisRetryDelay)
	}
}

func (l *RedisLocker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()

	// The lease expires on its own if this fails.
	if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
		l.log.Warn("Failed to release lock %s: %v", redisKey, err)
	}
}
