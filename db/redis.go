// db/redis.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/warden/logging"
)

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

// ConsistencyHashStore publishes and fetches content hashes of the ACL cache
// entry through Redis. Every replica overwrites the same key on a successful
// write, so a replica whose local hash no longer matches knows its entry is
// stale.
type ConsistencyHashStore struct{}

func NewConsistencyHashStore() *ConsistencyHashStore {
	return &ConsistencyHashStore{}
}

func (s *ConsistencyHashStore) PublishHash(ctx context.Context, trackedKey, hash string) error {
	key := fmt.Sprintf("aclhash:%s", trackedKey)
	err := RedisClient.Set(ctx, key, hash, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to publish consistency hash: %w", err)
	}
	logger.Debug("Consistency hash published",
		zap.String("key", key),
		zap.String("hash", hash))
	return nil
}

// FetchHash returns the shared hash for the tracked key, or an empty string
// when no hash has been published yet.
func (s *ConsistencyHashStore) FetchHash(ctx context.Context, trackedKey string) (string, error) {
	key := fmt.Sprintf("aclhash:%s", trackedKey)
	hash, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("No consistency hash published yet", zap.String("key", key))
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("failed to fetch consistency hash: %w", err)
	}
	return hash, nil
}

// AcquireRefreshLock takes the distributed lock guarding the scheduled cache
// refresh, so a single replica performs it per period.
func AcquireRefreshLock(ctx context.Context, ttl time.Duration) (bool, error) {
	locked, err := RedisClient.SetNX(ctx, "lock:acl-cache-refresh", "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire refresh lock: %w", err)
	}
	logger.Debug("Refresh lock acquisition attempt", zap.Bool("locked", locked))
	return locked, nil
}

func ReleaseRefreshLock(ctx context.Context) error {
	err := RedisClient.Del(ctx, "lock:acl-cache-refresh").Err()
	if err != nil {
		return fmt.Errorf("failed to release refresh lock: %w", err)
	}
	logger.Debug("Refresh lock released")
	return nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}
