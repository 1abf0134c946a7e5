package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Redis bundles the client and the lock client built on it.
// A nil *Redis is valid and turns every call into a no-op.
type Redis struct {
	Client *redis.Client
	Locker *redislock.Client
}

// ConnectRedis dials REDIS_ADDRESS, retrying up to REDIS_CONNECT_ATTEMPTS times (default 3).
// Redis is optional: on failure it returns nil and the caller runs without cache and lock.
func ConnectRedis(ctx context.Context) *Redis {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		log.Printf("REDIS_ADDRESS not set; running without redis")
		return nil
	}

	attempts := intFromEnv("REDIS_CONNECT_ATTEMPTS", 3)
	for attempt := 1; attempt <= attempts; attempt++ {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
			PoolSize: 20,
		})
		err := rdb.Ping(ctx).Err()
		if err == nil {
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, redisAddr)
			return NewRedis(rdb)
		}
		_ = rdb.Close()
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, redisAddr, err, sleep)
		time.Sleep(sleep)
	}
	log.Printf("giving up on redis at %s; running without redis", redisAddr)
	return nil
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{Client: rdb, Locker: redislock.New(rdb)}
}

// GetObject decodes the JSON stored under key into dest. found is false on a cache miss.
func (r *Redis) GetObject(ctx context.Context, key string, dest interface{}) (bool, error) {
	if r == nil || r.Client == nil {
		return false, nil
	}
	val, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) SetObject(ctx context.Context, key string, obj interface{}, exp time.Duration) error {
	if r == nil || r.Client == nil {
		return nil
	}
	objInByte, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key, objInByte, exp).Err()
}

func (r *Redis) RemoveKey(ctx context.Context, keys ...string) error {
	if r == nil || r.Client == nil || len(keys) == 0 {
		return nil
	}
	return r.Client.Del(ctx, keys...).Err()
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
