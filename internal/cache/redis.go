package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opencivic/pulso/config"
)

const redisKeyPrefix = "pulso:cache:"

// RedisStore keeps snapshots in redis so several replicas share one cache.
// Logical expiry lives inside the entry; the redis key is retained well past
// the TTL so stale reads keep working during upstream outages.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Host, cfg.Port, err)
	}
	return &RedisStore{client: client, now: time.Now}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, bool) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		return Entry{}, false, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false, false
	}
	if entry.Expired(s.now()) {
		return entry, false, true
	}
	return entry, true, false
}

func (s *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	now := s.now()
	entry := Entry{Key: key, Payload: payload, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+key, raw, retention(ttl)).Err()
}

func (s *RedisStore) Invalidate(ctx context.Context, key string) error {
	if key != "" {
		return s.client.Del(ctx, redisKeyPrefix+key).Err()
	}
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		stats.Size++
		stats.Keys = append(stats.Keys, iter.Val()[len(redisKeyPrefix):])
		if n, err := s.client.StrLen(ctx, iter.Val()).Result(); err == nil {
			stats.ApproxBytes += n
		}
	}
	return stats, iter.Err()
}

// retention keeps expired entries readable for a while without letting the
// keyspace grow forever.
func retention(ttl time.Duration) time.Duration {
	r := ttl * 10
	if r < time.Hour {
		r = time.Hour
	}
	return r
}
