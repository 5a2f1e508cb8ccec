package cache

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisPrefix    = "readzone:cache:"
	redisScanCount = 200
)

type RedisStore struct {
	rdb redis.UniversalClient
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.Wrap(s.rdb.Del(ctx, redisPrefix+key).Err(), "redis del")
	}
	return errors.Wrap(s.rdb.Set(ctx, redisPrefix+key, value, ttl).Err(), "redis set")
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return errors.Wrap(s.rdb.Del(ctx, redisPrefix+key).Err(), "redis del")
}

func (s *RedisStore) DeletePattern(ctx context.Context, re *regexp.Regexp) (int, error) {
	return s.deleteWhere(ctx, func(key string) bool { return re.MatchString(key) })
}

func (s *RedisStore) Clear(ctx context.Context) (int, error) {
	return s.deleteWhere(ctx, func(string) bool { return true })
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	err := s.scan(ctx, func(keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

func (s *RedisStore) deleteWhere(ctx context.Context, match func(key string) bool) (int, error) {
	n := 0
	err := s.scan(ctx, func(keys []string) error {
		del := keys[:0]
		for _, k := range keys {
			if match(strings.TrimPrefix(k, redisPrefix)) {
				del = append(del, k)
			}
		}
		if len(del) == 0 {
			return nil
		}
		removed, err := s.rdb.Del(ctx, del...).Result()
		if err != nil {
			return errors.Wrap(err, "redis del")
		}
		n += int(removed)
		return nil
	})
	return n, err
}

func (s *RedisStore) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, redisPrefix+"*", redisScanCount).Result()
		if err != nil {
			return errors.Wrap(err, "redis scan")
		}
		if err := fn(keys); err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
