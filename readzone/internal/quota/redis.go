package quota

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisPrefix = "readzone:quota:"
	redisTTL    = 48 * time.Hour
)

var incrScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if used >= tonumber(ARGV[1]) then
  return -1
end
used = redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], ARGV[2])
return used
`)

type RedisStore struct {
	rdb redis.UniversalClient
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Increment(ctx context.Context, day string, limit int) (int, bool, error) {
	used, err := incrScript.Run(ctx, s.rdb, []string{redisPrefix + day}, limit, int(redisTTL.Seconds())).Int()
	if err != nil {
		return 0, false, errors.Wrap(err, "quota incr script")
	}
	if used < 0 {
		return limit, false, nil
	}
	return used, true, nil
}

func (s *RedisStore) Used(ctx context.Context, day string, _ int) (int, error) {
	used, err := s.rdb.Get(ctx, redisPrefix+day).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "quota get")
	}
	return used, nil
}
