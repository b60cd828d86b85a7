package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "quicktalk:ratelimit:"

// incrWindow increments the counter and starts its expiry on the first hit of a window.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

// RedisWindowStore keeps windows in Redis so every instance shares one count per key.
type RedisWindowStore struct {
	client redis.UniversalClient
}

// NewRedisWindowStore returns a store using client.
func NewRedisWindowStore(client redis.UniversalClient) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

func (s *RedisWindowStore) Incr(ctx context.Context, key string, length time.Duration, now time.Time) (int64, time.Time, error) {
	res, err := incrWindow.Run(ctx, s.client, []string{redisKeyPrefix + key}, length.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis window incr: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("redis window incr: unexpected reply %v", res)
	}

	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = length
	}
	return res[0], now.Add(ttl), nil
}
