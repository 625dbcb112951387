package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// admitScript trims the window, counts what is left and records the attempt
// only when under the limit, all inside one script so concurrent callers
// cannot both take the last slot. Scores are unix milliseconds.
//
// KEYS[1] key; ARGV now, exclusive window start, limit, member, ttl ms
// Returns {admitted, count before this attempt, oldest score or -1}
var admitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[2])
local count = redis.call('ZCARD', key)
local admitted = 0
if count < limit then
  redis.call('ZADD', key, ARGV[1], ARGV[4])
  admitted = 1
end
if ttl > 0 then
  redis.call('PEXPIRE', key, ttl)
end

local oldest = -1
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if #first > 0 then
  oldest = tonumber(first[2])
end
return {admitted, count, oldest}
`)

// RateLimitRepository keeps request timestamps per identifier in Redis
// sorted sets so a sliding window can be counted.
type RateLimitRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRateLimitRepository creates a new rate limit repository. Keys expire
// after ttl of inactivity.
func NewRateLimitRepository(client *redis.Client, ttl time.Duration) *RateLimitRepository {
	return &RateLimitRepository{
		client: client,
		prefix: "ratelimit:",
		ttl:    ttl,
	}
}

// Admit records an attempt at `at` when fewer than limit attempts fall inside
// the window ending there. count is the number of earlier attempts in the
// window; oldest is the earliest attempt kept, this one included (zero when
// the window is empty).
func (r *RateLimitRepository) Admit(ctx context.Context, identifier string, limit int, window time.Duration, at time.Time) (bool, int, time.Time, error) {
	if window <= 0 {
		return false, 0, time.Time{}, errors.New("window must be positive")
	}
	key := r.prefix + identifier
	member := strconv.FormatInt(at.UnixNano(), 10) + "-" + uuid.NewString()

	start := "(" + strconv.FormatInt(at.Add(-window).UnixMilli(), 10)

	res, err := admitScript.Run(ctx, r.client, []string{key},
		at.UnixMilli(), start, limit, member, r.ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("redis rate limit script: %w", err)
	}
	if len(res) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("redis rate limit script: unexpected reply %v", res)
	}

	var oldest time.Time
	if res[2] >= 0 {
		oldest = time.UnixMilli(res[2])
	}
	return res[0] == 1, int(res[1]), oldest, nil
}
