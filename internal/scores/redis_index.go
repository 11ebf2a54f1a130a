package scores

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIndex keeps scores in a sorted set for ranking plus a per-driver
// hash with metadata.
type RedisIndex struct {
	client *redis.Client
	key    string
}

func NewRedisIndex(addr, password, key string) *RedisIndex {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisIndex{client: c, key: key}
}

// NewRedisIndexFromClient wraps an existing client.
func NewRedisIndexFromClient(c *redis.Client, key string) *RedisIndex {
	return &RedisIndex{client: c, key: key}
}

func (r *RedisIndex) Put(ctx context.Context, e Entry) error {
	if _, err := r.client.ZAdd(ctx, r.key, redis.Z{Score: e.Score, Member: e.DriverID}).Result(); err != nil {
		return fmt.Errorf("zadd %s: %w", e.DriverID, err)
	}
	return r.client.HSet(ctx, metaKey(e.DriverID), map[string]interface{}{
		"trust_score":  strconv.FormatFloat(e.Score, 'f', 1, 64),
		"review_count": e.ReviewCount,
		"updated":      e.Updated.Format(time.RFC3339),
	}).Err()
}

func (r *RedisIndex) Get(ctx context.Context, driverID string) (Entry, bool, error) {
	m, err := r.client.HGetAll(ctx, metaKey(driverID)).Result()
	if err != nil {
		return Entry{}, false, err
	}
	v, ok := m["trust_score"]
	if !ok {
		return Entry{}, false, nil
	}
	e := Entry{DriverID: driverID}
	if e.Score, err = strconv.ParseFloat(v, 64); err != nil {
		return Entry{}, false, fmt.Errorf("bad score for %s: %w", driverID, err)
	}
	if n, err := strconv.Atoi(m["review_count"]); err == nil {
		e.ReviewCount = n
	}
	if t, err := time.Parse(time.RFC3339, m["updated"]); err == nil {
		e.Updated = t
	}
	return e, true, nil
}

func (r *RedisIndex) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	res, err := r.client.ZRevRangeWithScores(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(res))
	for _, z := range res {
		id, _ := z.Member.(string)
		out = append(out, Entry{DriverID: id, Score: z.Score})
	}
	return out, nil
}

func (r *RedisIndex) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *RedisIndex) Close() error { return r.client.Close() }

func metaKey(id string) string { return "driver:meta:" + id }
