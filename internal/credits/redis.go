// internal/credits/redis.go
package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKey is the hash holding usage per address.
const RedisKey = "adjudicator:credits"

// RedisLedger keeps usage in a Redis hash, for deployments running several
// server processes against one limit.
type RedisLedger struct {
	client *redis.Client
	limit  float64
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string, limit float64) (*RedisLedger, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisLedger{client: client, limit: limit}, nil
}

func (l *RedisLedger) CanUse(ctx context.Context, ip string, amount float64) (bool, error) {
	used, err := l.client.HGet(ctx, RedisKey, ip).Float64()
	if errors.Is(err, redis.Nil) {
		used, err = 0, nil
	}
	if err != nil {
		return false, err
	}
	return used+amount <= l.limit, nil
}

func (l *RedisLedger) AddUsage(ctx context.Context, ip string, amount float64) (float64, error) {
	return l.client.HIncrByFloat(ctx, RedisKey, ip, amount).Result()
}

func (l *RedisLedger) Reset(ctx context.Context) (int64, error) {
	var n *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		n = p.HLen(ctx, RedisKey)
		p.Del(ctx, RedisKey)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n.Val(), nil
}

// Close closes the Redis connection.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
