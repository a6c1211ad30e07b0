package orderlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Protocol-Lattice/boutique-agents/src/order"
)

// DefaultKey is the Redis list orders are pushed to.
const DefaultKey = "boutique:orders"

// RedisLog appends orders as JSON to a Redis list.
type RedisLog struct {
	client *redis.Client
	key    string
}

func NewRedisLog(client *redis.Client, key string) *RedisLog {
	if key == "" {
		key = DefaultKey
	}
	return &RedisLog{client: client, key: key}
}

func (l *RedisLog) Append(ctx context.Context, o order.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	if err := l.client.RPush(ctx, l.key, data).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", l.key, err)
	}
	return nil
}

func (l *RedisLog) All(ctx context.Context) ([]order.Order, error) {
	values, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", l.key, err)
	}
	orders := make([]order.Order, 0, len(values))
	for _, v := range values {
		var o order.Order
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, fmt.Errorf("decode order from %s: %w", l.key, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (l *RedisLog) Close(context.Context) error { return l.client.Close() }
