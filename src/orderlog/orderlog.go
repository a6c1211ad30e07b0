// Package orderlog provides durable order.Log sinks selected by URL.
package orderlog

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Protocol-Lattice/boutique-agents/src/order"
)

// Sink is an order.Log that holds a connection.
type Sink interface {
	order.Log
	Close(ctx context.Context) error
}

type memorySink struct{ *order.MemoryLog }

func (memorySink) Close(context.Context) error { return nil }

// Open selects a sink by URL scheme: empty or memory://, redis://,
// postgres:// (postgresql://), mongodb:// (mongodb+srv://).
func Open(ctx context.Context, raw string) (Sink, error) {
	if strings.TrimSpace(raw) == "" {
		return memorySink{order.NewMemoryLog()}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse order log url: %w", err)
	}
	switch u.Scheme {
	case "memory":
		return memorySink{order.NewMemoryLog()}, nil
	case "redis", "rediss":
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return NewRedisLog(redis.NewClient(opts), u.Query().Get("key")), nil
	case "postgres", "postgresql":
		return NewPostgresLog(ctx, raw, DefaultTable)
	case "mongodb", "mongodb+srv":
		return NewMongoLog(ctx, raw, mongoDatabase(u), DefaultCollection)
	default:
		return nil, fmt.Errorf("unsupported order log scheme %q", u.Scheme)
	}
}

func mongoDatabase(u *url.URL) string {
	if db := strings.Trim(u.Path, "/"); db != "" {
		return db
	}
	return "boutique"
}
