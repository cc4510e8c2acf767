package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "perdecomp:card:"

// CardCache keeps rendered snapshot cards in front of the snapshot table.
type CardCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewCardCache(addr string, ttl time.Duration) (*CardCache, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &CardCache{rdb: rdb, ttl: ttl}, nil
}

// Get returns the cached card of a client, or nil when there is none.
func (c *CardCache) Get(ctx context.Context, clientID string) ([]byte, error) {
	raw, err := c.rdb.Get(ctx, Key(clientID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *CardCache) Set(ctx context.Context, clientID string, card []byte) error {
	return c.rdb.Set(ctx, Key(clientID), card, c.ttl).Err()
}

func (c *CardCache) Delete(ctx context.Context, clientID string) error {
	return c.rdb.Del(ctx, Key(clientID)).Err()
}

func (c *CardCache) Close() error {
	return c.rdb.Close()
}

func Key(clientID string) string {
	return keyPrefix + clientID
}
