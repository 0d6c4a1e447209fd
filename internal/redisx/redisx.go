package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("redisx: miss")

type Client struct{ Rdb *redis.Client }

func New(addr string, password string, db int) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &Client{Rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Rdb.Ping(ctx).Err()
}

func (c *Client) Close() error { return c.Rdb.Close() }

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := c.Rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

// SetNX stores val only when key is free; it reports whether it did.
func (c *Client) SetNX(ctx context.Context, key string, val string, ttl time.Duration) (bool, error) {
	return c.Rdb.SetNX(ctx, key, val, ttl).Result()
}

func (c *Client) Del(ctx context.Context, key string) error {
	return c.Rdb.Del(ctx, key).Err()
}

// Touch extends a live key; it reports false when the key is gone.
func (c *Client) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.Rdb.Expire(ctx, key, ttl).Result()
}
