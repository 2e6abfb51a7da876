package redis

import (
	"context"
	"fmt"

	"github.com/Rrens/chatdesk/internal/config"
	"github.com/redis/go-redis/v9"
)

// Client is the connection backing a session keyspace
type Client struct {
	rdb *redis.Client
}

// NewClient connects to the configured server and verifies it answers
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	c := NewClientFromRedis(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}))

	if err := c.Ping(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewClientFromRedis wraps an existing go-redis client
func NewClientFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Ping checks the server is reachable
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
