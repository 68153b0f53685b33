// Package redis wraps the Redis client used for sync-run event notifications
// and the replace-mode write locks.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/consultia/bonusx/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// RunsChannel carries one JSON event per completed sync run.
	RunsChannel = "sync:runs"

	// lockPrefix namespaces the per-table replace locks.
	lockPrefix = "sync:lock:"

	// DefaultLockTTL bounds how long a crashed run can hold a table lock.
	DefaultLockTTL = 10 * time.Minute
)

// RunEvent is published to RunsChannel after every sync run, successful or
// not. Consumers (the query app's websocket relay, dashboards) get the same
// shape either way.
type RunEvent struct {
	Source   string  `json:"source"`
	Table    string  `json:"table"`
	Rows     int     `json:"rows"`
	Skipped  int     `json:"skipped"`
	Duration float64 `json:"duration_seconds"`
	Error    string  `json:"error,omitempty"`
}

// Client wraps the Redis client for event notifications and sync locks.
type Client struct {
	client *redis.Client
	logger *zap.Logger
}

// NewClient creates a new Redis client using environment variables for
// configuration.
// Environment variables:
//   - REDIS_HOST: Redis host (default: "localhost")
//   - REDIS_PORT: Redis port (default: "6379")
//   - REDIS_PASSWORD: Redis password (default: "")
//   - REDIS_DB: Redis database number (default: "0")
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("REDIS_HOST", "localhost")
	port := utils.Env("REDIS_PORT", "6379")
	password := utils.Env("REDIS_PASSWORD", "")
	db := utils.EnvInt("REDIS_DB", 0)

	addr := fmt.Sprintf("%s:%s", host, port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		// Connection pool
		PoolSize:     10,
		MinIdleConns: 2,

		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", addr),
		zap.Int("db", db))

	return &Client{client: rdb, logger: logger}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Publish publishes a message to a Redis Pub/Sub channel. Best-effort:
// errors are logged but not returned so event delivery never fails a sync.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) {
	if err := c.client.Publish(ctx, channel, message).Err(); err != nil {
		c.logger.Warn("Failed to publish Redis message",
			zap.String("channel", channel),
			zap.Error(err))
	}
}

// Subscribe subscribes to one or more Redis Pub/Sub channels. The caller is
// responsible for closing the PubSub object when done.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.client.Subscribe(ctx, channels...)
}

// AcquireSyncLock takes the replace lock for a table. Returns false when
// another run holds it. The TTL releases locks left by crashed runs.
func (c *Client) AcquireSyncLock(ctx context.Context, table string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	ok, err := c.client.SetNX(ctx, lockPrefix+table, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock for %s: %w", table, err)
	}
	return ok, nil
}

// ReleaseSyncLock drops the replace lock for a table.
func (c *Client) ReleaseSyncLock(ctx context.Context, table string) {
	if err := c.client.Del(ctx, lockPrefix+table).Err(); err != nil {
		c.logger.Warn("Failed to release sync lock",
			zap.String("table", table),
			zap.Error(err))
	}
}

// Health checks if Redis is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
