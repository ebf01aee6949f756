// Package redis wraps the Redis operations the responder shares across
// processes: per-fingerprint resolution locks, notification cool-down
// markers and the pending-notification retry queue.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// Client wraps Redis operations for the responder.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func lockKey(fingerprint string) string {
	return fmt.Sprintf("resolution_lock:%s", fingerprint)
}

func cooldownKey(fingerprint string) string {
	return fmt.Sprintf("notify_cooldown:%s", fingerprint)
}

const pendingNotifyKey = "pending_notifications"

// AcquireResolutionLock attempts to take the cross-process resolution lock
// for a fingerprint.
func (c *Client) AcquireResolutionLock(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, lockKey(fingerprint), "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// ReleaseResolutionLock releases the resolution lock.
func (c *Client) ReleaseResolutionLock(ctx context.Context, fingerprint string) error {
	return c.rdb.Del(ctx, lockKey(fingerprint)).Err()
}

// RefreshResolutionLock extends the TTL of a held lock.
func (c *Client) RefreshResolutionLock(ctx context.Context, fingerprint string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, lockKey(fingerprint), ttl).Err()
}

// MarkNotified records an alert for cool-down tracking.
func (c *Client) MarkNotified(ctx context.Context, fingerprint string, window time.Duration) error {
	return c.rdb.Set(ctx, cooldownKey(fingerprint), time.Now().Unix(), window).Err()
}

// InCooldown reports whether the fingerprint was alerted within the
// cool-down window.
func (c *Client) InCooldown(ctx context.Context, fingerprint string) (bool, error) {
	n, err := c.rdb.Exists(ctx, cooldownKey(fingerprint)).Result()
	if err != nil {
		return false, fmt.Errorf("exists failed: %w", err)
	}
	return n > 0, nil
}

// PushPendingNotification queues a notification for a later delivery
// attempt, scored by its next-attempt time.
func (c *Client) PushPendingNotification(ctx context.Context, n *domain.Notification, nextAttempt time.Time) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	z := redis.Z{Score: float64(nextAttempt.Unix()), Member: string(data)}
	if err := c.rdb.ZAdd(ctx, pendingNotifyKey, z).Err(); err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}
	return nil
}

// PopDueNotification pops the oldest notification whose next-attempt time
// has passed. Returns found=false when nothing is due.
func (c *Client) PopDueNotification(ctx context.Context) (*domain.Notification, bool, error) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	results, err := c.rdb.ZRangeByScore(ctx, pendingNotifyKey, &redis.ZRangeBy{
		Min: "-inf", Max: now, Offset: 0, Count: 1,
	}).Result()
	if err != nil {
		return nil, false, fmt.Errorf("zrangebyscore failed: %w", err)
	}
	if len(results) == 0 {
		return nil, false, nil
	}

	member := results[0]
	if err := c.rdb.ZRem(ctx, pendingNotifyKey, member).Err(); err != nil {
		return nil, false, fmt.Errorf("zrem failed: %w", err)
	}

	var n domain.Notification
	if err := json.Unmarshal([]byte(member), &n); err != nil {
		return nil, false, fmt.Errorf("unmarshal notification: %w", err)
	}
	return &n, true, nil
}

// PendingNotifications returns the current retry-queue depth.
func (c *Client) PendingNotifications(ctx context.Context) (int64, error) {
	return c.rdb.ZCard(ctx, pendingNotifyKey).Result()
}
