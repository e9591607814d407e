package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisNotifier publishes notifications as JSON on a Redis channel so other
// processes (a dashboard, a mailer) can pick them up.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisNotifier(rdb *redis.Client, channel string, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisNotifier{rdb: rdb, channel: channel, logger: logger}
}

// Publish sends n and reports the delivery error, if any.
func (r *RedisNotifier) Publish(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", r.channel, err)
	}
	return nil
}

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) {
	if err := r.Publish(ctx, n); err != nil {
		r.logger.Warn("notification not published", "channel", r.channel, "error", err)
	}
}
