// Package redis mirrors the label table into a Redis hash so several
// deployments can share labels.
//
// Graceful fallback: if Redis is unavailable, operations return an error the
// label store logs and otherwise ignores; the JSON file stays authoritative.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultLabelsKey is the hash holding imageID → label.
const DefaultLabelsKey = "labels:"

// ErrUnavailable is returned by a mirror that never connected.
var ErrUnavailable = errors.New("redis: not connected")

// Config holds Redis connection settings.
type Config struct {
	URL      string // redis://host:port/db
	Password string
	Key      string
}

// LabelMirror stores labels in a single Redis hash.
type LabelMirror struct {
	client *redis.Client
	key    string
	log    *zap.Logger
}

// Connect dials Redis and verifies the connection. A blank URL returns
// (nil, nil): the mirror is simply disabled.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*LabelMirror, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.URL == "" {
		logger.Debug("Redis URL not configured, label mirror disabled")
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3

	c := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: connect: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultLabelsKey
	}
	logger.Info("Redis label mirror connected", zap.String("addr", opts.Addr), zap.String("key", key))
	return &LabelMirror{client: c, key: key, log: logger}, nil
}

// Key returns the hash name.
func (m *LabelMirror) Key() string {
	if m == nil {
		return ""
	}
	return m.key
}

// Put writes one label.
func (m *LabelMirror) Put(ctx context.Context, imageID, label string) error {
	if m == nil || m.client == nil {
		return ErrUnavailable
	}
	if err := m.client.HSet(ctx, m.key, imageID, label).Err(); err != nil {
		return fmt.Errorf("redis: hset %s: %w", imageID, err)
	}
	return nil
}

// All reads the whole hash.
func (m *LabelMirror) All(ctx context.Context) (map[string]string, error) {
	if m == nil || m.client == nil {
		return nil, ErrUnavailable
	}
	vals, err := m.client.HGetAll(ctx, m.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: hgetall: %w", err)
	}
	return vals, nil
}

// Close closes the connection. Safe on a nil mirror.
func (m *LabelMirror) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	m.log.Info("Redis connection closed")
	return err
}
