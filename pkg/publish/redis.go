// Package publish mirrors navigation snapshots to Redis so other services
// can follow a session.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/teslashibe/go-wayfind/internal/log"
	"github.com/teslashibe/go-wayfind/pkg/navigation"
	"github.com/teslashibe/go-wayfind/pkg/protocol"
)

// Config holds Redis connection settings.
type Config struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key and channel prefix
	TTL      time.Duration // Lifetime of the latest-snapshot key
}

// DefaultConfig returns a disabled local configuration.
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		Prefix: "wayfind",
		TTL:    10 * time.Minute,
	}
}

// Client is the subset of *redis.Client the publisher uses.
type Client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisPublisher is a navigation.Observer that publishes every snapshot on
// <prefix>:navigation:<venue> and keeps the latest one under
// <prefix>:navigation:<venue>:latest. OnState never blocks; snapshots are
// sent from Run and dropped when the queue is full.
type RedisPublisher struct {
	client  Client
	channel string
	key     string
	ttl     time.Duration
	logger  *slog.Logger

	queue     chan navigation.State
	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewRedisPublisher dials Redis with cfg.
func NewRedisPublisher(cfg Config, venueID string, logger *slog.Logger) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewPublisher(client, cfg, venueID, logger)
}

// NewPublisher wraps an existing client.
func NewPublisher(client Client, cfg Config, venueID string, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = log.Component("publish")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultConfig().Prefix
	}
	channel := fmt.Sprintf("%s:navigation:%s", cfg.Prefix, venueID)
	return &RedisPublisher{
		client:  client,
		channel: channel,
		key:     channel + ":latest",
		ttl:     cfg.TTL,
		logger:  logger,
		queue:   make(chan navigation.State, 32),
	}
}

// Channel returns the pub/sub channel name.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Connect checks the server is reachable.
func (p *RedisPublisher) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	p.logger.Info("redis connected", "channel", p.channel)
	return nil
}

// OnState queues a snapshot for publishing.
func (p *RedisPublisher) OnState(s navigation.State) {
	select {
	case p.queue <- s:
	default:
		p.dropped.Add(1)
	}
}

// Run publishes queued snapshots until ctx is cancelled.
func (p *RedisPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-p.queue:
			if err := p.publish(ctx, s); err != nil {
				p.failed.Add(1)
				p.logger.Warn("publish failed", "error", err)
			}
		}
	}
}

func (p *RedisPublisher) publish(ctx context.Context, s navigation.State) error {
	msg, err := protocol.NewStateMessage(s)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return err
	}
	if err := p.client.Set(ctx, p.key, data, p.ttl).Err(); err != nil {
		return err
	}
	p.published.Add(1)
	return nil
}

// Stats reports publish counters.
func (p *RedisPublisher) Stats() (published, dropped, failed uint64) {
	return p.published.Load(), p.dropped.Load(), p.failed.Load()
}

// Close closes the client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

var _ navigation.Observer = (*RedisPublisher)(nil)
