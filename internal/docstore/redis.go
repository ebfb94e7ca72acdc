// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisNotifier relays changes through a Redis pub/sub channel so that
// every server process sharing the database sees every write. Changes are
// delivered to this process's subscribers directly; messages carrying this
// process's origin are skipped when they come back from Redis.
type RedisNotifier struct {
	client  *redis.Client
	pubsub  *redis.PubSub
	channel string
	origin  string
	local   *LocalNotifier
	logger  *slog.Logger
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// redisMessage is the wire form of a Change.
type redisMessage struct {
	Origin string `json:"origin"`
	Change
}

// RedisNotifierOptions configures the Redis notifier.
type RedisNotifierOptions struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string

	// Prefix is prepended to the channel name (e.g., "aitasol:")
	Prefix string

	// ConnectTimeout bounds the initial ping.
	ConnectTimeout time.Duration

	// PoolSize is the maximum number of connections (0 = use default)
	PoolSize int
}

// DefaultRedisNotifierOptions returns sensible defaults.
func DefaultRedisNotifierOptions() RedisNotifierOptions {
	return RedisNotifierOptions{
		Prefix:         "aitasol:",
		ConnectTimeout: 5 * time.Second,
		PoolSize:       10,
	}
}

// NewRedisNotifier connects to Redis and starts relaying the change channel.
func NewRedisNotifier(opts RedisNotifierOptions, logger *slog.Logger) (*RedisNotifier, error) {
	if opts.URL == "" {
		return nil, errors.New("redis URL is required")
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	if opts.PoolSize > 0 {
		redisOpts.PoolSize = opts.PoolSize
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	channel := opts.Prefix + "changes"
	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}

	return newRedisNotifier(client, pubsub, channel, logger), nil
}

// newRedisNotifier wraps a connected client. The relay only runs when
// pubsub is set.
func newRedisNotifier(client *redis.Client, pubsub *redis.PubSub, channel string, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &RedisNotifier{
		client:  client,
		pubsub:  pubsub,
		channel: channel,
		origin:  uuid.NewString(),
		local:   NewLocalNotifier(),
		logger:  logger,
	}
	if pubsub != nil {
		n.wg.Add(1)
		go n.relay()
	}
	return n
}

// Publish delivers c to local subscribers, then sends it to the other
// processes. A Redis error is returned after local delivery.
func (n *RedisNotifier) Publish(ctx context.Context, c Change) error {
	if n.closed.Load() {
		return errors.New("notifier closed")
	}
	n.local.dispatch(c)

	payload, err := json.Marshal(redisMessage{Origin: n.origin, Change: c})
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing change: %w", err)
	}
	return nil
}

// Subscribe registers fn for changes received from Redis.
func (n *RedisNotifier) Subscribe(fn func(Change)) func() {
	return n.local.Subscribe(fn)
}

// Ping checks the Redis connection.
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

// Close stops relaying and closes the Redis connection.
func (n *RedisNotifier) Close() error {
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if n.pubsub != nil {
		err = n.pubsub.Close()
	}
	n.wg.Wait()
	_ = n.local.Close()
	if cerr := n.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func (n *RedisNotifier) relay() {
	defer n.wg.Done()

	for msg := range n.pubsub.Channel() {
		n.receive(msg.Payload)
	}
}

// receive dispatches a change published by another process.
func (n *RedisNotifier) receive(payload string) {
	var m redisMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		n.logger.Warn("ignoring malformed change message", "channel", n.channel, "error", err)
		return
	}
	if m.Origin == n.origin {
		return
	}
	n.local.dispatch(m.Change)
}

var (
	_ Notifier = (*LocalNotifier)(nil)
	_ Notifier = (*RedisNotifier)(nil)
	_ Store    = (*SQLStore)(nil)
)
