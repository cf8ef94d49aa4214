// Package cache is a Redis cache-aside layer for debate metadata.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lorenzotomasdiez/agora/internal/debate"
	"github.com/lorenzotomasdiez/agora/internal/logging"
)

// DebateTTL bounds how long a debate stays cached.
const DebateTTL = 10 * time.Minute

// DebateCache caches GET /debates/{id} responses. With a nil client every
// operation is a no-op.
type DebateCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// New connects to redisURL. An empty URL, a bad URL or a failed ping all
// yield a disabled cache.
func New(ctx context.Context, redisURL string) *DebateCache {
	log := logging.Component("cache")
	c := &DebateCache{ttl: DebateTTL, log: log}
	if redisURL == "" {
		log.Debug().Msg("redis: no URL configured, caching disabled")
		return c
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return c
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		rdb.Close()
		return c
	}

	log.Debug().Msg("redis: connected, caching enabled")
	c.rdb = rdb
	return c
}

// Enabled reports whether a client is attached.
func (c *DebateCache) Enabled() bool { return c != nil && c.rdb != nil }

func debateKey(id string) string { return "agora:debate:" + id }

// GetDebate returns a cached debate. Misses and errors both report false.
func (c *DebateCache) GetDebate(ctx context.Context, id string) (*debate.Debate, bool) {
	if !c.Enabled() {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, debateKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Msg("redis get failed")
		}
		return nil, false
	}
	var d debate.Debate
	if err := json.Unmarshal(data, &d); err != nil {
		c.log.Warn().Err(err).Msg("corrupt cached debate")
		return nil, false
	}
	return &d, true
}

// PutDebate stores d. Failures are logged and otherwise ignored.
func (c *DebateCache) PutDebate(ctx context.Context, d *debate.Debate) {
	if !c.Enabled() || d == nil {
		return
	}
	b, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, debateKey(d.ID), b, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("redis set failed")
	}
}

// Invalidate drops a cached debate.
func (c *DebateCache) Invalidate(ctx context.Context, id string) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Del(ctx, debateKey(id)).Err()
}

// Close releases the client.
func (c *DebateCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
