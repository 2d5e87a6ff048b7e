package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hailam/repertoire/internal/logger"
	"github.com/hailam/repertoire/internal/repertoire"
)

const (
	backendRedis  = "redis"
	keyPrefix     = "repertoire:session:"
	maxTxAttempts = 8
)

// RedisCache keeps recommended sets in redis so several server processes
// share a session. Mark-played updates run in a WATCH transaction and retry
// when another request touched the session first.
type RedisCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisCache connects to addr and checks the connection.
func NewRedisCache(addr string, ttl time.Duration, log *logger.Logger) (*RedisCache, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
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

	return NewRedisCacheWithClient(rdb, ttl, log), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(rdb *goredis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	return &RedisCache{
		log: logger.OrNop(log).With("service", "RedisSessionCache"),
		rdb: rdb,
		ttl: ttl,
	}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Get returns the session's set. An undecodable entry is deleted and
// reported as a miss.
func (c *RedisCache) Get(ctx context.Context, sessionID string) ([]repertoire.PositionGroup, bool, error) {
	raw, err := c.rdb.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		recordLookup(backendRedis, false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get session: %w", err)
	}

	var groups []repertoire.PositionGroup
	if err := json.Unmarshal(raw, &groups); err != nil {
		// A corrupt entry is treated as a miss and recomputed.
		c.log.Warn("dropping undecodable session entry", "session_id", sessionID, "error", err)
		_ = c.rdb.Del(ctx, key(sessionID)).Err()
		recordLookup(backendRedis, false)
		return nil, false, nil
	}
	if groups == nil {
		groups = []repertoire.PositionGroup{}
	}
	recordLookup(backendRedis, true)
	return groups, true, nil
}

// Set stores groups as the session's set with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, sessionID string, groups []repertoire.PositionGroup) error {
	if groups == nil {
		groups = []repertoire.PositionGroup{}
	}
	raw, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := c.rdb.Set(ctx, key(sessionID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// MarkPlayed flags the edge as played and prunes finished lines, deleting
// the key once nothing is left.
func (c *RedisCache) MarkPlayed(ctx context.Context, sessionID string, edgeID int64) error {
	k := key(sessionID)
	exhausted := false

	txf := func(tx *goredis.Tx) error {
		exhausted = false
		raw, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		encoded, done, err := markPlayedPayload(raw, edgeID)
		if err != nil {
			return err
		}
		exhausted = done

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if exhausted {
				pipe.Del(ctx, k)
				return nil
			}
			pipe.Set(ctx, k, encoded, c.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := c.rdb.Watch(ctx, txf, k)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis mark played: %w", err)
		}
		cacheMarks.WithLabelValues(backendRedis).Inc()
		if exhausted {
			cacheExhausted.WithLabelValues(backendRedis).Inc()
		}
		return nil
	}
	return fmt.Errorf("redis mark played: session %s kept changing", sessionID)
}

// markPlayedPayload applies a mark to a stored session value. It returns the
// value to write back, or exhausted when nothing is left and the key should
// be deleted.
func markPlayedPayload(raw []byte, edgeID int64) (encoded []byte, exhausted bool, err error) {
	var groups []repertoire.PositionGroup
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, false, fmt.Errorf("decode session: %w", err)
	}
	groups = repertoire.MarkPlayed(groups, edgeID)
	if len(groups) == 0 {
		return nil, true, nil
	}
	if encoded, err = json.Marshal(groups); err != nil {
		return nil, false, fmt.Errorf("encode session: %w", err)
	}
	return encoded, false, nil
}

// Clear forgets the session.
func (c *RedisCache) Clear(ctx context.Context, sessionID string) error {
	if err := c.rdb.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}

// Close releases the redis client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
