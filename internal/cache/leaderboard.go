package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"studytrack/internal/models"
)

const (
	leaderboardKey = "studytrack:leaderboard"
	// leaderboardGenKey is bumped by every invalidation. A reload only
	// stores its result if the generation it started under is still current.
	leaderboardGenKey = "studytrack:leaderboard:gen"
)

var errStaleReload = errors.New("leaderboard changed during reload")

type LoadFunc func(ctx context.Context) ([]models.UserCard, error)

// Leaderboard caches the public streak ranking. Implementations must fall
// back to load when the cache is unavailable.
type Leaderboard interface {
	Fetch(ctx context.Context, load LoadFunc) ([]models.UserCard, error)
	Invalidate(ctx context.Context)
}

type noopLeaderboard struct{}

// NoopLeaderboard always loads from the database.
func NoopLeaderboard() Leaderboard { return noopLeaderboard{} }

func (noopLeaderboard) Fetch(ctx context.Context, load LoadFunc) ([]models.UserCard, error) {
	return load(ctx)
}

func (noopLeaderboard) Invalidate(context.Context) {}

type redisLeaderboard struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewRedisLeaderboard(rdb *redis.Client, ttl time.Duration, log *zap.Logger) Leaderboard {
	return &redisLeaderboard{rdb: rdb, ttl: ttl, log: log.With(zap.String("component", "leaderboard_cache"))}
}

// Dial connects to addr and verifies it answers.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (c *redisLeaderboard) Fetch(ctx context.Context, load LoadFunc) ([]models.UserCard, error) {
	raw, err := c.rdb.Get(ctx, leaderboardKey).Bytes()
	switch {
	case err == nil:
		var cards []models.UserCard
		decodeErr := json.Unmarshal(raw, &cards)
		if decodeErr == nil {
			return cards, nil
		}
		c.log.Warn("bad cached leaderboard payload", zap.Error(decodeErr))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("leaderboard cache read failed", zap.Error(err))
	}

	gen, genErr := c.generation(ctx, c.rdb)
	cards, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		c.log.Warn("leaderboard generation read failed", zap.Error(genErr))
		return cards, nil
	}
	payload, err := json.Marshal(cards)
	if err != nil {
		return cards, nil
	}
	if err := c.store(ctx, gen, payload); err != nil && !errors.Is(err, errStaleReload) {
		c.log.Warn("leaderboard cache write failed", zap.Error(err))
	}
	return cards, nil
}

// store writes payload only while the generation still equals gen.
func (c *redisLeaderboard) store(ctx context.Context, gen int64, payload []byte) error {
	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := c.generation(ctx, tx)
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleReload
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, leaderboardKey, payload, c.ttl)
			return nil
		})
		return err
	}, leaderboardGenKey)
	if errors.Is(err, redis.TxFailedErr) {
		return errStaleReload
	}
	return err
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *redisLeaderboard) generation(ctx context.Context, r stringGetter) (int64, error) {
	gen, err := r.Get(ctx, leaderboardGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *redisLeaderboard) Invalidate(ctx context.Context) {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, leaderboardGenKey)
		p.Del(ctx, leaderboardKey)
		return nil
	})
	if err != nil {
		c.log.Warn("leaderboard cache invalidate failed", zap.Error(err))
	}
}
