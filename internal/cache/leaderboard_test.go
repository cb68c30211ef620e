package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"studytrack/internal/models"
)

var board = []models.UserCard{{ID: 2, Username: "ravi", CurrentStreak: 9}, {ID: 1, Username: "asha", CurrentStreak: 4}}

func countingLoad(calls *int, cards []models.UserCard, err error) LoadFunc {
	return func(context.Context) ([]models.UserCard, error) {
		*calls++
		return cards, err
	}
}

func TestNoopLeaderboardLoadsEveryTime(t *testing.T) {
	c := NoopLeaderboard()
	calls := 0
	for range 2 {
		got, err := c.Fetch(context.Background(), countingLoad(&calls, board, nil))
		require.NoError(t, err)
		assert.Equal(t, board, got)
	}
	assert.Equal(t, 2, calls)
}

func TestRedisLeaderboardFallsBackWhenUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	c := NewRedisLeaderboard(rdb, time.Minute, zap.NewNop())

	calls := 0
	got, err := c.Fetch(context.Background(), countingLoad(&calls, board, nil))
	require.NoError(t, err)
	assert.Equal(t, board, got)
	assert.Equal(t, 1, calls)

	boom := errors.New("db down")
	_, err = c.Fetch(context.Background(), countingLoad(&calls, nil, boom))
	assert.ErrorIs(t, err, boom)
	c.Invalidate(context.Background())
}

func TestRedisLeaderboardCachesUntilInvalidated(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis cache tests")
	}
	ctx := context.Background()
	rdb, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer rdb.Close()

	c := NewRedisLeaderboard(rdb, time.Minute, zap.NewNop())
	c.Invalidate(ctx)

	calls := 0
	for range 3 {
		got, err := c.Fetch(ctx, countingLoad(&calls, board, nil))
		require.NoError(t, err)
		assert.Equal(t, board, got)
	}
	assert.Equal(t, 1, calls)

	c.Invalidate(ctx)
	_, err = c.Fetch(ctx, countingLoad(&calls, board, nil))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	c.Invalidate(ctx)
}

func TestRedisLeaderboardDropsReloadRacingInvalidate(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis cache tests")
	}
	ctx := context.Background()
	rdb, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer rdb.Close()

	c := NewRedisLeaderboard(rdb, time.Minute, zap.NewNop())
	c.Invalidate(ctx)

	calls := 0
	stale := func(ctx context.Context) ([]models.UserCard, error) {
		calls++
		c.Invalidate(ctx)
		return board[:1], nil
	}
	got, err := c.Fetch(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, board[:1], got)

	got, err = c.Fetch(ctx, countingLoad(&calls, board, nil))
	require.NoError(t, err)
	assert.Equal(t, board, got)
	assert.Equal(t, 2, calls)
	c.Invalidate(ctx)
}
