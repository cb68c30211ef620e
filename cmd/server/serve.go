package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"studytrack/internal/cache"
	"studytrack/internal/config"
	"studytrack/internal/handlers"
	mw "studytrack/internal/middleware"
	"studytrack/internal/progress"
	"studytrack/internal/services"
	"studytrack/internal/store"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := cfg.RequireServe(); err != nil {
		return err
	}

	ctx := cmd.Context()
	days, err := progress.NewDayPolicy(cfg.DayTimezone)
	if err != nil {
		return err
	}
	conn, err := openDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	st := store.New(conn)

	board, closeBoard := leaderboard(ctx, cfg, logger)
	defer closeBoard()

	tracker := services.NewTracker(services.SQLLedger(st), logger, services.WithDayPolicy(days))
	secret := []byte(cfg.JWTSecret)

	router := handlers.Router{
		Auth:         handlers.NewAuthHandler(st, secret, cfg.TokenTTL, logger),
		User:         handlers.NewUserHandler(st, board, logger),
		Syllabus:     handlers.NewSyllabusHandler(st, logger),
		Progress:     handlers.NewProgressHandler(st, tracker, board, logger),
		Dashboard:    handlers.NewDashboardHandler(st, days, logger),
		Social:       handlers.NewSocialHandler(st, board, logger),
		Achievements: handlers.NewAchievementHandler(st, logger),
		Health:       handlers.NewHealthHandler(st, logger),
		AuthMW:       mw.NewAuthMiddleware(secret),
		Log:          logger,
		CORSOrigins:  cfg.CORSOrigins,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("day_timezone", cfg.DayTimezone))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// leaderboard uses Redis when REDIS_ADDR is set and reachable, otherwise
// every read goes to Postgres.
func leaderboard(ctx context.Context, cfg config.Config, logger *zap.Logger) (cache.Leaderboard, func()) {
	if cfg.RedisAddr == "" {
		return cache.NoopLeaderboard(), func() {}
	}
	rdb, err := cache.Dial(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable; leaderboard cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		return cache.NoopLeaderboard(), func() {}
	}
	logger.Info("leaderboard cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.LeaderboardTTL))
	return cache.NewRedisLeaderboard(rdb, cfg.LeaderboardTTL, logger), func() { _ = rdb.Close() }
}
