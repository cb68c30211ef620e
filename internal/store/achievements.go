package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studytrack/internal/models"
)

const achievementColumns = `a.id, a.name, a.description, a.icon, a.requirement_type, a.requirement_value`

func (q *Queries) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	achievements := []models.Achievement{}
	err := q.selectAll(ctx, &achievements, `SELECT `+achievementColumns+` FROM achievements a
		ORDER BY a.requirement_type, a.requirement_value, a.id`)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return achievements, nil
}

// AchievementStats sums the user's ledger. The LEFT JOIN keeps users without
// logs at zero; a missing user is not found.
func (q *Queries) AchievementStats(ctx context.Context, userID int) (models.AchievementStats, error) {
	var st models.AchievementStats
	err := q.get(ctx, &st, `SELECT u.current_streak,
			COALESCE(SUM(l.minutes_logged), 0) AS total_minutes,
			COALESCE(SUM(l.modules_logged), 0) AS total_modules
		FROM users u LEFT JOIN activity_logs l ON l.user_id = u.id
		WHERE u.id=$1
		GROUP BY u.id, u.current_streak`, userID)
	return st, translate("user", err)
}

func (q *Queries) UnearnedAchievements(ctx context.Context, userID int) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := q.selectAll(ctx, &achievements, `SELECT `+achievementColumns+` FROM achievements a
		WHERE NOT EXISTS (
			SELECT 1 FROM user_achievements ua WHERE ua.achievement_id = a.id AND ua.user_id=$1
		)
		ORDER BY a.requirement_value, a.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list unearned achievements: %w", err)
	}
	return achievements, nil
}

// AwardAchievement reports whether this call inserted the row. A pair that
// already exists is not an error.
func (q *Queries) AwardAchievement(ctx context.Context, userID, achievementID int, at time.Time) (bool, error) {
	var id int
	err := q.get(ctx, &id, `INSERT INTO user_achievements (user_id, achievement_id, earned_at) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING RETURNING achievement_id`, userID, achievementID, at)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, translate("achievement", err)
	}
	return true, nil
}

func (q *Queries) EarnedAchievements(ctx context.Context, userID int) ([]models.EarnedAchievement, error) {
	earned := []models.EarnedAchievement{}
	err := q.selectAll(ctx, &earned, `SELECT `+achievementColumns+`, ua.earned_at
		FROM achievements a JOIN user_achievements ua ON ua.achievement_id = a.id
		WHERE ua.user_id=$1 ORDER BY ua.earned_at DESC, a.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list earned achievements: %w", err)
	}
	return earned, nil
}
