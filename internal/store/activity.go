package store

import (
	"context"
	"fmt"

	"studytrack/internal/models"
)

const (
	activityColumns = `id, user_id, topic_id, subject_id, minutes_logged, modules_logged, created_at`

	DefaultLogLimit = 50
	MaxLogLimit     = 200
)

func (q *Queries) InsertActivityLog(ctx context.Context, l models.ActivityLog) (models.ActivityLog, error) {
	var out models.ActivityLog
	err := q.get(ctx, &out, `INSERT INTO activity_logs (user_id, topic_id, subject_id, minutes_logged, modules_logged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+activityColumns,
		l.UserID, l.TopicID, l.SubjectID, l.MinutesLogged, l.ModulesLogged, l.CreatedAt)
	return out, translate("activity log", err)
}

// ActivityLogForUpdate reads and locks one of userID's logs. Logs owned by
// other users are reported as not found.
func (q *Queries) ActivityLogForUpdate(ctx context.Context, userID, logID int) (models.ActivityLog, error) {
	var l models.ActivityLog
	err := q.get(ctx, &l, `SELECT `+activityColumns+` FROM activity_logs WHERE id=$1 AND user_id=$2 FOR UPDATE`,
		logID, userID)
	return l, translate("activity log", err)
}

func (q *Queries) UpdateActivityLogAmounts(ctx context.Context, logID, minutes, modules int) (models.ActivityLog, error) {
	var l models.ActivityLog
	err := q.get(ctx, &l, `UPDATE activity_logs SET minutes_logged=$1, modules_logged=$2 WHERE id=$3
		RETURNING `+activityColumns, minutes, modules, logID)
	return l, translate("activity log", err)
}

// ListActivityLogs returns the newest logs first. limit is clamped to
// [1, MaxLogLimit]; zero means DefaultLogLimit.
func (q *Queries) ListActivityLogs(ctx context.Context, userID, limit int) ([]models.ActivityLog, error) {
	switch {
	case limit <= 0:
		limit = DefaultLogLimit
	case limit > MaxLogLimit:
		limit = MaxLogLimit
	}
	logs := []models.ActivityLog{}
	err := q.selectAll(ctx, &logs, `SELECT `+activityColumns+` FROM activity_logs
		WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return logs, nil
}
