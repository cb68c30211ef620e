package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"studytrack/internal/apperr"
	"studytrack/internal/models"
)

const userColumns = `id, username, email, password_hash, selected_exam, tracking_mode, current_streak,
	last_activity_date, target_date, is_public, bio, created_at`

func (q *Queries) CreateUser(ctx context.Context, username, email, passwordHash string) (models.User, error) {
	var u models.User
	err := q.get(ctx, &u, `INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3)
		RETURNING `+userColumns, username, email, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.User{}, apperr.Conflict("user already exists", err)
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (q *Queries) UserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := q.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	return u, translate("user", err)
}

func (q *Queries) UserByID(ctx context.Context, id int) (models.User, error) {
	var u models.User
	err := q.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return u, translate("user", err)
}

// PreferencesUpdate holds the user-editable profile fields. Nil fields are
// left untouched; ClearTargetDate sets target_date to NULL.
type PreferencesUpdate struct {
	SelectedExam    *string
	TrackingMode    *models.TrackingMode
	IsPublic        *bool
	Bio             *string
	TargetDate      *time.Time
	ClearTargetDate bool
}

func (p PreferencesUpdate) empty() bool {
	return p.SelectedExam == nil && p.TrackingMode == nil && p.IsPublic == nil &&
		p.Bio == nil && p.TargetDate == nil && !p.ClearTargetDate
}

func (q *Queries) UpdatePreferences(ctx context.Context, userID int, p PreferencesUpdate) (models.User, error) {
	if p.empty() {
		return q.UserByID(ctx, userID)
	}

	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if p.SelectedExam != nil {
		add("selected_exam", *p.SelectedExam)
	}
	if p.TrackingMode != nil {
		add("tracking_mode", string(*p.TrackingMode))
	}
	if p.IsPublic != nil {
		add("is_public", *p.IsPublic)
	}
	if p.Bio != nil {
		add("bio", *p.Bio)
	}
	switch {
	case p.ClearTargetDate:
		sets = append(sets, "target_date=NULL")
	case p.TargetDate != nil:
		add("target_date", *p.TargetDate)
	}

	args = append(args, userID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id=$%d RETURNING %s",
		strings.Join(sets, ", "), len(args), userColumns)

	var u models.User
	if err := q.get(ctx, &u, query, args...); err != nil {
		return models.User{}, translate("user", err)
	}
	return u, nil
}

// StreakForUpdate locks the user row until the surrounding transaction ends.
func (q *Queries) StreakForUpdate(ctx context.Context, userID int) (models.Streak, error) {
	var s models.Streak
	err := q.get(ctx, &s, `SELECT current_streak, last_activity_date FROM users WHERE id=$1 FOR UPDATE`, userID)
	return s, translate("user", err)
}

func (q *Queries) SaveStreak(ctx context.Context, userID int, s models.Streak) error {
	res, err := q.ext.ExecContext(ctx,
		`UPDATE users SET current_streak=$1, last_activity_date=$2 WHERE id=$3`,
		s.Current, s.LastActivityDate, userID)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return rowsAffected("user", res)
}
