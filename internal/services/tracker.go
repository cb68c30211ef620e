package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"studytrack/internal/apperr"
	"studytrack/internal/metrics"
	"studytrack/internal/models"
	"studytrack/internal/progress"
	"studytrack/internal/store"
)

// LedgerTx is the set of statements the engine runs inside one transaction.
type LedgerTx interface {
	IncrementTopicCounters(ctx context.Context, topicID, minutes, modules int) (models.Topic, error)
	IncrementSubjectManualTime(ctx context.Context, subjectID, minutes int) (models.Subject, error)
	InsertActivityLog(ctx context.Context, l models.ActivityLog) (models.ActivityLog, error)
	ActivityLogForUpdate(ctx context.Context, userID, logID int) (models.ActivityLog, error)
	UpdateActivityLogAmounts(ctx context.Context, logID, minutes, modules int) (models.ActivityLog, error)
	StreakForUpdate(ctx context.Context, userID int) (models.Streak, error)
	SaveStreak(ctx context.Context, userID int, s models.Streak) error
	AchievementStats(ctx context.Context, userID int) (models.AchievementStats, error)
	UnearnedAchievements(ctx context.Context, userID int) ([]models.Achievement, error)
	AwardAchievement(ctx context.Context, userID, achievementID int, at time.Time) (bool, error)
	DeleteSubjectsByUser(ctx context.Context, userID int) (int64, error)
}

// Ledger runs fn atomically: any error rolls back every statement fn issued.
type Ledger interface {
	Atomic(ctx context.Context, fn func(LedgerTx) error) error
}

type sqlLedger struct {
	s *store.Store
}

// SQLLedger adapts the Postgres store to the engine.
func SQLLedger(s *store.Store) Ledger {
	return sqlLedger{s: s}
}

func (l sqlLedger) Atomic(ctx context.Context, fn func(LedgerTx) error) error {
	return l.s.Atomic(ctx, func(q *store.Queries) error { return fn(q) })
}

// Tracker turns activity into derived state: topic and subject counters,
// the streak and achievement unlocks. Every public method is one transaction.
type Tracker struct {
	ledger Ledger
	log    *zap.Logger
	now    func() time.Time
	days   progress.DayPolicy
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithDayPolicy(p progress.DayPolicy) Option {
	return func(t *Tracker) { t.days = p }
}

func NewTracker(ledger Ledger, log *zap.Logger, opts ...Option) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tracker{ledger: ledger, log: log, now: time.Now, days: progress.UTCDays()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Today is the current calendar date under the tracker's day policy.
func (t *Tracker) Today() time.Time {
	return t.days.CalendarDate(t.now())
}

type LogResult struct {
	Log             models.ActivityLog   `json:"log"`
	Topic           *models.Topic        `json:"topic,omitempty"`
	Subject         *models.Subject      `json:"subject,omitempty"`
	Streak          int                  `json:"streak"`
	StreakChanged   bool                 `json:"-"`
	NewAchievements []models.Achievement `json:"newAchievements"`
}

// LogActivity records minutes and/or modules against a topic. The counter
// update runs first so a missing topic aborts before anything is written.
func (t *Tracker) LogActivity(ctx context.Context, userID, topicID, minutes, modules int) (LogResult, error) {
	if err := checkAmounts(minutes, modules); err != nil {
		return LogResult{}, err
	}
	if minutes == 0 && modules == 0 {
		return LogResult{}, apperr.Validation("nothing to log")
	}

	now := t.now()
	var (
		res        LogResult
		transition progress.Transition
	)
	err := t.ledger.Atomic(ctx, func(tx LedgerTx) error {
		topic, err := tx.IncrementTopicCounters(ctx, topicID, minutes, modules)
		if err != nil {
			return err
		}
		entry, err := tx.InsertActivityLog(ctx, models.ActivityLog{
			UserID:        userID,
			TopicID:       &topic.ID,
			MinutesLogged: minutes,
			ModulesLogged: modules,
			CreatedAt:     now,
		})
		if err != nil {
			return err
		}
		streak, tr, err := t.recordActivity(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		unlocked, err := t.evaluate(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		res = LogResult{
			Log:             entry,
			Topic:           &topic,
			Streak:          streak.Current,
			StreakChanged:   tr.Changed(),
			NewAchievements: unlocked,
		}
		transition = tr
		return nil
	})
	if err != nil {
		return LogResult{}, fmt.Errorf("log activity: %w", err)
	}

	t.observe(userID, "topic", minutes, transition, res.NewAchievements)
	t.log.Debug("activity logged",
		zap.Int("user_id", userID),
		zap.Int("topic_id", topicID),
		zap.Int("minutes", minutes),
		zap.Int("modules", modules),
		zap.String("streak_transition", string(transition)))
	return res, nil
}

// LogManualTime credits minutes to a subject rather than a topic. Module
// thresholds are not evaluated for manual time.
func (t *Tracker) LogManualTime(ctx context.Context, userID, subjectID, minutes int) (LogResult, error) {
	if minutes <= 0 {
		return LogResult{}, apperr.Validation("minutes must be > 0")
	}
	if err := checkAmounts(minutes, 0); err != nil {
		return LogResult{}, err
	}

	now := t.now()
	var (
		res        LogResult
		transition progress.Transition
	)
	err := t.ledger.Atomic(ctx, func(tx LedgerTx) error {
		subject, err := tx.IncrementSubjectManualTime(ctx, subjectID, minutes)
		if err != nil {
			return err
		}
		entry, err := tx.InsertActivityLog(ctx, models.ActivityLog{
			UserID:        userID,
			SubjectID:     &subject.ID,
			MinutesLogged: minutes,
			CreatedAt:     now,
		})
		if err != nil {
			return err
		}
		streak, tr, err := t.recordActivity(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		unlocked, err := t.evaluate(ctx, tx, userID, now, models.RequirementStreak, models.RequirementMinutes)
		if err != nil {
			return err
		}
		res = LogResult{
			Log:             entry,
			Subject:         &subject,
			Streak:          streak.Current,
			StreakChanged:   tr.Changed(),
			NewAchievements: unlocked,
		}
		transition = tr
		return nil
	})
	if err != nil {
		return LogResult{}, fmt.Errorf("log manual time: %w", err)
	}

	t.observe(userID, "manual", minutes, transition, res.NewAchievements)
	return res, nil
}

type EditResult struct {
	Log     models.ActivityLog `json:"log"`
	Topic   *models.Topic      `json:"topic,omitempty"`
	Subject *models.Subject    `json:"subject,omitempty"`
}

// EditActivityLog replaces a log's amounts and moves the owning counter by
// the difference. Streak and achievements are left as they are.
func (t *Tracker) EditActivityLog(ctx context.Context, userID, logID, minutes, modules int) (EditResult, error) {
	if err := checkAmounts(minutes, modules); err != nil {
		return EditResult{}, err
	}

	var res EditResult
	err := t.ledger.Atomic(ctx, func(tx LedgerTx) error {
		old, err := tx.ActivityLogForUpdate(ctx, userID, logID)
		if err != nil {
			return err
		}
		dMinutes := minutes - old.MinutesLogged
		dModules := modules - old.ModulesLogged

		if old.IsManual() {
			if modules != 0 {
				return apperr.Validation("manual time entries cannot log modules")
			}
			subject, err := tx.IncrementSubjectManualTime(ctx, *old.SubjectID, dMinutes)
			if err != nil {
				return err
			}
			res.Subject = &subject
		} else {
			topic, err := tx.IncrementTopicCounters(ctx, *old.TopicID, dMinutes, dModules)
			if err != nil {
				return err
			}
			res.Topic = &topic
		}

		updated, err := tx.UpdateActivityLogAmounts(ctx, logID, minutes, modules)
		if err != nil {
			return err
		}
		res.Log = updated
		return nil
	})
	if err != nil {
		return EditResult{}, fmt.Errorf("edit activity log: %w", err)
	}
	return res, nil
}

// ResetProgress deletes the user's whole syllabus. The streak and earned
// achievements survive.
func (t *Tracker) ResetProgress(ctx context.Context, userID int) (int64, error) {
	var deleted int64
	err := t.ledger.Atomic(ctx, func(tx LedgerTx) error {
		var err error
		deleted, err = tx.DeleteSubjectsByUser(ctx, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("reset progress: %w", err)
	}
	t.log.Info("progress reset", zap.Int("user_id", userID), zap.Int64("subjects_deleted", deleted))
	return deleted, nil
}

// Evaluate unlocks whatever the user currently qualifies for and returns
// only the achievements this call awarded.
func (t *Tracker) Evaluate(ctx context.Context, userID int) ([]models.Achievement, error) {
	now := t.now()
	var unlocked []models.Achievement
	err := t.ledger.Atomic(ctx, func(tx LedgerTx) error {
		var err error
		unlocked, err = t.evaluate(ctx, tx, userID, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate achievements: %w", err)
	}
	t.observe(userID, "", 0, "", unlocked)
	return unlocked, nil
}

func checkAmounts(minutes, modules int) error {
	if minutes < 0 || modules < 0 {
		return apperr.Validation("minutes and modules must be >= 0")
	}
	if minutes > progress.MaxMinutes {
		return apperr.Validation("minutes must be <= %d", progress.MaxMinutes)
	}
	if modules > progress.MaxModules {
		return apperr.Validation("modules must be <= %d", progress.MaxModules)
	}
	return nil
}

func (t *Tracker) recordActivity(ctx context.Context, tx LedgerTx, userID int, now time.Time) (models.Streak, progress.Transition, error) {
	prev, err := tx.StreakForUpdate(ctx, userID)
	if err != nil {
		return models.Streak{}, "", err
	}
	next, tr := progress.NextStreak(prev, t.days.CalendarDate(now))
	if tr.Changed() {
		if err := tx.SaveStreak(ctx, userID, next); err != nil {
			return models.Streak{}, "", err
		}
	}
	return next, tr, nil
}

func (t *Tracker) evaluate(ctx context.Context, tx LedgerTx, userID int, now time.Time, kinds ...models.RequirementType) ([]models.Achievement, error) {
	unlocked := []models.Achievement{}
	stats, err := tx.AchievementStats(ctx, userID)
	if apperr.IsNotFound(err) {
		return unlocked, nil
	}
	if err != nil {
		return nil, err
	}
	candidates, err := tx.UnearnedAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, a := range progress.Qualifying(candidates, stats, kinds...) {
		inserted, err := tx.AwardAchievement(ctx, userID, a.ID, now)
		if err != nil {
			return nil, err
		}
		if inserted {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked, nil
}

// observe records metrics once the transaction has committed.
func (t *Tracker) observe(userID int, kind string, minutes int, tr progress.Transition, unlocked []models.Achievement) {
	if kind != "" {
		metrics.ActivityLogged.WithLabelValues(kind).Inc()
		metrics.ActivityMinutes.WithLabelValues(kind).Add(float64(minutes))
	}
	if tr != "" {
		metrics.StreakTransitions.WithLabelValues(string(tr)).Inc()
	}
	for _, a := range unlocked {
		metrics.AchievementsUnlocked.WithLabelValues(string(a.RequirementType)).Inc()
		t.log.Info("achievement unlocked", zap.Int("user_id", userID), zap.String("achievement", a.Name))
	}
}
