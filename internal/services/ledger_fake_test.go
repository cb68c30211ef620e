package services

import (
	"context"
	"maps"
	"sync"
	"time"

	"studytrack/internal/apperr"
	"studytrack/internal/models"
)

// memLedger is an in-memory Ledger. Atomic snapshots the state and restores
// it when fn fails, mirroring a rolled back transaction.
type memLedger struct {
	mu       sync.Mutex
	state    memState
	awardErr error
}

type memState struct {
	streaks  map[int]models.Streak
	subjects map[int]models.Subject
	topics   map[int]models.Topic
	logs     map[int]models.ActivityLog
	catalog  []models.Achievement
	earned   map[[2]int]time.Time
	nextLog  int
}

func (s memState) clone() memState {
	return memState{
		streaks:  maps.Clone(s.streaks),
		subjects: maps.Clone(s.subjects),
		topics:   maps.Clone(s.topics),
		logs:     maps.Clone(s.logs),
		catalog:  s.catalog,
		earned:   maps.Clone(s.earned),
		nextLog:  s.nextLog,
	}
}

var testCatalog = []models.Achievement{
	{ID: 1, Name: "First Session", RequirementType: models.RequirementMinutes, RequirementValue: 1},
	{ID: 2, Name: "3-Day Streak", RequirementType: models.RequirementStreak, RequirementValue: 3},
	{ID: 3, Name: "7-Day Streak", RequirementType: models.RequirementStreak, RequirementValue: 7},
	{ID: 4, Name: "10 Hours", RequirementType: models.RequirementMinutes, RequirementValue: 600},
	{ID: 5, Name: "First Module", RequirementType: models.RequirementModules, RequirementValue: 1},
}

// newMemLedger holds two users. User 1 owns subject 10 with topic 100,
// user 2 owns subject 20 with topic 200. Both topics estimate 60 minutes.
func newMemLedger() *memLedger {
	return &memLedger{state: memState{
		streaks: map[int]models.Streak{1: {}, 2: {}},
		subjects: map[int]models.Subject{
			10: {ID: 10, UserID: 1, Name: "Control Systems"},
			20: {ID: 20, UserID: 2, Name: "Power Systems"},
		},
		topics: map[int]models.Topic{
			100: {ID: 100, SubjectID: 10, Name: "Root Locus", EstimatedMinutes: 60, TotalModules: 4},
			200: {ID: 200, SubjectID: 20, Name: "Load Flow", EstimatedMinutes: 60},
		},
		logs:    map[int]models.ActivityLog{},
		catalog: testCatalog,
		earned:  map[[2]int]time.Time{},
		nextLog: 1,
	}}
}

func (m *memLedger) Atomic(_ context.Context, fn func(LedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.state.clone()
	if err := fn(&memTx{s: &m.state, awardErr: m.awardErr}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memLedger) setStreak(userID, current int, last time.Time) {
	m.state.streaks[userID] = models.Streak{Current: current, LastActivityDate: &last}
}

func (m *memLedger) topic(id int) models.Topic     { return m.state.topics[id] }
func (m *memLedger) subject(id int) models.Subject { return m.state.subjects[id] }
func (m *memLedger) streak(userID int) models.Streak {
	return m.state.streaks[userID]
}

func (m *memLedger) loggedMinutes(topicID int) (minutes, modules int) {
	for _, l := range m.state.logs {
		if l.TopicID != nil && *l.TopicID == topicID {
			minutes += l.MinutesLogged
			modules += l.ModulesLogged
		}
	}
	return minutes, modules
}

type memTx struct {
	s        *memState
	awardErr error
}

func (tx *memTx) IncrementTopicCounters(_ context.Context, topicID, minutes, modules int) (models.Topic, error) {
	t, ok := tx.s.topics[topicID]
	if !ok {
		return models.Topic{}, apperr.NotFound("topic")
	}
	t.LoggedMinutes += minutes
	t.CompletedModules += modules
	tx.s.topics[topicID] = t
	return t, nil
}

func (tx *memTx) IncrementSubjectManualTime(_ context.Context, subjectID, minutes int) (models.Subject, error) {
	s, ok := tx.s.subjects[subjectID]
	if !ok {
		return models.Subject{}, apperr.NotFound("subject")
	}
	s.ManualTimeMinutes += minutes
	tx.s.subjects[subjectID] = s
	return s, nil
}

func (tx *memTx) InsertActivityLog(_ context.Context, l models.ActivityLog) (models.ActivityLog, error) {
	l.ID = tx.s.nextLog
	tx.s.nextLog++
	tx.s.logs[l.ID] = l
	return l, nil
}

func (tx *memTx) ActivityLogForUpdate(_ context.Context, userID, logID int) (models.ActivityLog, error) {
	l, ok := tx.s.logs[logID]
	if !ok || l.UserID != userID {
		return models.ActivityLog{}, apperr.NotFound("activity log")
	}
	return l, nil
}

func (tx *memTx) UpdateActivityLogAmounts(_ context.Context, logID, minutes, modules int) (models.ActivityLog, error) {
	l, ok := tx.s.logs[logID]
	if !ok {
		return models.ActivityLog{}, apperr.NotFound("activity log")
	}
	l.MinutesLogged = minutes
	l.ModulesLogged = modules
	tx.s.logs[logID] = l
	return l, nil
}

func (tx *memTx) StreakForUpdate(_ context.Context, userID int) (models.Streak, error) {
	s, ok := tx.s.streaks[userID]
	if !ok {
		return models.Streak{}, apperr.NotFound("user")
	}
	return s, nil
}

func (tx *memTx) SaveStreak(_ context.Context, userID int, s models.Streak) error {
	if _, ok := tx.s.streaks[userID]; !ok {
		return apperr.NotFound("user")
	}
	tx.s.streaks[userID] = s
	return nil
}

func (tx *memTx) AchievementStats(_ context.Context, userID int) (models.AchievementStats, error) {
	s, ok := tx.s.streaks[userID]
	if !ok {
		return models.AchievementStats{}, apperr.NotFound("user")
	}
	st := models.AchievementStats{CurrentStreak: s.Current}
	for _, l := range tx.s.logs {
		if l.UserID == userID {
			st.TotalMinutes += l.MinutesLogged
			st.TotalModules += l.ModulesLogged
		}
	}
	return st, nil
}

func (tx *memTx) UnearnedAchievements(_ context.Context, userID int) ([]models.Achievement, error) {
	var out []models.Achievement
	for _, a := range tx.s.catalog {
		if _, ok := tx.s.earned[[2]int{userID, a.ID}]; !ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (tx *memTx) AwardAchievement(_ context.Context, userID, achievementID int, at time.Time) (bool, error) {
	if tx.awardErr != nil {
		return false, tx.awardErr
	}
	key := [2]int{userID, achievementID}
	if _, ok := tx.s.earned[key]; ok {
		return false, nil
	}
	tx.s.earned[key] = at
	return true, nil
}

func (tx *memTx) DeleteSubjectsByUser(_ context.Context, userID int) (int64, error) {
	var n int64
	for id, s := range tx.s.subjects {
		if s.UserID != userID {
			continue
		}
		for tid, t := range tx.s.topics {
			if t.SubjectID == id {
				delete(tx.s.topics, tid)
				for lid, l := range tx.s.logs {
					if l.TopicID != nil && *l.TopicID == tid {
						delete(tx.s.logs, lid)
					}
				}
			}
		}
		for lid, l := range tx.s.logs {
			if l.SubjectID != nil && *l.SubjectID == id {
				delete(tx.s.logs, lid)
			}
		}
		delete(tx.s.subjects, id)
		n++
	}
	return n, nil
}
