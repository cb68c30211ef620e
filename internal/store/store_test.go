package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studytrack/internal/apperr"
	"studytrack/internal/db"
	"studytrack/internal/models"
)

var (
	testOnce  sync.Once
	testStore *Store
	testErr   error
	userSeq   atomic.Int64
)

// openTestStore connects to TEST_DATABASE_URL and migrates it once per run.
func openTestStore(tb testing.TB) *Store {
	tb.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		tb.Skip("set TEST_DATABASE_URL to run store integration tests")
	}
	testOnce.Do(func() {
		ctx := context.Background()
		conn, err := Open(ctx, dsn, 5)
		if err != nil {
			testErr = err
			return
		}
		if err := db.RunMigrations(ctx, conn); err != nil {
			testErr = err
			return
		}
		testStore = New(conn)
	})
	if testErr != nil {
		tb.Fatalf("failed to init test db: %v", testErr)
	}
	return testStore
}

func newUser(tb testing.TB, s *Store) models.User {
	tb.Helper()
	n := fmt.Sprintf("%d_%d", time.Now().UnixNano(), userSeq.Add(1))
	u, err := s.CreateUser(context.Background(), "user_"+n, "user_"+n+"@example.com", "hash")
	require.NoError(tb, err)
	return u
}

func newTopic(tb testing.TB, s *Store, userID int) (models.Subject, models.Topic) {
	tb.Helper()
	ctx := context.Background()
	subj, err := s.CreateSubject(ctx, userID, "Control Systems")
	require.NoError(tb, err)
	topic, err := s.CreateTopic(ctx, userID, NewTopic{SubjectID: subj.ID, Name: "Root Locus", EstimatedMinutes: 60})
	require.NoError(tb, err)
	return subj, topic
}

func TestNestTopics(t *testing.T) {
	subjects := []models.Subject{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	topics := []models.Topic{
		{ID: 10, SubjectID: 2, Name: "b1"},
		{ID: 11, SubjectID: 1, Name: "a1"},
		{ID: 12, SubjectID: 2, Name: "b2"},
		{ID: 13, SubjectID: 99, Name: "orphan"},
	}
	tree := nestTopics(subjects, topics)
	require.Len(t, tree, 2)
	assert.Equal(t, []models.Topic{topics[1]}, tree[0].Topics)
	assert.Equal(t, []models.Topic{topics[0], topics[2]}, tree[1].Topics)

	empty := nestTopics([]models.Subject{{ID: 3}}, nil)
	assert.NotNil(t, empty[0].Topics)
	assert.Empty(t, empty[0].Topics)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, escapeLike("50% off_now"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperr.Kind
	}{
		{"no rows", sql.ErrNoRows, apperr.KindNotFound},
		{"unique", &pgconn.PgError{Code: pgUniqueViolation}, apperr.KindConflict},
		{"foreign key", &pgconn.PgError{Code: pgForeignKeyViolation}, apperr.KindNotFound},
		{"out of range", fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgNumericOutOfRange}), apperr.KindValidation},
		{"other", errors.New("conn reset"), apperr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, apperr.KindOf(translate("topic", tt.err)))
		})
	}
	assert.NoError(t, translate("topic", nil))
}

func TestTopicCounterOverflowIsValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s)
	_, topic := newTopic(t, s, u.ID)

	_, err := s.IncrementTopicCounters(ctx, topic.ID, math.MaxInt32, 0)
	require.NoError(t, err)
	_, err = s.IncrementTopicCounters(ctx, topic.ID, 1, 0)
	assert.True(t, apperr.IsValidation(err), "got %v", err)
}

func TestCreateUserDuplicate(t *testing.T) {
	s := openTestStore(t)
	u := newUser(t, s)
	_, err := s.CreateUser(context.Background(), u.Username, "other_"+u.Email, "hash")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	assert.Equal(t, models.TrackingTime, u.TrackingMode)
	assert.Zero(t, u.CurrentStreak)
	assert.Nil(t, u.LastActivityDate)
	assert.True(t, u.IsPublic)
}

func TestAtomicRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s)
	_, topic := newTopic(t, s, u.ID)

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(q *Queries) error {
		if _, err := q.IncrementTopicCounters(ctx, topic.ID, 45, 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.TopicOwnedBy(ctx, u.ID, topic.ID)
	require.NoError(t, err)
	assert.Zero(t, got.LoggedMinutes)
	assert.Zero(t, got.CompletedModules)
}

func TestIncrementMissingTopic(t *testing.T) {
	s := openTestStore(t)
	_, err := s.IncrementTopicCounters(context.Background(), -1, 10, 0)
	assert.True(t, apperr.IsNotFound(err))
}

func TestTopicOwnership(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	owner := newUser(t, s)
	other := newUser(t, s)
	subj, topic := newTopic(t, s, owner.ID)

	_, err := s.TopicOwnedBy(ctx, other.ID, topic.ID)
	assert.True(t, apperr.IsNotFound(err))

	_, err = s.CreateTopic(ctx, other.ID, NewTopic{SubjectID: subj.ID, Name: "sneaky"})
	assert.True(t, apperr.IsNotFound(err))

	name := "renamed"
	_, err = s.UpdateTopic(ctx, other.ID, topic.ID, TopicUpdate{Name: &name})
	assert.True(t, apperr.IsNotFound(err))

	assert.True(t, apperr.IsNotFound(s.DeleteTopic(ctx, other.ID, topic.ID)))
	assert.True(t, apperr.IsNotFound(s.DeleteSubject(ctx, other.ID, subj.ID)))
}

func TestUpdateTopicKeepsCounters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s)
	_, topic := newTopic(t, s, u.ID)

	_, err := s.IncrementTopicCounters(ctx, topic.ID, 30, 2)
	require.NoError(t, err)

	estimate, done := 120, true
	got, err := s.UpdateTopic(ctx, u.ID, topic.ID, TopicUpdate{EstimatedMinutes: &estimate, IsCompleted: &done})
	require.NoError(t, err)
	assert.Equal(t, 120, got.EstimatedMinutes)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, 30, got.LoggedMinutes)
	assert.Equal(t, 2, got.CompletedModules)
}

func TestAchievementStatsAndAward(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s)
	_, topic := newTopic(t, s, u.ID)

	st, err := s.AchievementStats(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AchievementStats{}, st)

	_, err = s.InsertActivityLog(ctx, models.ActivityLog{
		UserID: u.ID, TopicID: &topic.ID, MinutesLogged: 45, ModulesLogged: 1, CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	st, err = s.AchievementStats(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, st.TotalMinutes)
	assert.Equal(t, 1, st.TotalModules)

	unearned, err := s.UnearnedAchievements(ctx, u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, unearned)

	first := unearned[0]
	inserted, err := s.AwardAchievement(ctx, u.ID, first.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = s.AwardAchievement(ctx, u.ID, first.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, inserted)

	earned, err := s.EarnedAchievements(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, first.Name, earned[0].Name)

	_, err = s.AchievementStats(ctx, -1)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteSubjectsCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s)
	subj, topic := newTopic(t, s, u.ID)

	_, err := s.InsertActivityLog(ctx, models.ActivityLog{UserID: u.ID, TopicID: &topic.ID, MinutesLogged: 10, CreatedAt: time.Now()})
	require.NoError(t, err)
	_, err = s.InsertActivityLog(ctx, models.ActivityLog{UserID: u.ID, SubjectID: &subj.ID, MinutesLogged: 5, CreatedAt: time.Now()})
	require.NoError(t, err)

	n, err := s.DeleteSubjectsByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	logs, err := s.ListActivityLogs(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)

	tree, err := s.SyllabusTree(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestSocialGraph(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := newUser(t, s)
	b := newUser(t, s)

	require.NoError(t, s.Follow(ctx, a.ID, b.ID))
	require.NoError(t, s.Follow(ctx, a.ID, b.ID))
	assert.True(t, apperr.IsNotFound(s.Follow(ctx, a.ID, -1)))

	following, err := s.Following(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, b.ID, following[0].ID)

	followers, err := s.Followers(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, a.ID, followers[0].ID)

	profile, err := s.PublicProfile(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsFollowing)
	assert.NotNil(t, profile.Achievements)

	private := false
	_, err = s.UpdatePreferences(ctx, b.ID, PreferencesUpdate{IsPublic: &private})
	require.NoError(t, err)
	_, err = s.PublicProfile(ctx, a.ID, b.ID)
	assert.True(t, apperr.IsNotFound(err))

	found, err := s.SearchUsers(ctx, a.ID, b.Username)
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, s.Unfollow(ctx, a.ID, b.ID))
	following, err = s.Following(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, following)
}

func TestUpdatePreferencesTargetDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	u := newUser(t, s)

	target := time.Date(2027, 2, 7, 0, 0, 0, 0, time.UTC)
	mode := models.TrackingModule
	got, err := s.UpdatePreferences(ctx, u.ID, PreferencesUpdate{TargetDate: &target, TrackingMode: &mode})
	require.NoError(t, err)
	require.NotNil(t, got.TargetDate)
	assert.Equal(t, "2027-02-07", got.TargetDate.Format("2006-01-02"))
	assert.Equal(t, models.TrackingModule, got.TrackingMode)

	got, err = s.UpdatePreferences(ctx, u.ID, PreferencesUpdate{ClearTargetDate: true})
	require.NoError(t, err)
	assert.Nil(t, got.TargetDate)
}
