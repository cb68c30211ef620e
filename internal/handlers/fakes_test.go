package handlers

import (
	"context"
	"sync"
	"time"

	"studytrack/internal/apperr"
	"studytrack/internal/cache"
	"studytrack/internal/models"
	"studytrack/internal/services"
	"studytrack/internal/store"
)

// fakeStore backs every handler interface with maps. Topics and subjects
// are only tracked by owner.
type fakeStore struct {
	mu sync.Mutex

	users      map[int]models.User
	nextUserID int
	tree       map[int][]models.SubjectTree
	topicOwner map[int]int
	subjOwner  map[int]int
	public     map[int]models.PublicProfile
	cards      []models.UserCard
	catalog    []models.Achievement
	earned     map[int][]models.EarnedAchievement
	follows    map[[2]int]bool

	lastPrefs    store.PreferencesUpdate
	lastNewTopic store.NewTopic
	lastTopicUpd store.TopicUpdate
	lastLogLimit int
	searchCalls  int
	pingErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[int]models.User{},
		nextUserID: 1,
		tree:       map[int][]models.SubjectTree{},
		topicOwner: map[int]int{},
		subjOwner:  map[int]int{},
		public:     map[int]models.PublicProfile{},
		earned:     map[int][]models.EarnedAchievement{},
		follows:    map[[2]int]bool{},
	}
}

func (f *fakeStore) addUser(u models.User) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = f.nextUserID
	f.nextUserID++
	if u.TrackingMode == "" {
		u.TrackingMode = models.TrackingTime
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) CreateUser(_ context.Context, username, email, hash string) (models.User, error) {
	f.mu.Lock()
	for _, u := range f.users {
		if u.Email == email || u.Username == username {
			f.mu.Unlock()
			return models.User{}, apperr.Conflict("user already exists", nil)
		}
	}
	f.mu.Unlock()
	return f.addUser(models.User{Username: username, Email: email, PasswordHash: hash, IsPublic: true, CreatedAt: time.Now()}), nil
}

func (f *fakeStore) UserByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperr.NotFound("user")
}

func (f *fakeStore) UserByID(_ context.Context, id int) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, apperr.NotFound("user")
	}
	return u, nil
}

func (f *fakeStore) UpdatePreferences(_ context.Context, id int, p store.PreferencesUpdate) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPrefs = p
	u, ok := f.users[id]
	if !ok {
		return models.User{}, apperr.NotFound("user")
	}
	if p.TrackingMode != nil {
		u.TrackingMode = *p.TrackingMode
	}
	if p.IsPublic != nil {
		u.IsPublic = *p.IsPublic
	}
	if p.TargetDate != nil {
		u.TargetDate = p.TargetDate
	}
	if p.ClearTargetDate {
		u.TargetDate = nil
	}
	f.users[id] = u
	return u, nil
}

func (f *fakeStore) SyllabusTree(_ context.Context, userID int) ([]models.SubjectTree, error) {
	return f.tree[userID], nil
}

func (f *fakeStore) CreateSubject(_ context.Context, userID int, name string) (models.Subject, error) {
	return models.Subject{ID: 10, UserID: userID, Name: name}, nil
}

func (f *fakeStore) RenameSubject(_ context.Context, userID, subjectID int, name string) (models.Subject, error) {
	if f.subjOwner[subjectID] != userID {
		return models.Subject{}, apperr.NotFound("subject")
	}
	return models.Subject{ID: subjectID, UserID: userID, Name: name}, nil
}

func (f *fakeStore) DeleteSubject(_ context.Context, userID, subjectID int) error {
	if f.subjOwner[subjectID] != userID {
		return apperr.NotFound("subject")
	}
	return nil
}

func (f *fakeStore) CreateTopic(_ context.Context, userID int, t store.NewTopic) (models.Topic, error) {
	f.lastNewTopic = t
	if f.subjOwner[t.SubjectID] != userID {
		return models.Topic{}, apperr.NotFound("subject")
	}
	return models.Topic{ID: 100, SubjectID: t.SubjectID, Name: t.Name, EstimatedMinutes: t.EstimatedMinutes, TotalModules: t.TotalModules}, nil
}

func (f *fakeStore) UpdateTopic(_ context.Context, userID, topicID int, u store.TopicUpdate) (models.Topic, error) {
	f.lastTopicUpd = u
	if f.topicOwner[topicID] != userID {
		return models.Topic{}, apperr.NotFound("topic")
	}
	return models.Topic{ID: topicID}, nil
}

func (f *fakeStore) DeleteTopic(_ context.Context, userID, topicID int) error {
	if f.topicOwner[topicID] != userID {
		return apperr.NotFound("topic")
	}
	return nil
}

func (f *fakeStore) TopicOwnedBy(_ context.Context, userID, topicID int) (models.Topic, error) {
	if f.topicOwner[topicID] != userID {
		return models.Topic{}, apperr.NotFound("topic")
	}
	return models.Topic{ID: topicID}, nil
}

func (f *fakeStore) SubjectOwnedBy(_ context.Context, userID, subjectID int) (models.Subject, error) {
	if f.subjOwner[subjectID] != userID {
		return models.Subject{}, apperr.NotFound("subject")
	}
	return models.Subject{ID: subjectID, UserID: userID}, nil
}

func (f *fakeStore) ListActivityLogs(_ context.Context, _ int, limit int) ([]models.ActivityLog, error) {
	f.lastLogLimit = limit
	return []models.ActivityLog{}, nil
}

func (f *fakeStore) Follow(_ context.Context, followerID, followingID int) error {
	if _, ok := f.users[followingID]; !ok {
		return apperr.NotFound("user")
	}
	f.follows[[2]int{followerID, followingID}] = true
	return nil
}

func (f *fakeStore) Unfollow(_ context.Context, followerID, followingID int) error {
	delete(f.follows, [2]int{followerID, followingID})
	return nil
}

func (f *fakeStore) Following(context.Context, int) ([]models.UserCard, error) {
	return []models.UserCard{}, nil
}

func (f *fakeStore) Followers(context.Context, int) ([]models.UserCard, error) {
	return []models.UserCard{}, nil
}

func (f *fakeStore) SearchUsers(context.Context, int, string) ([]models.UserCard, error) {
	f.searchCalls++
	return f.cards, nil
}

func (f *fakeStore) Leaderboard(context.Context) ([]models.UserCard, error) {
	return f.cards, nil
}

func (f *fakeStore) PublicProfile(_ context.Context, _ int, userID int) (models.PublicProfile, error) {
	p, ok := f.public[userID]
	if !ok {
		return models.PublicProfile{}, apperr.NotFound("user")
	}
	return p, nil
}

func (f *fakeStore) EarnedAchievements(_ context.Context, userID int) ([]models.EarnedAchievement, error) {
	return f.earned[userID], nil
}

func (f *fakeStore) ListAchievements(context.Context) ([]models.Achievement, error) {
	return f.catalog, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

type trackerCall struct {
	method           string
	userID, targetID int
	minutes, modules int
}

type fakeTracker struct {
	calls  []trackerCall
	result services.LogResult
	err    error
}

func (t *fakeTracker) LogActivity(_ context.Context, userID, topicID, minutes, modules int) (services.LogResult, error) {
	t.calls = append(t.calls, trackerCall{"LogActivity", userID, topicID, minutes, modules})
	return t.result, t.err
}

func (t *fakeTracker) LogManualTime(_ context.Context, userID, subjectID, minutes int) (services.LogResult, error) {
	t.calls = append(t.calls, trackerCall{"LogManualTime", userID, subjectID, minutes, 0})
	return t.result, t.err
}

func (t *fakeTracker) EditActivityLog(_ context.Context, userID, logID, minutes, modules int) (services.EditResult, error) {
	t.calls = append(t.calls, trackerCall{"EditActivityLog", userID, logID, minutes, modules})
	return services.EditResult{}, t.err
}

func (t *fakeTracker) ResetProgress(_ context.Context, userID int) (int64, error) {
	t.calls = append(t.calls, trackerCall{method: "ResetProgress", userID: userID})
	return 2, t.err
}

type fakeBoard struct {
	fetches, invalidations int
}

func (b *fakeBoard) Fetch(ctx context.Context, load cache.LoadFunc) ([]models.UserCard, error) {
	b.fetches++
	return load(ctx)
}

func (b *fakeBoard) Invalidate(context.Context) { b.invalidations++ }
