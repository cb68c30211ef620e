package models

import "time"

type TrackingMode string

const (
	TrackingTime   TrackingMode = "time"
	TrackingModule TrackingMode = "module"
)

type RequirementType string

const (
	RequirementStreak  RequirementType = "streak"
	RequirementMinutes RequirementType = "minutes"
	RequirementModules RequirementType = "modules"
)

type User struct {
	ID               int          `db:"id" json:"id"`
	Username         string       `db:"username" json:"username"`
	Email            string       `db:"email" json:"email"`
	PasswordHash     string       `db:"password_hash" json:"-"`
	SelectedExam     *string      `db:"selected_exam" json:"selected_exam,omitempty"`
	TrackingMode     TrackingMode `db:"tracking_mode" json:"tracking_mode"`
	CurrentStreak    int          `db:"current_streak" json:"current_streak"`
	LastActivityDate *time.Time   `db:"last_activity_date" json:"last_activity_date,omitempty"`
	TargetDate       *time.Time   `db:"target_date" json:"target_date,omitempty"`
	IsPublic         bool         `db:"is_public" json:"is_public"`
	Bio              *string      `db:"bio" json:"bio,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
}

// Streak is the slice of a user row owned by the streak engine.
// LastActivityDate is a calendar date at UTC midnight.
type Streak struct {
	Current          int        `db:"current_streak" json:"current_streak"`
	LastActivityDate *time.Time `db:"last_activity_date" json:"last_activity_date,omitempty"`
}

type Subject struct {
	ID                int       `db:"id" json:"id"`
	UserID            int       `db:"user_id" json:"user_id"`
	Name              string    `db:"name" json:"name"`
	ManualTimeMinutes int       `db:"manual_time_minutes" json:"manual_time_minutes"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

type Topic struct {
	ID               int    `db:"id" json:"id"`
	SubjectID        int    `db:"subject_id" json:"subject_id"`
	Name             string `db:"name" json:"name"`
	EstimatedMinutes int    `db:"estimated_minutes" json:"estimated_minutes"`
	TotalModules     int    `db:"total_modules" json:"total_modules"`
	LoggedMinutes    int    `db:"logged_minutes" json:"logged_minutes"`
	CompletedModules int    `db:"completed_modules" json:"completed_modules"`
	IsCompleted      bool   `db:"is_completed" json:"is_completed"`
}

// SubjectTree is a subject with its topics embedded, as served by the syllabus endpoint.
type SubjectTree struct {
	Subject
	Topics []Topic `json:"topics"`
}

// ActivityLog is one study session. Exactly one of TopicID and SubjectID is set:
// SubjectID marks manual time credited to the subject rather than a topic.
type ActivityLog struct {
	ID            int       `db:"id" json:"id"`
	UserID        int       `db:"user_id" json:"user_id"`
	TopicID       *int      `db:"topic_id" json:"topic_id"`
	SubjectID     *int      `db:"subject_id" json:"subject_id,omitempty"`
	MinutesLogged int       `db:"minutes_logged" json:"minutes_logged"`
	ModulesLogged int       `db:"modules_logged" json:"modules_logged"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

func (l ActivityLog) IsManual() bool { return l.TopicID == nil }

type Achievement struct {
	ID               int             `db:"id" json:"id" yaml:"-"`
	Name             string          `db:"name" json:"name" yaml:"name"`
	Description      string          `db:"description" json:"description" yaml:"description"`
	Icon             string          `db:"icon" json:"icon" yaml:"icon"`
	RequirementType  RequirementType `db:"requirement_type" json:"requirement_type" yaml:"requirement_type"`
	RequirementValue int             `db:"requirement_value" json:"requirement_value" yaml:"requirement_value"`
}

type EarnedAchievement struct {
	Achievement
	EarnedAt time.Time `db:"earned_at" json:"earned_at"`
}

// AchievementStats are the fresh ledger sums the evaluator checks thresholds against.
type AchievementStats struct {
	CurrentStreak int `db:"current_streak"`
	TotalMinutes  int `db:"total_minutes"`
	TotalModules  int `db:"total_modules"`
}

// UserCard is the public projection used by social listings and the leaderboard.
type UserCard struct {
	ID            int     `db:"id" json:"id"`
	Username      string  `db:"username" json:"username"`
	CurrentStreak int     `db:"current_streak" json:"current_streak"`
	Bio           *string `db:"bio" json:"bio,omitempty"`
}

type PublicProfile struct {
	ID            int           `db:"id" json:"id"`
	Username      string        `db:"username" json:"username"`
	CurrentStreak int           `db:"current_streak" json:"current_streak"`
	Bio           *string       `db:"bio" json:"bio,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	IsFollowing   bool          `db:"-" json:"is_following"`
	Achievements  []Achievement `db:"-" json:"achievements"`
}
