package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    username TEXT UNIQUE NOT NULL,
    email TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    selected_exam TEXT,
    tracking_mode TEXT NOT NULL DEFAULT 'time' CHECK (tracking_mode IN ('time', 'module')),
    current_streak INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    last_activity_date DATE,
    is_public BOOLEAN NOT NULL DEFAULT TRUE,
    bio TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS subjects (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    manual_time_minutes INTEGER NOT NULL DEFAULT 0 CHECK (manual_time_minutes >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_subjects_user_id ON subjects(user_id);

CREATE TABLE IF NOT EXISTS topics (
    id SERIAL PRIMARY KEY,
    subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    estimated_minutes INTEGER NOT NULL DEFAULT 720 CHECK (estimated_minutes >= 0),
    total_modules INTEGER NOT NULL DEFAULT 0 CHECK (total_modules >= 0),
    logged_minutes INTEGER NOT NULL DEFAULT 0 CHECK (logged_minutes >= 0),
    completed_modules INTEGER NOT NULL DEFAULT 0 CHECK (completed_modules >= 0),
    is_completed BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_topics_subject_id ON topics(subject_id);

CREATE TABLE IF NOT EXISTS activity_logs (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    topic_id INTEGER REFERENCES topics(id) ON DELETE CASCADE,
    subject_id INTEGER REFERENCES subjects(id) ON DELETE CASCADE,
    minutes_logged INTEGER NOT NULL DEFAULT 0 CHECK (minutes_logged >= 0),
    modules_logged INTEGER NOT NULL DEFAULT 0 CHECK (modules_logged >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK ((topic_id IS NULL) <> (subject_id IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_activity_logs_user_id ON activity_logs(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_activity_logs_topic_id ON activity_logs(topic_id);

CREATE TABLE IF NOT EXISTS achievements (
    id SERIAL PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    icon TEXT NOT NULL DEFAULT '',
    requirement_type TEXT NOT NULL CHECK (requirement_type IN ('streak', 'minutes', 'modules')),
    requirement_value INTEGER NOT NULL CHECK (requirement_value > 0)
);

CREATE TABLE IF NOT EXISTS user_achievements (
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    achievement_id INTEGER NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
    earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, achievement_id)
);

CREATE TABLE IF NOT EXISTS follows (
    follower_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    following_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (follower_id, following_id)
);

CREATE INDEX IF NOT EXISTS idx_follows_following_id ON follows(following_id);
`

// Columns added after the first release, kept idempotent like the schema.
const alters = `
DO $$ BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns WHERE table_name='users' AND column_name='target_date'
    ) THEN
        ALTER TABLE users ADD COLUMN target_date DATE;
    END IF;
END $$;`

// RunMigrations creates the schema and refreshes the achievement catalog.
// Safe to call on every boot.
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, alters); err != nil {
		return fmt.Errorf("alter schema: %w", err)
	}
	catalog, err := AchievementCatalog()
	if err != nil {
		return err
	}
	return UpsertAchievements(ctx, db, catalog)
}
