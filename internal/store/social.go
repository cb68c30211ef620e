package store

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"studytrack/internal/models"
)

const (
	SearchLimit      = 10
	LeaderboardLimit = 10
)

// Follow is idempotent. Following a missing user is not found.
func (q *Queries) Follow(ctx context.Context, followerID, followingID int) error {
	_, err := q.ext.ExecContext(ctx, `INSERT INTO follows (follower_id, following_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, followerID, followingID)
	return translate("user", err)
}

func (q *Queries) Unfollow(ctx context.Context, followerID, followingID int) error {
	_, err := q.ext.ExecContext(ctx, `DELETE FROM follows WHERE follower_id=$1 AND following_id=$2`,
		followerID, followingID)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

func (q *Queries) Following(ctx context.Context, userID int) ([]models.UserCard, error) {
	cards := []models.UserCard{}
	err := q.selectAll(ctx, &cards, `SELECT u.id, u.username, u.current_streak, u.bio
		FROM users u JOIN follows f ON u.id = f.following_id
		WHERE f.follower_id=$1 ORDER BY f.created_at DESC, u.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return cards, nil
}

func (q *Queries) Followers(ctx context.Context, userID int) ([]models.UserCard, error) {
	cards := []models.UserCard{}
	err := q.selectAll(ctx, &cards, `SELECT u.id, u.username, u.current_streak, u.bio
		FROM users u JOIN follows f ON u.id = f.follower_id
		WHERE f.following_id=$1 ORDER BY f.created_at DESC, u.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	return cards, nil
}

// SearchUsers matches public users by username or email substring.
func (q *Queries) SearchUsers(ctx context.Context, callerID int, term string) ([]models.UserCard, error) {
	cards := []models.UserCard{}
	pattern := "%" + escapeLike(term) + "%"
	err := q.selectAll(ctx, &cards, `SELECT id, username, current_streak, bio FROM users
		WHERE (username ILIKE $1 OR email ILIKE $1) AND id <> $2 AND is_public = TRUE
		ORDER BY username LIMIT $3`, pattern, callerID, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return cards, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func (q *Queries) Leaderboard(ctx context.Context) ([]models.UserCard, error) {
	cards := []models.UserCard{}
	err := q.selectAll(ctx, &cards, `SELECT id, username, current_streak, bio FROM users
		WHERE is_public = TRUE ORDER BY current_streak DESC, id LIMIT $1`, LeaderboardLimit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return cards, nil
}

// PublicProfile loads a public user with the viewer's follow flag and the
// user's achievements. Private and missing users are both not found.
func (s *Store) PublicProfile(ctx context.Context, viewerID, userID int) (models.PublicProfile, error) {
	var (
		profile      models.PublicProfile
		following    bool
		achievements []models.Achievement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.get(gctx, &profile, `SELECT id, username, current_streak, bio, created_at
			FROM users WHERE id=$1 AND is_public = TRUE`, userID)
		return translate("user", err)
	})
	g.Go(func() error {
		return s.get(gctx, &following, `SELECT EXISTS (
			SELECT 1 FROM follows WHERE follower_id=$1 AND following_id=$2)`, viewerID, userID)
	})
	g.Go(func() error {
		achievements = []models.Achievement{}
		return s.selectAll(gctx, &achievements, `SELECT `+achievementColumns+`
			FROM achievements a JOIN user_achievements ua ON ua.achievement_id = a.id
			WHERE ua.user_id=$1 ORDER BY ua.earned_at DESC, a.id`, userID)
	})
	if err := g.Wait(); err != nil {
		return models.PublicProfile{}, err
	}
	profile.IsFollowing = following
	profile.Achievements = achievements
	return profile, nil
}
