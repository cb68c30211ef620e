package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"studytrack/internal/cache"
	"studytrack/internal/models"
)

type SocialStore interface {
	Follow(ctx context.Context, followerID, followingID int) error
	Unfollow(ctx context.Context, followerID, followingID int) error
	Following(ctx context.Context, userID int) ([]models.UserCard, error)
	Followers(ctx context.Context, userID int) ([]models.UserCard, error)
	SearchUsers(ctx context.Context, callerID int, term string) ([]models.UserCard, error)
	Leaderboard(ctx context.Context) ([]models.UserCard, error)
	PublicProfile(ctx context.Context, viewerID, userID int) (models.PublicProfile, error)
	EarnedAchievements(ctx context.Context, userID int) ([]models.EarnedAchievement, error)
}

type SocialHandler struct {
	store SocialStore
	board cache.Leaderboard
	log   *zap.Logger
}

func NewSocialHandler(s SocialStore, board cache.Leaderboard, log *zap.Logger) *SocialHandler {
	return &SocialHandler{store: s, board: board, log: log}
}

type followRequest struct {
	FollowingID int `json:"followingId" validate:"required,gt=0"`
}

// Follow is idempotent.
func (h *SocialHandler) Follow(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req followRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.store.Follow(r.Context(), userID, req.FollowingID); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"following": true, "followingId": req.FollowingID})
}

func (h *SocialHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	followingID, err := pathID(r, "followingId")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.store.Unfollow(r.Context(), userID, followingID); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"following": false, "followingId": followingID})
}

type socialInfo struct {
	Following []models.UserCard `json:"following"`
	Followers []models.UserCard `json:"followers"`
}

func (h *SocialHandler) Info(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var out socialInfo
	if out.Following, err = h.store.Following(r.Context(), userID); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if out.Followers, err = h.store.Followers(r.Context(), userID); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Search matches public users by username or email. A blank query matches nobody.
func (h *SocialHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, []models.UserCard{})
		return
	}
	cards, err := h.store.SearchUsers(r.Context(), userID, q)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// Profile returns a public profile. Private and missing users are both 404.
func (h *SocialHandler) Profile(w http.ResponseWriter, r *http.Request) {
	viewerID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	p, err := h.store.PublicProfile(r.Context(), viewerID, userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *SocialHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	cards, err := h.board.Fetch(r.Context(), h.store.Leaderboard)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// MyAchievements lists the caller's earned achievements, newest first.
func (h *SocialHandler) MyAchievements(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	earned, err := h.store.EarnedAchievements(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, earned)
}
