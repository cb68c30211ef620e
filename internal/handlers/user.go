package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"studytrack/internal/apperr"
	"studytrack/internal/cache"
	"studytrack/internal/models"
	"studytrack/internal/store"
)

type UserHandler struct {
	users UserStore
	board cache.Leaderboard
	log   *zap.Logger
}

func NewUserHandler(users UserStore, board cache.Leaderboard, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, board: board, log: log}
}

// GetMe returns the current user's profile
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	u, err := h.users.UserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ToUserDTO(u))
}

type preferencesRequest struct {
	SelectedExam *string `json:"selected_exam" validate:"omitempty,max=100"`
	TrackingMode *string `json:"tracking_mode" validate:"omitempty,oneof=time module"`
	IsPublic     *bool   `json:"is_public"`
	Bio          *string `json:"bio" validate:"omitempty,max=500"`
	TargetDate   *string `json:"target_date"` // YYYY-MM-DD, "" clears it
}

// UpdatePreferences updates provided fields on the current user's profile
func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var body preferencesRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	upd := store.PreferencesUpdate{
		SelectedExam: body.SelectedExam,
		IsPublic:     body.IsPublic,
		Bio:          body.Bio,
	}
	if body.TrackingMode != nil {
		mode := models.TrackingMode(*body.TrackingMode)
		upd.TrackingMode = &mode
	}
	if body.TargetDate != nil {
		if strings.TrimSpace(*body.TargetDate) == "" {
			upd.ClearTargetDate = true
		} else {
			d, err := time.Parse("2006-01-02", *body.TargetDate)
			if err != nil {
				writeError(w, r, h.log, apperr.Validation("invalid target_date; expected YYYY-MM-DD"))
				return
			}
			upd.TargetDate = &d
		}
	}

	u, err := h.users.UpdatePreferences(r.Context(), userID, upd)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if body.IsPublic != nil {
		h.board.Invalidate(r.Context())
	}
	writeJSON(w, http.StatusOK, ToUserDTO(u))
}
