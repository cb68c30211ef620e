package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"studytrack/internal/apperr"
	"studytrack/internal/cache"
	"studytrack/internal/models"
	"studytrack/internal/progress"
	"studytrack/internal/services"
)

type ActivityStore interface {
	TopicOwnedBy(ctx context.Context, userID, topicID int) (models.Topic, error)
	SubjectOwnedBy(ctx context.Context, userID, subjectID int) (models.Subject, error)
	ListActivityLogs(ctx context.Context, userID, limit int) ([]models.ActivityLog, error)
}

type ActivityTracker interface {
	LogActivity(ctx context.Context, userID, topicID, minutes, modules int) (services.LogResult, error)
	LogManualTime(ctx context.Context, userID, subjectID, minutes int) (services.LogResult, error)
	EditActivityLog(ctx context.Context, userID, logID, minutes, modules int) (services.EditResult, error)
	ResetProgress(ctx context.Context, userID int) (int64, error)
}

type ProgressHandler struct {
	store   ActivityStore
	tracker ActivityTracker
	board   cache.Leaderboard
	log     *zap.Logger
}

func NewProgressHandler(s ActivityStore, tracker ActivityTracker, board cache.Leaderboard, log *zap.Logger) *ProgressHandler {
	return &ProgressHandler{store: s, tracker: tracker, board: board, log: log}
}

type logRequest struct {
	TopicID   *int             `json:"topicId" validate:"omitempty,gt=0"`
	SubjectID *int             `json:"subjectId" validate:"omitempty,gt=0"`
	Minutes   progress.Minutes `json:"minutes" validate:"gte=0,lte=1000000"`
	Modules   int              `json:"modules" validate:"gte=0,lte=10000"`
}

// LogActivity godoc
// @Summary Log study time or modules
// @Description Credits a topic (topicId) or, as manual time, a subject (subjectId). Exactly one is required.
// @Tags syllabus
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} services.LogResult
// @Failure 400 {object} errorBody
// @Failure 404 {object} errorBody "topic or subject not found"
// @Router /syllabus/log [post]
func (h *ProgressHandler) LogActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req logRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if (req.TopicID == nil) == (req.SubjectID == nil) {
		writeError(w, r, h.log, apperr.Validation("exactly one of topicId or subjectId is required"))
		return
	}

	ctx := r.Context()
	var res services.LogResult
	if req.TopicID != nil {
		if _, err := h.store.TopicOwnedBy(ctx, userID, *req.TopicID); err != nil {
			writeError(w, r, h.log, err)
			return
		}
		res, err = h.tracker.LogActivity(ctx, userID, *req.TopicID, req.Minutes.Int(), req.Modules)
	} else {
		if req.Modules != 0 {
			writeError(w, r, h.log, apperr.Validation("manual time entries cannot log modules"))
			return
		}
		if _, err := h.store.SubjectOwnedBy(ctx, userID, *req.SubjectID); err != nil {
			writeError(w, r, h.log, err)
			return
		}
		res, err = h.tracker.LogManualTime(ctx, userID, *req.SubjectID, req.Minutes.Int())
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if res.StreakChanged {
		h.board.Invalidate(ctx)
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListLogs returns the caller's recent logs, newest first. ?limit= caps the count.
func (h *ProgressHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			writeError(w, r, h.log, apperr.Validation("invalid limit"))
			return
		}
	}
	logs, err := h.store.ListActivityLogs(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

type editLogRequest struct {
	Minutes progress.Minutes `json:"minutes" validate:"gte=0,lte=1000000"`
	Modules int              `json:"modules" validate:"gte=0,lte=10000"`
}

func (h *ProgressHandler) EditLog(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req editLogRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.tracker.EditActivityLog(r.Context(), userID, id, req.Minutes.Int(), req.Modules)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ResetProgress deletes the caller's syllabus and its logs. Streak and
// achievements are kept.
func (h *ProgressHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	n, err := h.tracker.ResetProgress(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "progress reset",
		"deletedSubjects": n,
	})
}
