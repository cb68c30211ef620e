package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"studytrack/internal/apperr"
	"studytrack/internal/models"
	"studytrack/internal/progress"
)

type SummaryStore interface {
	UserByID(ctx context.Context, id int) (models.User, error)
	SyllabusTree(ctx context.Context, userID int) ([]models.SubjectTree, error)
}

type DashboardHandler struct {
	store SummaryStore
	days  progress.DayPolicy
	now   func() time.Time
	log   *zap.Logger
}

func NewDashboardHandler(s SummaryStore, days progress.DayPolicy, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{store: s, days: days, now: time.Now, log: log}
}

// Summary godoc
// @Summary Progress and pacing summary
// @Description Per-subject and overall completion, remaining work and the daily goal towards the target date.
// @Description Accepts optional query param local_date=YYYY-MM-DD to use as the user's "today".
// @Tags syllabus
// @Produce json
// @Security BearerAuth
// @Success 200 {object} progress.Summary
// @Failure 400 {object} errorBody
// @Router /syllabus/summary [get]
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	today := h.days.CalendarDate(h.now())
	if v := r.URL.Query().Get("local_date"); v != "" {
		today, err = time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, r, h.log, apperr.Validation("invalid local_date format; expected YYYY-MM-DD"))
			return
		}
	}

	user, err := h.store.UserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	tree, err := h.store.SyllabusTree(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, progress.Summarize(tree, user, today))
}
