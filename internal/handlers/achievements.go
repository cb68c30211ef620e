package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"studytrack/internal/models"
)

type CatalogStore interface {
	ListAchievements(ctx context.Context) ([]models.Achievement, error)
}

type AchievementHandler struct {
	store CatalogStore
	log   *zap.Logger
}

func NewAchievementHandler(s CatalogStore, log *zap.Logger) *AchievementHandler {
	return &AchievementHandler{store: s, log: log}
}

func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.ListAchievements(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}
