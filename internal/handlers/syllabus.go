package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"studytrack/internal/apperr"
	"studytrack/internal/models"
	"studytrack/internal/progress"
	"studytrack/internal/store"
)

var errNameRequired = apperr.Validation("name is required")

// DefaultTopicEstimate is the estimate given to topics created without one.
const DefaultTopicEstimate = 720

type SyllabusStore interface {
	SyllabusTree(ctx context.Context, userID int) ([]models.SubjectTree, error)
	CreateSubject(ctx context.Context, userID int, name string) (models.Subject, error)
	RenameSubject(ctx context.Context, userID, subjectID int, name string) (models.Subject, error)
	DeleteSubject(ctx context.Context, userID, subjectID int) error
	CreateTopic(ctx context.Context, userID int, t store.NewTopic) (models.Topic, error)
	UpdateTopic(ctx context.Context, userID, topicID int, u store.TopicUpdate) (models.Topic, error)
	DeleteTopic(ctx context.Context, userID, topicID int) error
}

type SyllabusHandler struct {
	store SyllabusStore
	log   *zap.Logger
}

func NewSyllabusHandler(s SyllabusStore, log *zap.Logger) *SyllabusHandler {
	return &SyllabusHandler{store: s, log: log}
}

// Get returns the caller's subjects with their topics and raw counters.
func (h *SyllabusHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	tree, err := h.store.SyllabusTree(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

type subjectRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

func (h *SyllabusHandler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req subjectRequest
	if err := decodeName(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	s, err := h.store.CreateSubject(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.SubjectTree{Subject: s, Topics: []models.Topic{}})
}

func (h *SyllabusHandler) RenameSubject(w http.ResponseWriter, r *http.Request) {
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
	var req subjectRequest
	if err := decodeName(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	s, err := h.store.RenameSubject(r.Context(), userID, id, req.Name)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// decodeName trims the name before validating so "   " is rejected.
func decodeName(r *http.Request, req *subjectRequest) error {
	if err := decode(r, req); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return errNameRequired
	}
	return nil
}

func (h *SyllabusHandler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
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
	if err := h.store.DeleteSubject(r.Context(), userID, id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createTopicRequest struct {
	SubjectID        int               `json:"subjectId" validate:"required,gt=0"`
	Name             string            `json:"name" validate:"required,max=200"`
	EstimatedMinutes *progress.Minutes `json:"estimatedMinutes" validate:"omitempty,gte=0,lte=1000000"`
	TotalModules     *int              `json:"totalModules" validate:"omitempty,gte=0,lte=10000"`
}

func (h *SyllabusHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req createTopicRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	t := store.NewTopic{
		SubjectID:        req.SubjectID,
		Name:             strings.TrimSpace(req.Name),
		EstimatedMinutes: DefaultTopicEstimate,
	}
	if t.Name == "" {
		writeError(w, r, h.log, errNameRequired)
		return
	}
	if req.EstimatedMinutes != nil {
		t.EstimatedMinutes = req.EstimatedMinutes.Int()
	}
	if req.TotalModules != nil {
		t.TotalModules = *req.TotalModules
	}
	topic, err := h.store.CreateTopic(r.Context(), userID, t)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

type updateTopicRequest struct {
	Name             *string           `json:"name" validate:"omitempty,min=1,max=200"`
	EstimatedMinutes *progress.Minutes `json:"estimatedMinutes" validate:"omitempty,gte=0,lte=1000000"`
	TotalModules     *int              `json:"totalModules" validate:"omitempty,gte=0,lte=10000"`
	IsCompleted      *bool             `json:"isCompleted"`
}

// UpdateTopic edits targets. Logged counters are only moved by activity logs.
func (h *SyllabusHandler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
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
	var req updateTopicRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	upd := store.TopicUpdate{TotalModules: req.TotalModules, IsCompleted: req.IsCompleted}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, r, h.log, errNameRequired)
			return
		}
		upd.Name = &name
	}
	if req.EstimatedMinutes != nil {
		est := req.EstimatedMinutes.Int()
		upd.EstimatedMinutes = &est
	}
	topic, err := h.store.UpdateTopic(r.Context(), userID, id, upd)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

func (h *SyllabusHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
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
	if err := h.store.DeleteTopic(r.Context(), userID, id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
