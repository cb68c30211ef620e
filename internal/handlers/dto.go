package handlers

import (
	"time"

	"studytrack/internal/models"
)

// UserDTO renders DATE columns as YYYY-MM-DD and created_at as RFC3339.
type UserDTO struct {
	ID               int                 `json:"id"`
	Username         string              `json:"username"`
	Email            string              `json:"email"`
	SelectedExam     *string             `json:"selected_exam,omitempty"`
	TrackingMode     models.TrackingMode `json:"tracking_mode"`
	CurrentStreak    int                 `json:"current_streak"`
	LastActivityDate *string             `json:"last_activity_date,omitempty"`
	TargetDate       *string             `json:"target_date,omitempty"`
	IsPublic         bool                `json:"is_public"`
	Bio              *string             `json:"bio,omitempty"`
	CreatedAt        string              `json:"created_at"`
}

func toDateStringPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func ToUserDTO(u models.User) UserDTO {
	return UserDTO{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		SelectedExam:     u.SelectedExam,
		TrackingMode:     u.TrackingMode,
		CurrentStreak:    u.CurrentStreak,
		LastActivityDate: toDateStringPtr(u.LastActivityDate),
		TargetDate:       toDateStringPtr(u.TargetDate),
		IsPublic:         u.IsPublic,
		Bio:              u.Bio,
		CreatedAt:        u.CreatedAt.Format(time.RFC3339),
	}
}
