package progress

import (
	"math"
	"time"

	"studytrack/internal/models"
)

// DaysUntil is ceil((target - today) / 24h).
func DaysUntil(today, target time.Time) int {
	return int(math.Ceil(target.Sub(today).Hours() / 24))
}

// DailyGoal spreads the remaining work over the days left before target. With
// no target there is no pacing pressure; on or after the target everything is
// due today.
func DailyGoal(remaining int, target *time.Time, today time.Time) float64 {
	if target == nil || remaining <= 0 {
		return 0
	}
	days := DaysUntil(today, *target)
	if days <= 0 {
		return float64(remaining)
	}
	return float64(remaining) / float64(max(1, days))
}

type TopicSummary struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Totals  Totals `json:"totals"`
	Percent int    `json:"percent"`
}

type SubjectSummary struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	Totals    Totals         `json:"totals"`
	Percent   int            `json:"percent"`
	Remaining int            `json:"remaining"`
	Topics    []TopicSummary `json:"topics"`
}

type Summary struct {
	TrackingMode    models.TrackingMode `json:"tracking_mode"`
	Today           string              `json:"today"`
	TargetDate      *string             `json:"target_date,omitempty"`
	DaysUntilTarget *int                `json:"days_until_target,omitempty"`
	Totals          Totals              `json:"totals"`
	Percent         int                 `json:"percent"`
	Remaining       int                 `json:"remaining"`
	RemainingTime   string              `json:"remaining_time,omitempty"`
	DailyGoal       float64             `json:"daily_goal"`
	CurrentStreak   int                 `json:"current_streak"`
	Subjects        []SubjectSummary    `json:"subjects"`
}

// Summarize derives every display number for a syllabus from raw counters.
// today and target are calendar dates.
func Summarize(subjects []models.SubjectTree, user models.User, today time.Time) Summary {
	mode := user.TrackingMode
	if mode == "" {
		mode = models.TrackingTime
	}

	out := Summary{
		TrackingMode:  mode,
		Today:         FormatDate(today),
		CurrentStreak: user.CurrentStreak,
		Subjects:      make([]SubjectSummary, 0, len(subjects)),
	}
	for _, s := range subjects {
		st := SubjectTotals(s, mode)
		ss := SubjectSummary{
			ID:        s.ID,
			Name:      s.Name,
			Totals:    st,
			Percent:   st.Percent(),
			Remaining: st.Remaining(),
			Topics:    make([]TopicSummary, 0, len(s.Topics)),
		}
		for _, t := range s.Topics {
			tt := TopicTotals(t, mode)
			ss.Topics = append(ss.Topics, TopicSummary{ID: t.ID, Name: t.Name, Totals: tt, Percent: tt.Percent()})
		}
		out.Subjects = append(out.Subjects, ss)
		out.Totals = out.Totals.Add(st)
	}
	out.Percent = out.Totals.Percent()
	out.Remaining = out.Totals.Remaining()
	if mode == models.TrackingTime {
		out.RemainingTime = FormatTime(out.Remaining)
	}
	out.DailyGoal = DailyGoal(out.Remaining, user.TargetDate, today)
	if user.TargetDate != nil {
		d := FormatDate(*user.TargetDate)
		days := DaysUntil(today, *user.TargetDate)
		out.TargetDate = &d
		out.DaysUntilTarget = &days
	}
	return out
}
