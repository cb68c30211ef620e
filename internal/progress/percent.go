package progress

import (
	"math"

	"studytrack/internal/models"
)

// Totals is a done/target pair in the unit of the user's tracking mode.
type Totals struct {
	Done   int `json:"done"`
	Target int `json:"target"`
}

func (t Totals) Add(o Totals) Totals {
	return Totals{Done: t.Done + o.Done, Target: t.Target + o.Target}
}

func (t Totals) Percent() int { return Percent(t.Done, t.Target) }

func (t Totals) Remaining() int {
	if r := t.Target - t.Done; r > 0 {
		return r
	}
	return 0
}

// Percent is round(100*done/target) clamped to [0, 100]; a zero target is 0%.
func Percent(done, target int) int {
	if target <= 0 || done <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(done) / float64(target)))
	if p > 100 {
		return 100
	}
	return p
}

func TopicTotals(t models.Topic, mode models.TrackingMode) Totals {
	if mode == models.TrackingModule {
		return Totals{Done: t.CompletedModules, Target: t.TotalModules}
	}
	return Totals{Done: t.LoggedMinutes, Target: t.EstimatedMinutes}
}

// SubjectTotals sums the topics; manual subject time only counts in time mode.
func SubjectTotals(s models.SubjectTree, mode models.TrackingMode) Totals {
	var out Totals
	for _, t := range s.Topics {
		out = out.Add(TopicTotals(t, mode))
	}
	if mode != models.TrackingModule {
		out.Done += s.ManualTimeMinutes
	}
	return out
}

func OverallTotals(subjects []models.SubjectTree, mode models.TrackingMode) Totals {
	var out Totals
	for _, s := range subjects {
		out = out.Add(SubjectTotals(s, mode))
	}
	return out
}
