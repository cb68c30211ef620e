package progress

import (
	"time"

	"studytrack/internal/models"
)

type Transition string

const (
	TransitionStart     Transition = "start"
	TransitionExtend    Transition = "extend"
	TransitionReset     Transition = "reset"
	TransitionSameDay   Transition = "same_day"
	TransitionBackdated Transition = "backdated"
)

// Changed reports whether the transition has to be persisted.
func (t Transition) Changed() bool {
	return t == TransitionStart || t == TransitionExtend || t == TransitionReset
}

// NextStreak applies one qualifying activity on today (a calendar date) to prev.
// Activity dated before the last recorded day never shortens the streak or
// moves the date backwards.
func NextStreak(prev models.Streak, today time.Time) (models.Streak, Transition) {
	today = dateOnly(today)
	if prev.LastActivityDate == nil {
		return models.Streak{Current: 1, LastActivityDate: &today}, TransitionStart
	}

	diff := DaysBetween(*prev.LastActivityDate, today)
	switch {
	case diff == 0:
		return prev, TransitionSameDay
	case diff < 0:
		return prev, TransitionBackdated
	case diff == 1:
		current := prev.Current + 1
		if current < 1 {
			current = 1
		}
		return models.Streak{Current: current, LastActivityDate: &today}, TransitionExtend
	default:
		return models.Streak{Current: 1, LastActivityDate: &today}, TransitionReset
	}
}
