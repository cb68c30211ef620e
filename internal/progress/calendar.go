package progress

import (
	"fmt"
	"math"
	"time"
)

// DayPolicy decides which calendar day an instant belongs to. Streaks and
// pacing only ever compare values produced by the same policy.
type DayPolicy struct {
	Location *time.Location
}

func UTCDays() DayPolicy { return DayPolicy{Location: time.UTC} }

// NewDayPolicy resolves an IANA zone name such as "Asia/Kolkata".
func NewDayPolicy(zone string) (DayPolicy, error) {
	if zone == "" {
		return UTCDays(), nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return DayPolicy{}, fmt.Errorf("load day timezone %q: %w", zone, err)
	}
	return DayPolicy{Location: loc}, nil
}

// CalendarDate truncates t to its day under the policy and returns that day
// at UTC midnight, which is how DATE columns round-trip through the driver.
func (p DayPolicy) CalendarDate(t time.Time) time.Time {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from one date to another. Both
// arguments are read in their own location, so pass calendar dates.
func DaysBetween(from, to time.Time) int {
	return int(math.Round(dateOnly(to).Sub(dateOnly(from)).Hours() / 24))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string { return t.Format("2006-01-02") }
