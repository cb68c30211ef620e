package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MaxMinutes bounds a single logged amount or topic estimate.
	MaxMinutes = 1_000_000
	// MaxModules bounds a single logged module count or topic total.
	MaxModules = 10_000
)

var ErrMinutesOutOfRange = errors.New("minutes out of range")

var (
	bareIntRe    = regexp.MustCompile(`^\d+$`)
	leadingIntRe = regexp.MustCompile(`^[+-]?\d+`)
	hoursRe      = regexp.MustCompile(`(\d+)\s*h`)
	minutesRe    = regexp.MustCompile(`(\d+)\s*m`)
	secondsRe    = regexp.MustCompile(`(\d+)\s*s`)
)

// ParseTime turns user input like "1h 30m", "45m" or "90" into minutes.
// Hours and minutes groups are independent and optional; more than 30 seconds
// rounds up a minute. Anything unparseable is 0. The result saturates just
// above MaxMinutes so oversized input stays detectable without overflowing.
func ParseTime(input string) int {
	clean := strings.ToLower(strings.TrimSpace(input))
	if clean == "" {
		return 0
	}
	if bareIntRe.MatchString(clean) {
		return atoi(clean)
	}

	total := 0
	if m := hoursRe.FindStringSubmatch(clean); m != nil {
		total += min(atoi(m[1]), saturated/60+1) * 60
	}
	if m := minutesRe.FindStringSubmatch(clean); m != nil {
		total += atoi(m[1])
	}
	if m := secondsRe.FindStringSubmatch(clean); m != nil && atoi(m[1]) > 30 {
		total++
	}
	if total > 0 {
		return min(total, saturated)
	}
	if lead := leadingIntRe.FindString(clean); lead != "" {
		if n := atoi(lead); n > 0 {
			return n
		}
	}
	return 0
}

const saturated = MaxMinutes + 1

// atoi parses a digit run, saturating instead of failing on overflow.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(s, "-") {
			return saturated
		}
		return 0
	}
	return min(n, saturated)
}

// FormatTime renders minutes the way ParseTime reads them back.
func FormatTime(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// Minutes decodes from either a JSON number or a time string such as "12h".
// Amounts beyond MaxMinutes in either direction fail with ErrMinutesOutOfRange;
// negative values inside the bound decode so validation can report them.
type Minutes int

func (m *Minutes) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("minutes: %w", err)
		}
		n := ParseTime(s)
		if n > MaxMinutes {
			return fmt.Errorf("minutes: %w", ErrMinutesOutOfRange)
		}
		*m = Minutes(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("minutes: %w", err)
	}
	f = math.Round(f)
	if math.IsNaN(f) || math.Abs(f) > MaxMinutes {
		return fmt.Errorf("minutes: %w", ErrMinutesOutOfRange)
	}
	*m = Minutes(f)
	return nil
}

func (m Minutes) Int() int { return int(m) }
