package calendar

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	defaultStartHour   = 9
	defaultEveningHour = 19
)

var (
	clockPattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	bareClock    = regexp.MustCompile(`^(?:at\s+|@\s*)?\d{1,2}(?::\d{2}\s*(?:am|pm)?|\s*(?:am|pm))$`)
	weekdays     = map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
		"saturday": time.Saturday,
	}
)

// ResolveWhen turns phrases like "tomorrow at 3pm", "Friday" or "next week"
// into a start time in loc. Absolute dates go through dateparse.
func ResolveWhen(when string, now time.Time, loc *time.Location) (time.Time, bool) {
	when = strings.TrimSpace(when)
	if when == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	lower := strings.ToLower(when)

	day, ok := relativeDay(lower, now)
	if !ok {
		t, err := dateparse.ParseIn(when, loc)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	hour, minute := defaultStartHour, 0
	if strings.Contains(lower, "tonight") {
		hour = defaultEveningHour
	}
	if h, m, found := clock(lower); found {
		hour, minute = h, m
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), true
}

func relativeDay(lower string, now time.Time) (time.Time, bool) {
	switch {
	case strings.Contains(lower, "today"), strings.Contains(lower, "tonight"):
		return now, true
	case strings.Contains(lower, "tomorrow"):
		return now.AddDate(0, 0, 1), true
	case strings.Contains(lower, "next week"):
		return now.AddDate(0, 0, 7), true
	}
	for name, wd := range weekdays {
		if strings.Contains(lower, name) {
			ahead := (int(wd) - int(now.Weekday()) + 7) % 7
			if ahead == 0 {
				ahead = 7
			}
			return now.AddDate(0, 0, ahead), true
		}
	}
	// A bare clock time means today.
	if bareClock.MatchString(lower) {
		return now, true
	}
	return time.Time{}, false
}

// clock reads "3pm", "10:30am" or "15:00". A bare number without am/pm or
// minutes is not a time.
func clock(lower string) (int, int, bool) {
	for _, m := range clockPattern.FindAllStringSubmatch(lower, -1) {
		if m[2] == "" && m[3] == "" {
			continue
		}
		h, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		switch m[3] {
		case "pm":
			if h < 12 {
				h += 12
			}
		case "am":
			if h == 12 {
				h = 0
			}
		}
		if h > 23 || minute > 59 {
			continue
		}
		return h, minute, true
	}
	return 0, 0, false
}
