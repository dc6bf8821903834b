package calendar

import (
	"sort"
	"time"

	"inboxiq/core/domain"
)

// FreeSlots walks events in start order and returns every gap in
// [from, to) at least duration long, including the tail after the last event.
func FreeSlots(events []*domain.CalendarEvent, from, to time.Time, duration time.Duration) []domain.FreeSlot {
	if duration <= 0 || !to.After(from) {
		return nil
	}

	sorted := make([]*domain.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if ev != nil && ev.End.After(ev.Start) {
			sorted = append(sorted, ev)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var slots []domain.FreeSlot
	cursor := from
	for _, ev := range sorted {
		if !ev.End.After(cursor) {
			continue
		}
		start := ev.Start
		if start.After(to) {
			start = to
		}
		if start.Sub(cursor) >= duration {
			slots = append(slots, newSlot(cursor, start))
		}
		cursor = ev.End
		if !cursor.Before(to) {
			return slots
		}
	}
	if to.Sub(cursor) >= duration {
		slots = append(slots, newSlot(cursor, to))
	}
	return slots
}

func newSlot(start, end time.Time) domain.FreeSlot {
	return domain.FreeSlot{Start: start, End: end, DurationMinutes: int(end.Sub(start) / time.Minute)}
}
