package extract

import (
	"log"
	"time"

	"subsplash-sync/internal/event"
)

// The widget renders event times shifted by the source's UTC offset, so the
// naively-parsed wall-clock value has to be pulled back by 4 hours while
// Daylight Saving Time is in effect and 5 hours otherwise (US Eastern).
const (
	dstOffset      = 4 * time.Hour
	standardOffset = 5 * time.Hour
)

// CorrectInterval shifts a naively-parsed timed interval by the DST-aware
// display skew. The start moves back by the offset; the end is recomputed
// from the original duration so the duration is preserved. All-day
// intervals are returned unchanged.
func CorrectInterval(iv event.ParsedInterval) event.ParsedInterval {
	if iv.AllDay {
		return iv
	}
	duration := iv.End.Sub(iv.Start)
	start := iv.Start.Add(-OffsetFor(iv.Start))
	return event.ParsedInterval{Start: start, End: start.Add(duration)}
}

// OffsetFor returns the correction for a given event date: 4 hours within
// the US DST window (second Sunday of March up to, but not including, the
// first Sunday of November), 5 hours outside it. A date the window cannot
// be computed for falls back to 4 hours with a logged warning rather than
// failing the event.
func OffsetFor(date time.Time) time.Duration {
	if date.IsZero() {
		log.Printf("Warning: cannot compute DST window for zero date, using %v offset", dstOffset)
		return dstOffset
	}

	year := date.Year()
	dstStart := nthWeekdayOfMonth(year, time.March, time.Sunday, 2)
	dstEnd := nthWeekdayOfMonth(year, time.November, time.Sunday, 1)

	day := time.Date(year, date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if !day.Before(dstStart) && day.Before(dstEnd) {
		return dstOffset
	}
	return standardOffset
}

// nthWeekdayOfMonth finds the nth occurrence of a weekday within a month:
// the first occurrence, plus (n-1) weeks.
func nthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	day := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for day.Weekday() != weekday {
		day = day.AddDate(0, 0, 1)
	}
	return day.AddDate(0, 0, (n-1)*7)
}
