package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"subsplash-sync/internal/event"
)

// Parse failures. All of them are local to one fragment: the caller logs
// the reason and drops the fragment, the batch continues.
var (
	// ErrNoMatch means no grammar rule recognized the text.
	ErrNoMatch = errors.New("no recognized date pattern")

	// ErrMonthYearOnly marks the ambiguous "August 2025" shape. It is
	// rejected explicitly: defaulting the day to 1 would invent events
	// that never existed.
	ErrMonthYearOnly = errors.New("month and year without a day")

	// ErrInvalidInterval marks a parsed range whose end is not after its
	// start. Never auto-corrected.
	ErrInvalidInterval = errors.New("end is not after start")
)

// DefaultDuration is assumed when only a start time is known.
const DefaultDuration = time.Hour

// timeTok is the shared time-token grammar: hour, optional minutes,
// optional am/pm marker ("6:30a", "5:15pm", "10:00", "7p").
const timeTok = `\d{1,2}(?::\d{2})?\s*(?:am|pm|a|p)?`

var (
	timeTokenRe = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s*(am|pm|a|p)?$`)

	// "August 20, 2025 from 6:00pm - 8:00pm"
	singleDayRe = regexp.MustCompile(`(?i)([a-z]+)\s+(\d{1,2}),?\s+(\d{4})\s+from\s+(` + timeTok + `)\s*[-\x{2013}]\s*(` + timeTok + `)`)

	// "August 20, 6:00pm - August 22, 2025 11:00am"; the start date has
	// no year of its own.
	multiDayRe = regexp.MustCompile(`(?i)([a-z]+)\s+(\d{1,2}),?\s+(` + timeTok + `)\s*[-\x{2013}]\s*([a-z]+)\s+(\d{1,2}),?\s+(\d{4})\s+(` + timeTok + `)`)

	// "August 20, 2025" with nothing else usable.
	bareDateRe = regexp.MustCompile(`(?i)\b([a-z]+)\s+(\d{1,2}),?\s+(\d{4})\b`)

	// "August 2025" - recognized only so it can be rejected by name.
	monthYearRe = regexp.MustCompile(`(?i)\b([a-z]+)\s+(\d{4})\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// ParseInterval converts one fragment's date/time information into a
// ParsedInterval, applying the display-skew timezone correction to timed
// events. Grammar rules are tried in a fixed priority order; the first
// match wins. A structural date token on the fragment short-circuits text
// parsing entirely, since it is the only unambiguous source of a date.
func ParseInterval(frag event.RawFragment) (*event.ParsedInterval, error) {
	iv, err := parseRaw(frag)
	if err != nil {
		return nil, err
	}
	if !iv.AllDay {
		corrected := CorrectInterval(*iv)
		iv = &corrected
	}
	return iv, nil
}

func parseRaw(frag event.RawFragment) (*event.ParsedInterval, error) {
	if frag.DateToken != "" {
		return ruleGridCell(frag)
	}

	text := frag.Text()
	if iv, err := ruleSingleDayRange(text); err == nil {
		return iv, nil
	} else if !errors.Is(err, ErrNoMatch) {
		return nil, err
	}
	if iv, err := ruleMultiDayRange(text); err == nil {
		return iv, nil
	} else if !errors.Is(err, ErrNoMatch) {
		return nil, err
	}
	if iv, err := ruleBareDate(text); err == nil {
		return iv, nil
	} else if !errors.Is(err, ErrNoMatch) {
		return nil, err
	}
	if m := monthYearRe.FindStringSubmatch(text); m != nil {
		if _, ok := monthsByName[strings.ToLower(m[1])]; ok {
			return nil, ErrMonthYearOnly
		}
	}
	return nil, ErrNoMatch
}

// ruleGridCell handles the month-grid shape: the containing cell names the
// date ("2025-08-21") and the fragment carries at most a short time token
// ("6:30a"). This is the most reliable path.
func ruleGridCell(frag event.RawFragment) (*event.ParsedInterval, error) {
	day, err := time.Parse("2006-01-02", frag.DateToken)
	if err != nil {
		return nil, fmt.Errorf("bad structural date token %q: %w", frag.DateToken, err)
	}

	if strings.TrimSpace(frag.TimeHint) == "" {
		return allDayOn(day), nil
	}

	hour, min, err := parseTimeToken(frag.TimeHint)
	if err != nil {
		return nil, err
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.UTC)
	return &event.ParsedInterval{Start: start, End: start.Add(DefaultDuration)}, nil
}

// ruleSingleDayRange handles "August 20, 2025 from 6:00pm - 8:00pm".
func ruleSingleDayRange(text string) (*event.ParsedInterval, error) {
	m := singleDayRe.FindStringSubmatch(text)
	if m == nil {
		return nil, ErrNoMatch
	}
	day, err := dateOf(m[1], m[2], m[3])
	if err != nil {
		return nil, err
	}
	startH, startM, err := parseTimeToken(m[4])
	if err != nil {
		return nil, err
	}
	endH, endM, err := parseTimeToken(m[5])
	if err != nil {
		return nil, err
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), startH, startM, 0, 0, time.UTC)
	end := time.Date(day.Year(), day.Month(), day.Day(), endH, endM, 0, 0, time.UTC)
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}
	return &event.ParsedInterval{Start: start, End: end}, nil
}

// ruleMultiDayRange handles "August 20, 6:00pm - August 22, 2025 11:00am".
// The start date carries no year of its own and inherits the end date's
// year; if that puts the start after the end (a December-to-January span),
// the start year is moved back by one. Inherently ambiguous near year
// boundaries.
func ruleMultiDayRange(text string) (*event.ParsedInterval, error) {
	m := multiDayRe.FindStringSubmatch(text)
	if m == nil {
		return nil, ErrNoMatch
	}
	end, err := dateOf(m[4], m[5], m[6])
	if err != nil {
		return nil, err
	}
	endH, endM, err := parseTimeToken(m[7])
	if err != nil {
		return nil, err
	}
	startMonth, ok := monthsByName[strings.ToLower(m[1])]
	if !ok {
		return nil, fmt.Errorf("unknown month %q: %w", m[1], ErrNoMatch)
	}
	startDay, err := strconv.Atoi(m[2])
	if err != nil || startDay < 1 || startDay > 31 {
		return nil, ErrNoMatch
	}
	startH, startM, err := parseTimeToken(m[3])
	if err != nil {
		return nil, err
	}

	endTime := time.Date(end.Year(), end.Month(), end.Day(), endH, endM, 0, 0, time.UTC)
	startTime := time.Date(end.Year(), startMonth, startDay, startH, startM, 0, 0, time.UTC)
	if startTime.After(endTime) {
		startTime = startTime.AddDate(-1, 0, 0)
	}
	if !endTime.After(startTime) {
		return nil, ErrInvalidInterval
	}
	return &event.ParsedInterval{Start: startTime, End: endTime}, nil
}

// ruleBareDate handles "August 20, 2025" with no time: a full-day event.
func ruleBareDate(text string) (*event.ParsedInterval, error) {
	m := bareDateRe.FindStringSubmatch(text)
	if m == nil {
		return nil, ErrNoMatch
	}
	day, err := dateOf(m[1], m[2], m[3])
	if err != nil {
		return nil, err
	}
	return allDayOn(day), nil
}

func allDayOn(day time.Time) *event.ParsedInterval {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return &event.ParsedInterval{Start: start, End: start.AddDate(0, 0, 1), AllDay: true}
}

func dateOf(monthName, dayStr, yearStr string) (time.Time, error) {
	month, ok := monthsByName[strings.ToLower(monthName)]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q: %w", monthName, ErrNoMatch)
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, ErrNoMatch
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, ErrNoMatch
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// parseTimeToken parses one time token per the shared grammar. Missing
// minutes default to :00. Hour 12 under am maps to 0, pm adds 12 to hours
// below 12, and a bare hour with no marker is read as 24-hour time.
func parseTimeToken(tok string) (hour, min int, err error) {
	m := timeTokenRe.FindStringSubmatch(strings.TrimSpace(tok))
	if m == nil {
		return 0, 0, fmt.Errorf("bad time token %q", tok)
	}
	hour, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad time token %q", tok)
	}
	if m[2] != "" {
		min, err = strconv.Atoi(m[2])
		if err != nil || min > 59 {
			return 0, 0, fmt.Errorf("bad time token %q", tok)
		}
	}

	marker := strings.ToLower(m[3])
	switch {
	case marker == "":
		if hour > 23 {
			return 0, 0, fmt.Errorf("bad time token %q", tok)
		}
	case marker[0] == 'a':
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("bad time token %q", tok)
		}
		if hour == 12 {
			hour = 0
		}
	case marker[0] == 'p':
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("bad time token %q", tok)
		}
		if hour != 12 {
			hour += 12
		}
	}
	return hour, min, nil
}
