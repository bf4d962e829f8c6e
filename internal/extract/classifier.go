package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Title length bounds. Anything shorter is a stray token, anything longer
// is almost always page prose rather than an event name.
const (
	minTitleLen = 4
	maxTitleLen = 99
)

// datetimeIndicators are substrings that mark a line as date/time noise
// rather than a title. Matching is case-insensitive substring matching.
var datetimeIndicators = []string{
	"january", "february", "march", "april", "may", "june", "july",
	"august", "september", "october", "november", "december",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"am", "pm", "edt", "est", "from", "to",
}

// ClassifyTitle picks the event title out of a fragment's text lines.
// A line qualifies when its length is within [4, 99], it starts with an
// uppercase letter, and it contains none of the datetime-indicator
// substrings. The first qualifying line wins; ok is false when no line
// qualifies and the caller should drop the fragment.
//
// Lines are expected to have time tokens already stripped (see CleanTitle);
// classification on raw lines still works but is more likely to reject
// titles that embed a rendered time.
func ClassifyTitle(lines []string) (string, bool) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if isTitleCandidate(line) {
			return line, true
		}
	}
	return "", false
}

func isTitleCandidate(line string) bool {
	n := utf8.RuneCountInString(line)
	if n < minTitleLen || n > maxTitleLen {
		return false
	}
	first, _ := utf8.DecodeRuneInString(line)
	if !unicode.IsUpper(first) {
		return false
	}
	lower := strings.ToLower(line)
	for _, indicator := range datetimeIndicators {
		if strings.Contains(lower, indicator) {
			return false
		}
	}
	return true
}
