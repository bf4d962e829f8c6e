// Package event holds the data model shared by the extraction pipeline
// and the reconciliation engine.
package event

import "time"

// RawFragment is one unit of scraped text believed to describe zero or one
// calendar event. Fragments are ephemeral: they exist between scraping and
// normalization and are discarded afterwards.
type RawFragment struct {
	// Lines are the fragment's text lines in render order.
	Lines []string

	// TimeHint is a sibling time substring when the widget renders the
	// time in its own element (e.g. "6:30a"). Empty when absent.
	TimeHint string

	// DateToken is the containing cell's date attribute when available
	// (e.g. "2025-08-21"). A structural date token is always preferred
	// over dates parsed out of the fragment text.
	DateToken string

	// SourceURL is the event detail link, if the widget exposes one.
	SourceURL string
}

// Text returns the fragment's lines joined into a single blob, which is the
// form the date/time grammar rules operate on.
func (f RawFragment) Text() string {
	out := ""
	for i, line := range f.Lines {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}

// ParsedInterval is the structured start/end produced by the date/time
// parser. For all-day events End is the start of the following day.
type ParsedInterval struct {
	Start  time.Time
	End    time.Time
	AllDay bool
}

// CanonicalEvent is a fully normalized event record, ready for
// reconciliation and for the apply sink.
type CanonicalEvent struct {
	Title       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Location    string
	Description string
	SourceRef   string

	// IdentityKey is the deduplication unit: lower-cased title plus the
	// start time rounded to 5 minutes (or the calendar date for all-day
	// events). Events sharing a key within one run collapse to one.
	IdentityKey string
}

// ExistingRecord is a snapshot of an event already present in the target
// calendar, supplied by the existing-record source for the batch's window.
type ExistingRecord struct {
	ID     string
	Title  string
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Action classifies what the reconciliation engine decided for one event.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
	ActionError  Action = "error"
)

// Decision is the engine's verdict for a single CanonicalEvent.
type Decision struct {
	Event  CanonicalEvent
	Action Action

	// ExistingID is set for ActionUpdate: the target-store ID to update.
	ExistingID string

	// Reason is set for ActionSkip and ActionError.
	Reason string
}

// DetailEntry is one line of a run summary.
type DetailEntry struct {
	Action Action `json:"action"`
	Title  string `json:"title"`
	Reason string `json:"reason,omitempty"`
}

// Summary is the sole output artifact of one sync run.
type Summary struct {
	Source  string        `json:"source,omitempty"`
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Skipped int           `json:"skipped"`
	Errors  int           `json:"errors"`
	Details []DetailEntry `json:"details"`

	// Error is populated when the run failed before any events could be
	// processed (auth or extraction failure). Per-event apply failures
	// are counted in Errors instead.
	Error string `json:"error,omitempty"`
}

// Add folds a decision into the summary counters.
func (s *Summary) Add(d Decision) {
	switch d.Action {
	case ActionCreate:
		s.Created++
	case ActionUpdate:
		s.Updated++
	case ActionSkip:
		s.Skipped++
	case ActionError:
		s.Errors++
	}
	s.Details = append(s.Details, DetailEntry{Action: d.Action, Title: d.Event.Title, Reason: d.Reason})
}
