// Package sync drives one full extract-normalize-reconcile-apply cycle per
// configured source and reports a run summary.
package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"subsplash-sync/internal/config"
	"subsplash-sync/internal/event"
	"subsplash-sync/internal/extract"
)

// State names the phases of one sync run.
type State string

const (
	StateIdle           State = "idle"
	StateAuthenticating State = "authenticating"
	StateExtracting     State = "extracting"
	StateNormalizing    State = "normalizing"
	StateReconciling    State = "reconciling"
	StateApplying       State = "applying"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// recordWindowPad widens the existing-record window by a day on each side
// of the batch so boundary events are always visible to the matcher.
const recordWindowPad = 24 * time.Hour

// FragmentSource supplies raw fragments from a rendered widget page.
type FragmentSource interface {
	Fetch(ctx context.Context, url string) ([]event.RawFragment, error)
}

// TargetCalendar is the target store: existing-record source plus apply
// sink. Implemented by the Google Calendar client.
type TargetCalendar interface {
	ExistingRecords(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]event.ExistingRecord, error)
	CreateEvent(ctx context.Context, calendarID string, ev event.CanonicalEvent) (string, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, ev event.CanonicalEvent) error
}

// Syncer runs sync cycles against one fragment source and one target
// calendar, per the tool configuration.
type Syncer struct {
	source FragmentSource
	target TargetCalendar
	config *config.Config

	// DryRun reconciles but never calls the apply sink; decisions are
	// counted as if they had been applied.
	DryRun bool
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(source FragmentSource, target TargetCalendar, cfg *config.Config) *Syncer {
	return &Syncer{
		source: source,
		target: target,
		config: cfg,
	}
}

// SyncAll runs one cycle per configured source. One source failing does
// not stop the others; each source gets its own summary.
func (s *Syncer) SyncAll(ctx context.Context) []event.Summary {
	summaries := make([]event.Summary, 0, len(s.config.Sources))
	for _, src := range s.config.Sources {
		summaries = append(summaries, s.SyncSource(ctx, src))
	}
	return summaries
}

// SyncSource runs one full cycle for a single source. The run always
// produces a summary: a failure before any events could be processed
// populates Summary.Error, while per-event apply failures only increment
// the error count.
func (s *Syncer) SyncSource(ctx context.Context, src config.Source) event.Summary {
	summary := event.Summary{Source: src.Name, Details: []event.DetailEntry{}}
	state := StateIdle
	transition := func(next State) {
		state = next
		log.Printf("[%s] %s", src.Name, state)
	}

	transition(StateAuthenticating)
	if s.source == nil || s.target == nil {
		transition(StateFailed)
		summary.Error = "collaborators unavailable: not authenticated"
		return summary
	}

	transition(StateExtracting)
	frags, err := s.source.Fetch(ctx, src.URL)
	if err != nil {
		transition(StateFailed)
		summary.Error = fmt.Sprintf("extraction failed: %v", err)
		return summary
	}

	transition(StateNormalizing)
	normalizer := &extract.Normalizer{DefaultLocation: s.config.LocationFor(src)}
	events := normalizer.NormalizeBatch(frags)
	if len(events) == 0 {
		// A batch with nothing to sync is a successful no-op run.
		transition(StateDone)
		log.Printf("[%s] no events extracted", src.Name)
		return summary
	}

	transition(StateReconciling)
	timeMin, timeMax := recordWindow(events)
	existing, err := s.target.ExistingRecords(ctx, src.CalendarID, timeMin, timeMax)
	if err != nil {
		transition(StateFailed)
		summary.Error = fmt.Sprintf("failed to fetch existing records: %v", err)
		return summary
	}

	engine := Engine{UpdateOnMatch: s.config.UpdateOnMatch}
	decisions := engine.Reconcile(events, existing)

	transition(StateApplying)
	for _, d := range decisions {
		summary.Add(s.apply(ctx, src.CalendarID, d))
	}

	transition(StateDone)
	log.Printf("[%s] sync complete: %d created, %d updated, %d skipped, %d errors",
		src.Name, summary.Created, summary.Updated, summary.Skipped, summary.Errors)
	return summary
}

// apply executes one decision against the target calendar. A failed
// create or update becomes an error outcome for that event only; the
// batch continues.
func (s *Syncer) apply(ctx context.Context, calendarID string, d event.Decision) event.Decision {
	switch d.Action {
	case event.ActionCreate:
		if s.DryRun {
			log.Printf("Dry run: would create %q at %s", d.Event.Title, d.Event.Start)
			return d
		}
		id, err := s.target.CreateEvent(ctx, calendarID, d.Event)
		if err != nil {
			log.Printf("Warning: failed to create event %q: %v", d.Event.Title, err)
			return event.Decision{Event: d.Event, Action: event.ActionError, Reason: err.Error()}
		}
		log.Printf("Created event %q (%s)", d.Event.Title, id)
		return d

	case event.ActionUpdate:
		if s.DryRun {
			log.Printf("Dry run: would update %q (%s)", d.Event.Title, d.ExistingID)
			return d
		}
		if err := s.target.UpdateEvent(ctx, calendarID, d.ExistingID, d.Event); err != nil {
			log.Printf("Warning: failed to update event %q: %v", d.Event.Title, err)
			return event.Decision{Event: d.Event, Action: event.ActionError, Reason: err.Error()}
		}
		log.Printf("Updated event %q (%s)", d.Event.Title, d.ExistingID)
		return d

	default:
		return d
	}
}

// recordWindow computes the existing-record fetch window from the batch:
// a day before the earliest start to a day after the latest.
func recordWindow(events []event.CanonicalEvent) (time.Time, time.Time) {
	min := events[0].Start
	max := events[0].Start
	for _, ev := range events[1:] {
		if ev.Start.Before(min) {
			min = ev.Start
		}
		if ev.Start.After(max) {
			max = ev.Start
		}
	}
	return min.Add(-recordWindowPad), max.Add(recordWindowPad)
}
