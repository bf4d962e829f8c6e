package sync

import (
	"fmt"
	"strings"
	"time"

	"subsplash-sync/internal/event"
)

// MatchTolerance is the band within which two timed events with the same
// title are considered the same occurrence. It absorbs parsing and
// rounding drift between runs without collapsing distinct occurrences of a
// recurring title on different days.
const MatchTolerance = 5 * time.Minute

// Engine decides Create / Update / Skip for each canonical event against
// the existing target-store records.
type Engine struct {
	// UpdateOnMatch switches a tolerance-window match from Skip to
	// Update, so later edits to description or location propagate to
	// records created by earlier runs. Off by default: the reference
	// behavior treats a match as "already present".
	UpdateOnMatch bool
}

// Reconcile produces one decision per event. Events never match records
// with a different (case-insensitive) title, all-day events never match
// timed records, and vice versa.
func (e Engine) Reconcile(events []event.CanonicalEvent, existing []event.ExistingRecord) []event.Decision {
	// Index existing records by lowercased title; each incoming event
	// only ever competes with same-titled records.
	byTitle := make(map[string][]event.ExistingRecord, len(existing))
	for _, rec := range existing {
		key := strings.ToLower(strings.TrimSpace(rec.Title))
		byTitle[key] = append(byTitle[key], rec)
	}

	decisions := make([]event.Decision, 0, len(events))
	for _, ev := range events {
		candidates := byTitle[strings.ToLower(strings.TrimSpace(ev.Title))]
		decisions = append(decisions, e.decide(ev, candidates))
	}
	return decisions
}

func (e Engine) decide(ev event.CanonicalEvent, candidates []event.ExistingRecord) event.Decision {
	for _, rec := range candidates {
		if !e.matches(ev, rec) {
			continue
		}
		if e.UpdateOnMatch {
			return event.Decision{Event: ev, Action: event.ActionUpdate, ExistingID: rec.ID}
		}
		return event.Decision{
			Event:  ev,
			Action: event.ActionSkip,
			Reason: fmt.Sprintf("duplicate of existing event %s", rec.ID),
		}
	}
	return event.Decision{Event: ev, Action: event.ActionCreate}
}

func (e Engine) matches(ev event.CanonicalEvent, rec event.ExistingRecord) bool {
	if ev.AllDay != rec.AllDay {
		return false
	}
	if ev.AllDay {
		// Title plus calendar date is the full identity for all-day
		// events.
		return sameDate(ev.Start, rec.Start)
	}
	diff := ev.Start.Sub(rec.Start)
	if diff < 0 {
		diff = -diff
	}
	return diff < MatchTolerance
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
