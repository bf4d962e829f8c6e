package extract

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"subsplash-sync/internal/event"
)

// identityRounding absorbs sub-5-minute jitter between scraping passes of
// the same source, so repeated runs derive the same identity key.
const identityRounding = 5 * time.Minute

var (
	// Time tokens embedded in title text: "6:30am", "10:30a", "18:00",
	// and bare "7pm". Bare numbers without a marker are left alone.
	embeddedTimeRe = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}(?:\s*(?:am|pm|a|p))?\b|\b\d{1,2}\s*(?:am|pm)\b`)

	multiSpaceRe   = regexp.MustCompile(`\s+`)
	edgePunctRe    = regexp.MustCompile(`^[^\p{L}\p{N}]+|[^\p{L}\p{N}]+$`)
	leadingNumRe   = regexp.MustCompile(`^\d+\s+`)
	edgeMeridiemRe = regexp.MustCompile(`(?i)^(?:am|pm|a|p)\b\s*|\s*\b(?:am|pm|a|p)$`)
)

// Normalizer assembles classified titles and parsed intervals into
// canonical events and deduplicates within one extraction batch.
type Normalizer struct {
	// DefaultLocation is the per-source location applied when the
	// fragment carries none.
	DefaultLocation string
}

// NormalizeBatch runs the full fragment pipeline: title classification,
// date/time parsing with timezone correction, field defaulting, and
// in-batch dedup by identity key (first seen wins). Fragments that fail a
// stage are dropped with a logged reason; a dropped fragment never aborts
// the batch.
func (n *Normalizer) NormalizeBatch(frags []event.RawFragment) []event.CanonicalEvent {
	var out []event.CanonicalEvent
	seen := make(map[string]bool)

	for i, frag := range frags {
		ev, err := n.normalizeOne(frag)
		if err != nil {
			log.Printf("Warning: dropping fragment %d: %v", i, err)
			continue
		}
		if seen[ev.IdentityKey] {
			log.Printf("Duplicate within batch, keeping first: %s", ev.IdentityKey)
			continue
		}
		seen[ev.IdentityKey] = true
		out = append(out, ev)
	}

	return out
}

func (n *Normalizer) normalizeOne(frag event.RawFragment) (event.CanonicalEvent, error) {
	// Strip time tokens before title qualification so lines like
	// "6:30am 10:30a Early Morning Prayer" can still qualify.
	stripped := make([]string, 0, len(frag.Lines))
	for _, line := range frag.Lines {
		if clean := CleanTitle(line); clean != "" {
			stripped = append(stripped, clean)
		}
	}

	title, ok := ClassifyTitle(stripped)
	if !ok {
		// Fall back to the raw lines in case stripping consumed the
		// title entirely.
		title, ok = ClassifyTitle(frag.Lines)
	}
	if !ok {
		return event.CanonicalEvent{}, fmt.Errorf("no title candidate in %q", frag.Lines)
	}

	iv, err := ParseInterval(frag)
	if err != nil {
		return event.CanonicalEvent{}, fmt.Errorf("parsing %q: %w", title, err)
	}
	if !iv.AllDay && !iv.End.After(iv.Start) {
		return event.CanonicalEvent{}, fmt.Errorf("parsing %q: %w", title, ErrInvalidInterval)
	}

	return event.CanonicalEvent{
		Title:       title,
		Start:       iv.Start,
		End:         iv.End,
		AllDay:      iv.AllDay,
		Location:    n.DefaultLocation,
		Description: "",
		SourceRef:   frag.SourceURL,
		IdentityKey: IdentityKey(title, iv.Start, iv.AllDay),
	}, nil
}

// CleanTitle strips recognized time tokens from a title line, collapses
// repeated whitespace, and trims stray punctuation, leading numbers, and
// leftover am/pm remnants.
func CleanTitle(line string) string {
	s := embeddedTimeRe.ReplaceAllString(line, " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = edgePunctRe.ReplaceAllString(s, "")
	s = leadingNumRe.ReplaceAllString(s, "")
	s = edgeMeridiemRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// IdentityKey derives the dedup key for an event: lower-cased title plus
// the calendar date for all-day events, or the start rounded to the
// nearest 5 minutes for timed ones.
func IdentityKey(title string, start time.Time, allDay bool) string {
	t := strings.ToLower(strings.TrimSpace(title))
	if allDay {
		return fmt.Sprintf("%s_%s_allday", t, start.Format("2006-01-02"))
	}
	rounded := start.Round(identityRounding)
	return fmt.Sprintf("%s_%s", t, rounded.Format("20060102_1504"))
}
