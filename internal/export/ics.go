// Package export writes a normalized event batch as an iCalendar file, for
// inspecting extraction results without touching the target calendar.
package export

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/emersion/go-ical"

	"subsplash-sync/internal/event"
)

const prodID = "-//subsplash-sync//EN"

// BuildCalendar converts a batch of canonical events into a VCALENDAR.
func BuildCalendar(events []event.CanonicalEvent) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)

	now := time.Now().UTC()
	for _, ev := range events {
		vevent := ical.NewComponent(ical.CompEvent)

		// The identity key is already unique within a batch.
		vevent.Props.SetText(ical.PropUID, ev.IdentityKey+"@subsplash-sync")
		vevent.Props.SetText(ical.PropSummary, ev.Title)
		if ev.Description != "" {
			vevent.Props.SetText(ical.PropDescription, ev.Description)
		}
		if ev.Location != "" {
			vevent.Props.SetText(ical.PropLocation, ev.Location)
		}
		if ev.SourceRef != "" {
			vevent.Props.SetText(ical.PropURL, ev.SourceRef)
		}

		if ev.AllDay {
			dtstart := ical.NewProp(ical.PropDateTimeStart)
			dtstart.SetDate(ev.Start)
			vevent.Props.Set(dtstart)

			dtend := ical.NewProp(ical.PropDateTimeEnd)
			dtend.SetDate(ev.End)
			vevent.Props.Set(dtend)
		} else {
			vevent.Props.SetDateTime(ical.PropDateTimeStart, ev.Start)
			vevent.Props.SetDateTime(ical.PropDateTimeEnd, ev.End)
		}

		vevent.Props.SetDateTime(ical.PropDateTimeStamp, now)
		cal.Children = append(cal.Children, vevent)
	}

	return cal
}

// Write encodes the batch to w in iCalendar format. An empty batch
// produces a valid empty calendar: a source with no events is a
// successful no-op, not an export failure.
func Write(w io.Writer, events []event.CanonicalEvent) error {
	if len(events) == 0 {
		// The encoder rejects a VCALENDAR with no components, so the
		// empty shell is written directly.
		if _, err := io.WriteString(w, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:"+prodID+"\r\nEND:VCALENDAR\r\n"); err != nil {
			return fmt.Errorf("failed to write iCalendar: %w", err)
		}
		return nil
	}
	if err := ical.NewEncoder(w).Encode(BuildCalendar(events)); err != nil {
		return fmt.Errorf("failed to encode iCalendar: %w", err)
	}
	return nil
}

// WriteFile writes the batch to an .ics file at path.
func WriteFile(path string, events []event.CanonicalEvent) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := Write(f, events); err != nil {
		return err
	}
	return f.Close()
}
