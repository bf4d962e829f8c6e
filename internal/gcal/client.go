// Package gcal wraps the Google Calendar API as the target store: it is
// both the existing-record source and the apply sink for the sync engine.
package gcal

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"subsplash-sync/internal/event"
)

// eventTimeZone is the IANA zone stamped on created timed events. The
// corrector already produces Eastern wall-clock values, so the zone name
// just tells the calendar how to interpret them.
const eventTimeZone = "America/New_York"

// Client is a wrapper around the Google Calendar API service.
type Client struct {
	service *calendar.Service
}

// NewClient creates a new Google Calendar API client using the provided
// HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{service: service}, nil
}

// ExistingRecords retrieves events from a calendar within the specified
// time window, converted to the engine's snapshot form. Recurring events
// are expanded to individual instances.
func (c *Client) ExistingRecords(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]event.ExistingRecord, error) {
	eventsList, err := c.service.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true). // Expand recurring events
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	records := make([]event.ExistingRecord, 0, len(eventsList.Items))
	for _, item := range eventsList.Items {
		rec, err := recordFromGoogleEvent(item)
		if err != nil {
			log.Printf("Warning: skipping unreadable existing event %s: %v", item.Id, err)
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// CreateEvent inserts a new event and returns its ID.
// Important: sets sendUpdates="none" to prevent notifications.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, ev event.CanonicalEvent) (string, error) {
	created, err := c.service.Events.Insert(calendarID, googleEventFrom(ev)).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}

	return created.Id, nil
}

// UpdateEvent replaces an existing event's fields.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, ev event.CanonicalEvent) error {
	_, err := c.service.Events.Update(calendarID, eventID, googleEventFrom(ev)).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	return nil
}

// googleEventFrom converts a canonical event to the API's representation.
// All-day events use date-only start/end; timed events carry RFC 3339
// datetimes in the configured event timezone.
func googleEventFrom(ev event.CanonicalEvent) *calendar.Event {
	out := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Reminders: &calendar.EventReminders{
			UseDefault: true,
		},
	}

	if ev.SourceRef != "" {
		out.Source = &calendar.EventSource{
			Title: "Subsplash Calendar",
			Url:   ev.SourceRef,
		}
	}

	if ev.AllDay {
		out.Start = &calendar.EventDateTime{Date: ev.Start.Format("2006-01-02")}
		out.End = &calendar.EventDateTime{Date: ev.End.Format("2006-01-02")}
	} else {
		out.Start = &calendar.EventDateTime{
			DateTime: ev.Start.Format("2006-01-02T15:04:05"),
			TimeZone: eventTimeZone,
		}
		out.End = &calendar.EventDateTime{
			DateTime: ev.End.Format("2006-01-02T15:04:05"),
			TimeZone: eventTimeZone,
		}
	}

	return out
}

// recordFromGoogleEvent converts an API event into the engine's snapshot
// form. Date-only start/end marks an all-day record.
func recordFromGoogleEvent(item *calendar.Event) (event.ExistingRecord, error) {
	rec := event.ExistingRecord{
		ID:    item.Id,
		Title: item.Summary,
	}

	if item.Start == nil {
		return event.ExistingRecord{}, fmt.Errorf("event %s has no start", item.Id)
	}

	if item.Start.Date != "" {
		rec.AllDay = true
		start, err := time.Parse("2006-01-02", item.Start.Date)
		if err != nil {
			return event.ExistingRecord{}, fmt.Errorf("bad all-day start %q: %w", item.Start.Date, err)
		}
		rec.Start = start
		rec.End = start.AddDate(0, 0, 1)
		if item.End != nil && item.End.Date != "" {
			if end, err := time.Parse("2006-01-02", item.End.Date); err == nil {
				rec.End = end
			}
		}
		return rec, nil
	}

	start, err := parseEventDateTime(item.Start.DateTime)
	if err != nil {
		return event.ExistingRecord{}, fmt.Errorf("bad start %q: %w", item.Start.DateTime, err)
	}
	rec.Start = start
	rec.End = start.Add(time.Hour)
	if item.End != nil && item.End.DateTime != "" {
		if end, err := parseEventDateTime(item.End.DateTime); err == nil {
			rec.End = end
		}
	}

	return rec, nil
}

// parseEventDateTime accepts the API's RFC 3339 datetimes, with or without
// an offset, and normalizes to a wall-clock value so tolerance comparisons
// work against parser output.
func parseEventDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
}
