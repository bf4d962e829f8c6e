package sync

import (
	"testing"
	"time"

	"subsplash-sync/internal/event"
)

func timedEvent(title string, start time.Time) event.CanonicalEvent {
	return event.CanonicalEvent{
		Title: title,
		Start: start,
		End:   start.Add(time.Hour),
	}
}

func TestReconcile_MatchWithinToleranceSkips(t *testing.T) {
	start := time.Date(2025, time.August, 21, 2, 30, 0, 0, time.UTC)
	existing := []event.ExistingRecord{
		{ID: "evt1", Title: "Early Morning Prayer", Start: start.Add(3 * time.Minute)},
	}

	decisions := Engine{}.Reconcile([]event.CanonicalEvent{timedEvent("Early Morning Prayer", start)}, existing)
	if len(decisions) != 1 {
		t.Fatalf("Expected 1 decision, got %d", len(decisions))
	}
	if decisions[0].Action != event.ActionSkip {
		t.Errorf("Expected a 3-minute offset to skip, got %s", decisions[0].Action)
	}
	if decisions[0].Reason == "" {
		t.Error("Expected a skip reason naming the existing event")
	}
}

func TestReconcile_OutsideToleranceCreates(t *testing.T) {
	start := time.Date(2025, time.August, 21, 2, 30, 0, 0, time.UTC)
	existing := []event.ExistingRecord{
		{ID: "evt1", Title: "Early Morning Prayer", Start: start.Add(10 * time.Minute)},
	}

	decisions := Engine{}.Reconcile([]event.CanonicalEvent{timedEvent("Early Morning Prayer", start)}, existing)
	if decisions[0].Action != event.ActionCreate {
		t.Errorf("Expected a 10-minute offset to create, got %s", decisions[0].Action)
	}
}

func TestReconcile_ExactToleranceCreates(t *testing.T) {
	// The tolerance band is exclusive: exactly 5 minutes apart is a
	// distinct event.
	start := time.Date(2025, time.August, 21, 2, 30, 0, 0, time.UTC)
	existing := []event.ExistingRecord{
		{ID: "evt1", Title: "Prayer", Start: start.Add(MatchTolerance)},
	}

	decisions := Engine{}.Reconcile([]event.CanonicalEvent{timedEvent("Prayer", start)}, existing)
	if decisions[0].Action != event.ActionCreate {
		t.Errorf("Expected an exactly-5-minute offset to create, got %s", decisions[0].Action)
	}
}

func TestReconcile_TitleMatchIsCaseInsensitive(t *testing.T) {
	start := time.Date(2025, time.August, 21, 2, 30, 0, 0, time.UTC)
	existing := []event.ExistingRecord{
		{ID: "evt1", Title: "  EARLY MORNING PRAYER ", Start: start},
	}

	decisions := Engine{}.Reconcile([]event.CanonicalEvent{timedEvent("Early Morning Prayer", start)}, existing)
	if decisions[0].Action != event.ActionSkip {
		t.Errorf("Expected a case-insensitive title match, got %s", decisions[0].Action)
	}
}

func TestReconcile_DifferentTitleCreates(t *testing.T) {
	start := time.Date(2025, time.August, 21, 2, 30, 0, 0, time.UTC)
	existing := []event.ExistingRecord{
		{ID: "evt1", Title: "Evening Prayer", Start: start},
	}

	decisions := Engine{}.Reconcile([]event.CanonicalEvent{timedEvent("Morning Prayer", start)}, existing)
	if decisions[0].Action != event.ActionCreate {
		t.Errorf("Expected different titles never to match, got %s", decisions[0].Action)
	}
}

func TestReconcile_AllDayMatchesByDate(t *testing.T) {
	day := time.Date(2025, time.August, 23, 0, 0, 0, 0, time.UTC)
	ev := event.CanonicalEvent{Title: "Church Picnic", Start: day, End: day.AddDate(0, 0, 1), AllDay: true}
	existing := []event.ExistingRecord{
		{ID: "evt1", Title: "Church Picnic", Start: day, End: day.AddDate(0, 0, 1), AllDay: true},
	}

	decisions := Engine{}.Reconcile([]event.CanonicalEvent{ev}, existing)
	if decisions[0].Action != event.ActionSkip {
		t.Errorf("Expected same-date all-day events to match, got %s", decisions[0].Action)
	}
}

func TestReconcile_AllDayNeverMatchesTimed(t *testing.T) {
	day := time.Date(2025, time.August, 23, 0, 0, 0, 0, time.UTC)
	ev := event.CanonicalEvent{Title: "Church Picnic", Start: day, End: day.AddDate(0, 0, 1), AllDay: true}
	existing := []event.ExistingRecord{
		{ID: "evt1", Title: "Church Picnic", Start: day, End: day.Add(time.Hour)},
	}

	decisions := Engine{}.Reconcile([]event.CanonicalEvent{ev}, existing)
	if decisions[0].Action != event.ActionCreate {
		t.Errorf("Expected all-day vs timed never to match, got %s", decisions[0].Action)
	}
}

func TestReconcile_UpdateOnMatch(t *testing.T) {
	start := time.Date(2025, time.August, 21, 2, 30, 0, 0, time.UTC)
	existing := []event.ExistingRecord{
		{ID: "evt1", Title: "Early Morning Prayer", Start: start},
	}

	engine := Engine{UpdateOnMatch: true}
	decisions := engine.Reconcile([]event.CanonicalEvent{timedEvent("Early Morning Prayer", start)}, existing)
	if decisions[0].Action != event.ActionUpdate {
		t.Errorf("Expected UpdateOnMatch to turn the match into an update, got %s", decisions[0].Action)
	}
	if decisions[0].ExistingID != "evt1" {
		t.Errorf("Expected the update to target evt1, got %q", decisions[0].ExistingID)
	}
}

func TestReconcile_RecurringTitleOnDifferentDays(t *testing.T) {
	// The same title on different days is a new occurrence, not a
	// duplicate.
	thu := time.Date(2025, time.August, 21, 2, 30, 0, 0, time.UTC)
	fri := thu.AddDate(0, 0, 1)
	existing := []event.ExistingRecord{
		{ID: "evt1", Title: "Early Morning Prayer", Start: thu},
	}

	decisions := Engine{}.Reconcile([]event.CanonicalEvent{timedEvent("Early Morning Prayer", fri)}, existing)
	if decisions[0].Action != event.ActionCreate {
		t.Errorf("Expected a next-day occurrence to create, got %s", decisions[0].Action)
	}
}
