package extract

import (
	"testing"
	"time"

	"subsplash-sync/internal/event"
)

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "6:30am 10:30a Early Morning Prayer", want: "Early Morning Prayer"},
		{in: "7pm Worship Night", want: "Worship Night"},
		{in: "Community Dinner 18:00", want: "Community Dinner"},
		{in: "  Church Picnic!  ", want: "Church Picnic"},
		{in: "3 Community Dinner", want: "Community Dinner"},
		{in: "Church Picnic", want: "Church Picnic"},
		{in: "6:30a", want: ""},
	}

	for _, tc := range cases {
		if got := CleanTitle(tc.in); got != tc.want {
			t.Errorf("CleanTitle(%q) = %q, expected %q", tc.in, got, tc.want)
		}
	}
}

func TestIdentityKey_Timed(t *testing.T) {
	start := time.Date(2025, time.August, 21, 2, 30, 0, 0, time.UTC)
	got := IdentityKey("Early Morning Prayer", start, false)
	want := "early morning prayer_20250821_0230"
	if got != want {
		t.Errorf("IdentityKey() = %q, expected %q", got, want)
	}
}

func TestIdentityKey_RoundsToFiveMinutes(t *testing.T) {
	base := time.Date(2025, time.August, 21, 2, 30, 0, 0, time.UTC)
	jittered := time.Date(2025, time.August, 21, 2, 32, 0, 0, time.UTC)
	if IdentityKey("Prayer", base, false) != IdentityKey("Prayer", jittered, false) {
		t.Error("Expected sub-5-minute jitter to produce the same identity key")
	}

	distinct := time.Date(2025, time.August, 21, 2, 40, 0, 0, time.UTC)
	if IdentityKey("Prayer", base, false) == IdentityKey("Prayer", distinct, false) {
		t.Error("Expected starts 10 minutes apart to produce distinct identity keys")
	}
}

func TestIdentityKey_AllDay(t *testing.T) {
	start := time.Date(2025, time.August, 21, 0, 0, 0, 0, time.UTC)
	got := IdentityKey("  Church Picnic ", start, true)
	want := "church picnic_2025-08-21_allday"
	if got != want {
		t.Errorf("IdentityKey() = %q, expected %q", got, want)
	}
}

func TestNormalizeBatch(t *testing.T) {
	n := &Normalizer{DefaultLocation: "123 Main St"}
	frags := []event.RawFragment{
		{
			Lines:     []string{"6:30a Early Morning Prayer"},
			TimeHint:  "6:30a",
			DateToken: "2025-08-21",
			SourceURL: "https://example.com/calendar",
		},
		{
			Lines:     []string{"Church Picnic"},
			DateToken: "2025-08-23",
		},
	}

	events := n.NormalizeBatch(frags)
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	prayer := events[0]
	if prayer.Title != "Early Morning Prayer" {
		t.Errorf("Expected stripped title 'Early Morning Prayer', got '%s'", prayer.Title)
	}
	wantStart := time.Date(2025, time.August, 21, 2, 30, 0, 0, time.UTC)
	if !prayer.Start.Equal(wantStart) {
		t.Errorf("Expected start %v, got %v", wantStart, prayer.Start)
	}
	if prayer.Location != "123 Main St" {
		t.Errorf("Expected default location to apply, got '%s'", prayer.Location)
	}
	if prayer.SourceRef != "https://example.com/calendar" {
		t.Errorf("Expected source ref to carry through, got '%s'", prayer.SourceRef)
	}
	if prayer.IdentityKey != "early morning prayer_20250821_0230" {
		t.Errorf("Unexpected identity key %q", prayer.IdentityKey)
	}

	picnic := events[1]
	if !picnic.AllDay {
		t.Error("Expected the picnic to be all-day")
	}
	if picnic.IdentityKey != "church picnic_2025-08-23_allday" {
		t.Errorf("Unexpected identity key %q", picnic.IdentityKey)
	}
}

func TestNormalizeBatch_DropsUnparseable(t *testing.T) {
	n := &Normalizer{}
	frags := []event.RawFragment{
		{Lines: []string{"No usable date here"}},
		{Lines: []string{"6:30a"}, TimeHint: "6:30a", DateToken: "2025-08-21"}, // no title
		{Lines: []string{"Church Picnic"}, DateToken: "2025-08-23"},
	}

	events := n.NormalizeBatch(frags)
	if len(events) != 1 {
		t.Fatalf("Expected the two bad fragments to be dropped, got %d events", len(events))
	}
	if events[0].Title != "Church Picnic" {
		t.Errorf("Expected the surviving event to be the picnic, got '%s'", events[0].Title)
	}
}

func TestNormalizeBatch_DeduplicatesWithinBatch(t *testing.T) {
	n := &Normalizer{}
	frag := event.RawFragment{
		Lines:     []string{"Early Morning Prayer"},
		TimeHint:  "6:30a",
		DateToken: "2025-08-21",
	}

	events := n.NormalizeBatch([]event.RawFragment{frag, frag})
	if len(events) != 1 {
		t.Fatalf("Expected in-batch duplicates to collapse to 1 event, got %d", len(events))
	}
}
