package testfixtures

import (
	"testing"
	"time"

	"github.com/example/campus-bookings/internal/booking"
)

func TestNewBookingDefaultsDoNotCollide(t *testing.T) {
	first := NewBooking("res-1", "user-1")
	second := NewBooking("res-1", "user-1")

	if first.ID == second.ID {
		t.Fatalf("expected distinct ids, got %s twice", first.ID)
	}
	a := booking.Interval{Start: first.Start, End: first.End}
	b := booking.Interval{Start: second.Start, End: second.End}
	if a.Overlaps(b) {
		t.Fatalf("expected non-overlapping defaults, got %v and %v", a, b)
	}
}

func TestNewResourceCoversWeekdays(t *testing.T) {
	resource := NewResource()

	if len(resource.Hours) != 5 {
		t.Fatalf("expected five windows, got %d", len(resource.Hours))
	}
	for _, window := range resource.Hours {
		if window.Weekday == time.Saturday || window.Weekday == time.Sunday {
			t.Fatalf("unexpected weekend window %v", window)
		}
	}
}

func TestClockAndIDGenerator(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}

	updated := clock.Advance(time.Hour)
	if !updated.Equal(ReferenceTime().Add(time.Hour)) {
		t.Fatalf("advance returned %v", updated)
	}

	gen := NewIDGenerator("bk")
	if got := gen.Next(); got != "bk-1" {
		t.Fatalf("expected bk-1, got %s", got)
	}
	if got := gen.Next(); got != "bk-2" {
		t.Fatalf("expected bk-2, got %s", got)
	}
}
