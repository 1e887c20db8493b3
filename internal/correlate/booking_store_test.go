package correlate

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad time %q: %v", s, err)
	}
	return ts
}

func TestBookingStore_MatchByTimeWindow(t *testing.T) {
	s := NewBookingStore(24 * time.Hour)
	s.Put(BookingRecord{
		EventID:    "E1",
		MeetingURL: "https://zoom.us/j/123?pwd=abc",
		GuestEmail: "a@x.com",
		StartTime:  mustTime(t, "2024-01-15T10:00:00Z"),
	})

	rec, ok := s.FindMatch(MatchCandidate{
		MeetingURL: "https://zoom.us/j/123",
		GuestEmail: "A@X.com",
		StartTime:  mustTime(t, "2024-01-15T10:05:00Z"),
	})
	if !ok {
		t.Fatalf("expected match")
	}
	if rec.EventID != "E1" {
		t.Fatalf("expected E1, got %q", rec.EventID)
	}
}

func TestBookingStore_MatchByURLOnly(t *testing.T) {
	s := NewBookingStore(24 * time.Hour)
	s.Put(BookingRecord{
		EventID:    "E2",
		MeetingURL: "https://Zoom.us/j/999?pwd=xyz",
		GuestEmail: "guest@x.com",
		StartTime:  mustTime(t, "2024-01-15T10:00:00Z"),
	})

	// Start time far outside the window; URL equality carries the match.
	rec, ok := s.FindMatch(MatchCandidate{
		MeetingURL: "https://zoom.us/j/999",
		GuestEmail: "guest@x.com",
		StartTime:  mustTime(t, "2024-01-15T14:00:00Z"),
	})
	if !ok || rec.EventID != "E2" {
		t.Fatalf("expected URL match for E2, got %+v ok=%v", rec, ok)
	}
}

func TestBookingStore_TimeWindowBoundary(t *testing.T) {
	s := NewBookingStore(24 * time.Hour)
	s.Put(BookingRecord{
		EventID:    "E3",
		GuestEmail: "g@x.com",
		StartTime:  mustTime(t, "2024-01-15T10:00:00Z"),
	})

	if _, ok := s.FindMatch(MatchCandidate{
		GuestEmail: "g@x.com",
		StartTime:  mustTime(t, "2024-01-15T10:15:00Z"),
	}); !ok {
		t.Fatalf("expected match at exactly 15 minutes")
	}
	if _, ok := s.FindMatch(MatchCandidate{
		GuestEmail: "g@x.com",
		StartTime:  mustTime(t, "2024-01-15T10:16:00Z"),
	}); ok {
		t.Fatalf("expected no match past 15 minutes")
	}
}

func TestBookingStore_RefusesEmailOnlyCandidate(t *testing.T) {
	s := NewBookingStore(24 * time.Hour)
	s.Put(BookingRecord{
		EventID:    "E4",
		GuestEmail: "g@x.com",
		StartTime:  mustTime(t, "2024-01-15T10:00:00Z"),
	})

	if _, ok := s.FindMatch(MatchCandidate{GuestEmail: "g@x.com"}); ok {
		t.Fatalf("candidate with neither URL nor start time must never match")
	}
}

func TestBookingStore_EmailAlignment(t *testing.T) {
	start := mustTime(t, "2024-01-15T10:00:00Z")

	s := NewBookingStore(24 * time.Hour)
	s.Put(BookingRecord{
		EventID:    "E5",
		GuestEmail: "guest@x.com",
		HostEmail:  "host@y.com",
		StartTime:  start,
	})

	// Host absent on the candidate side: wildcard, still matches.
	if _, ok := s.FindMatch(MatchCandidate{GuestEmail: "GUEST@x.com", StartTime: start}); !ok {
		t.Fatalf("expected match with absent candidate host email")
	}

	// Host present on both sides and different: blocks the match.
	if _, ok := s.FindMatch(MatchCandidate{
		GuestEmail: "guest@x.com",
		HostEmail:  "other@y.com",
		StartTime:  start,
	}); ok {
		t.Fatalf("expected host email mismatch to block")
	}

	// Guest emails differing: always blocks.
	if _, ok := s.FindMatch(MatchCandidate{GuestEmail: "someone-else@x.com", StartTime: start}); ok {
		t.Fatalf("expected guest email mismatch to block")
	}

	// Guest email absent on the candidate: never matches.
	if _, ok := s.FindMatch(MatchCandidate{StartTime: start}); ok {
		t.Fatalf("expected missing guest email to block")
	}
}

func TestBookingStore_FirstMatchWinsInInsertionOrder(t *testing.T) {
	start := mustTime(t, "2024-01-15T10:00:00Z")

	s := NewBookingStore(24 * time.Hour)
	// Both records satisfy a rule for the candidate: the earlier insertion
	// matches by time window, the later one by URL.
	s.Put(BookingRecord{EventID: "first", GuestEmail: "g@x.com", StartTime: start.Add(5 * time.Minute)})
	s.Put(BookingRecord{EventID: "second", GuestEmail: "g@x.com", MeetingURL: "https://zoom.us/j/77", StartTime: start.Add(3 * time.Hour)})

	rec, ok := s.FindMatch(MatchCandidate{
		MeetingURL: "https://zoom.us/j/77?pwd=q",
		GuestEmail: "g@x.com",
		StartTime:  start,
	})
	if !ok || rec.EventID != "first" {
		t.Fatalf("expected insertion-order first match, got %+v ok=%v", rec, ok)
	}
}

func TestBookingStore_ReinsertionReplacesWholesale(t *testing.T) {
	s := NewBookingStore(24 * time.Hour)
	s.Put(BookingRecord{EventID: "E6", GuestEmail: "old@x.com"})
	s.Put(BookingRecord{EventID: "E6", GuestEmail: "new@x.com"})

	rec, ok := s.Get("E6")
	if !ok || rec.GuestEmail != "new@x.com" {
		t.Fatalf("expected wholesale replacement, got %+v ok=%v", rec, ok)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one record, got %d", s.Len())
	}
}
