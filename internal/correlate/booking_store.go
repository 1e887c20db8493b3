package correlate

import (
	"time"

	"crm-relay/internal/normalize"
)

// startTimeWindow is the absolute distance within which two reported meeting
// start times are considered the same meeting.
const startTimeWindow = 15 * time.Minute

// BookingStore holds recent bookings keyed by their opaque calendar event id,
// waiting for the matching notetaker webhook. Entries expire after the
// configured TTL; a booking whose meeting never produced a recording is
// simply dropped.
type BookingStore struct {
	store *ttlStore[BookingRecord]
}

func NewBookingStore(ttl time.Duration) *BookingStore {
	return &BookingStore{store: newTTLStore[BookingRecord](ttl)}
}

// Put stores a booking, replacing any previous record with the same event id.
func (s *BookingStore) Put(rec BookingRecord) {
	s.store.Put(rec.EventID, rec)
}

// Get returns the booking for an exact event id.
func (s *BookingStore) Get(eventID string) (BookingRecord, bool) {
	return s.store.Get(eventID)
}

// Len reports the number of live bookings.
func (s *BookingStore) Len() int {
	return s.store.Len()
}

// FindMatch returns the first live booking, in insertion order, matching the
// candidate by either rule:
//
//	(a) both meeting URLs normalize identically and the emails align, or
//	(b) both start times fall within 15 minutes of each other and the
//	    emails align.
//
// A candidate carrying neither a meeting URL nor a start time never matches:
// email equality alone is too weak a key (the same guest can hold several
// meetings inside one TTL window).
func (s *BookingStore) FindMatch(c MatchCandidate) (BookingRecord, bool) {
	candidateURL := normalize.URL(c.MeetingURL)
	if candidateURL == "" && c.StartTime.IsZero() {
		return BookingRecord{}, false
	}

	return s.store.Find(func(rec BookingRecord) bool {
		if !emailsAlign(rec, c) {
			return false
		}
		if candidateURL != "" {
			if recURL := normalize.URL(rec.MeetingURL); recURL != "" && recURL == candidateURL {
				return true
			}
		}
		if !c.StartTime.IsZero() && !rec.StartTime.IsZero() {
			delta := rec.StartTime.Sub(c.StartTime)
			if delta < 0 {
				delta = -delta
			}
			if delta <= startTimeWindow {
				return true
			}
		}
		return false
	})
}

// emailsAlign requires both guest emails present and equal case-insensitively.
// Host emails must also match when present on both sides; absence on either
// side is a non-blocking wildcard.
func emailsAlign(rec BookingRecord, c MatchCandidate) bool {
	recGuest := normalize.Email(rec.GuestEmail)
	candGuest := normalize.Email(c.GuestEmail)
	if recGuest == "" || candGuest == "" || recGuest != candGuest {
		return false
	}

	recHost := normalize.Email(rec.HostEmail)
	candHost := normalize.Email(c.HostEmail)
	if recHost != "" && candHost != "" && recHost != candHost {
		return false
	}
	return true
}
