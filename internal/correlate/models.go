package correlate

import "time"

// BookingRecord is a scheduled meeting observed via a calendar-booking
// webhook. Records are immutable once stored; re-delivery of the same event
// id replaces the record wholesale.
type BookingRecord struct {
	EventID    string    `json:"event_id"`
	MeetingURL string    `json:"meeting_url,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	GuestEmail string    `json:"guest_email"`
	GuestName  string    `json:"guest_name,omitempty"`
	HostEmail  string    `json:"host_email,omitempty"`
}

// PendingLead is an outreach lead tagged as engaged, awaiting
// contact-enrichment data. At most one pending lead exists per normalized
// profile URL; insertion overwrites.
type PendingLead struct {
	ProfileURL string    `json:"profile_url"`
	Name       string    `json:"name,omitempty"`
	Company    string    `json:"company,omitempty"`
	Title      string    `json:"title,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Tag        string    `json:"tag,omitempty"`
	TaggedAt   time.Time `json:"tagged_at"`
}

// MatchCandidate carries the fuzzy keys reported by a notetaker webhook.
// Fields may be absent; the match rules treat absence per-field.
type MatchCandidate struct {
	MeetingURL string
	GuestEmail string
	HostEmail  string
	StartTime  time.Time
}
