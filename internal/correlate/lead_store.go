package correlate

import (
	"time"

	"crm-relay/internal/normalize"
)

// LeadStore holds engaged outreach leads keyed by normalized profile URL,
// waiting for the matching enrichment webhook. Lookup is an exact-key
// consume: once taken, the lead is gone, so a re-delivered enrichment webhook
// cannot append the conversation note twice.
//
// A ttl of zero means pending leads wait indefinitely; whether leads should
// expire is a deployment decision, so the TTL is a constructor parameter just
// like the booking store's.
type LeadStore struct {
	store *ttlStore[PendingLead]
}

func NewLeadStore(ttl time.Duration) *LeadStore {
	return &LeadStore{store: newTTLStore[PendingLead](ttl)}
}

// Put stores a pending lead under its normalized profile URL, replacing any
// previous entry for the same URL. Returns false when the profile URL
// normalizes to empty.
func (s *LeadStore) Put(lead PendingLead) bool {
	key := normalize.URL(lead.ProfileURL)
	if key == "" {
		return false
	}
	lead.ProfileURL = key
	s.store.Put(key, lead)
	return true
}

// Take returns and removes the pending lead for a profile URL. Read and
// removal happen under one lock, so concurrent enrichment deliveries for the
// same profile resolve to exactly one winner.
func (s *LeadStore) Take(profileURL string) (PendingLead, bool) {
	key := normalize.URL(profileURL)
	if key == "" {
		return PendingLead{}, false
	}
	return s.store.Take(key)
}

// Len reports the number of leads still waiting for enrichment.
func (s *LeadStore) Len() int {
	return s.store.Len()
}
