package audit

import "time"

// Delivery is an immutable, append-only record of one inbound webhook
// delivery and its processing outcome.
//
// Invariants:
// - Records are never updated or deleted.
// - Appending is best-effort; processing never blocks on audit failures.
//
// Storage recommendation (Postgres):
// - Table webhook_deliveries with an INSERT-only policy.
// - Optional: partition by time for retention.
type Delivery struct {
	ID        string  `json:"id" db:"id"`
	RequestID string  `json:"request_id,omitempty" db:"request_id"`
	Source    Source  `json:"source" db:"source"`
	Outcome   Outcome `json:"outcome" db:"outcome"`

	// Step is the orchestration step in progress when processing ended.
	Step string `json:"step,omitempty" db:"step"`

	// Error holds the failure reason for failed outcomes.
	Error string `json:"error,omitempty" db:"error"`

	// Detail is optional JSON with source-specific identifiers.
	Detail string `json:"detail,omitempty" db:"detail"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Source string

const (
	SourceCalendly Source = "calendly"
	SourceFathom   Source = "fathom"
	SourceHeyReach Source = "heyreach"
	SourceClay     Source = "clay"
)

type Outcome string

const (
	// OutcomeProcessed: the full flow ran to completion.
	OutcomeProcessed Outcome = "processed"
	// OutcomeSkipped: the delivery was valid but intentionally ignored
	// (wrong event type, no correlation found where one is optional).
	OutcomeSkipped Outcome = "skipped"
	// OutcomeRejected: malformed payload, aborted before any remote call.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed: a remote call or the retry budget failed mid-flow.
	OutcomeFailed Outcome = "failed"
)
