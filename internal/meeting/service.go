// Package meeting runs the notetaker flow: wait for the meeting to end, poll
// the transcript until it is ready, summarize it, correlate it to a stored
// booking, and write the summary into the CRM.
package meeting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"crm-relay/internal/attio"
	"crm-relay/internal/audit"
	"crm-relay/internal/correlate"
	"crm-relay/internal/notify"
	"crm-relay/internal/poll"
	"crm-relay/pkg/logger"
)

// TranscriptFetcher fetches the raw transcript for a recording.
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, recordingID string) (string, error)
}

// Summarizer turns transcript text into a markdown summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// CRM is the subset of the Attio client this flow needs.
type CRM interface {
	FindOrCreatePerson(ctx context.Context, email, name string) (attio.Person, error)
	CreateNote(ctx context.Context, recordID, title, markdown string) error
}

// SlotLimiter caps concurrent transcript polls per account. Acquire rejects
// when the account is at its cap; Release frees the slot.
type SlotLimiter interface {
	Acquire(ctx context.Context, account string) (bool, error)
	Release(ctx context.Context, account string)
}

type Service struct {
	Bookings    *correlate.BookingStore
	Transcripts TranscriptFetcher
	Summarizer  Summarizer
	CRM         CRM
	Notify      notify.Sink
	Audit       *audit.Service
	Log         *slog.Logger

	PollCfg  poll.Config
	EndGrace time.Duration

	// Slots is optional; nil disables the per-account cap.
	Slots SlotLimiter

	clock func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func NewService(
	bookings *correlate.BookingStore,
	transcripts TranscriptFetcher,
	summarizer Summarizer,
	crm CRM,
	sink notify.Sink,
	auditSvc *audit.Service,
	pollCfg poll.Config,
	endGrace time.Duration,
	log *slog.Logger,
) *Service {
	return &Service{
		Bookings:    bookings,
		Transcripts: transcripts,
		Summarizer:  summarizer,
		CRM:         crm,
		Notify:      sink,
		Audit:       auditSvc,
		Log:         log,
		PollCfg:     pollCfg,
		EndGrace:    endGrace,
		clock:       time.Now,
		sleep:       sleepCtx,
	}
}

// slot acquisition retries: polling holds a slot for minutes, so a busy
// account is worth a few patient re-checks before proceeding uncapped.
const (
	slotAcquireTries = 5
	slotAcquireWait  = 30 * time.Second
)

// Process runs the full notetaker flow for one delivery. The webhook has
// already been acknowledged; every failure is step-tagged, audited, and
// routed to the notify sink.
func (s *Service) Process(ctx context.Context, requestID, account string, ev Event) {
	log := logger.ForDelivery(s.Log, string(audit.SourceFathom), requestID).With("recording_id", ev.RecordingID)
	if account != "" {
		log = log.With("account", account)
	}

	if ev.RecordingID == "" || ev.GuestEmail == "" {
		reason := "missing recording id"
		if ev.RecordingID != "" {
			reason = "missing guest email"
		}
		log.Warn("meeting: malformed payload", "reason", reason)
		s.record(ctx, requestID, audit.OutcomeRejected, "parse", reason, ev, "")
		return
	}

	step := "wait_meeting_end"
	if wait := ev.EndTime.Add(s.EndGrace).Sub(s.clock()); !ev.EndTime.IsZero() && wait > 0 {
		log.Info("meeting: waiting for meeting end", "wait", wait.String())
		s.sleep(ctx, wait)
	}

	step = "acquire_poll_slot"
	release := s.acquireSlot(ctx, account, log)
	if release != nil {
		defer release()
	}

	step = "poll_transcript"
	driver := poll.New[string](s.PollCfg, log)
	driver.Sleep = s.sleep
	transcript, ok := driver.Run(ctx,
		func(ctx context.Context) (string, error) {
			return s.Transcripts.FetchTranscript(ctx, ev.RecordingID)
		},
		TranscriptReady,
	)
	if !ok {
		// Exhausted retry budget: distinct from a hard failure, but the flow
		// cannot proceed without a transcript.
		err := fmt.Errorf("transcript unavailable after %d attempts", s.PollCfg.MaxAttempts)
		s.fail(ctx, requestID, step, err, ev, log)
		return
	}

	step = "summarize"
	summary, err := s.Summarizer.Summarize(ctx, transcript)
	if err != nil {
		s.fail(ctx, requestID, step, err, ev, log)
		return
	}

	step = "match_booking"
	booked, matched := s.Bookings.FindMatch(correlate.MatchCandidate{
		MeetingURL: ev.MeetingURL,
		GuestEmail: ev.GuestEmail,
		HostEmail:  ev.HostEmail,
		StartTime:  ev.StartTime,
	})
	guestName := ev.GuestName
	matchedEventID := ""
	if matched {
		matchedEventID = booked.EventID
		if guestName == "" {
			guestName = booked.GuestName
		}
		log.Info("meeting: correlated to booking", "event_id", booked.EventID)
	} else {
		// A missing booking never fails the flow; the summary still lands on
		// the contact.
		log.Info("meeting: no booking matched")
	}

	step = "crm_upsert"
	person, err := s.CRM.FindOrCreatePerson(ctx, ev.GuestEmail, guestName)
	if err != nil {
		s.fail(ctx, requestID, step, err, ev, log)
		return
	}

	step = "crm_note"
	title := ev.Title
	if title == "" {
		title = "Meeting summary"
	}
	if err := s.CRM.CreateNote(ctx, person.RecordID, title, summary); err != nil {
		// Secondary write: the contact upsert already succeeded.
		log.Warn("meeting: note append failed", "record_id", person.RecordID, "err", err)
	}

	log.Info("meeting: processed", "record_id", person.RecordID, "matched_event_id", matchedEventID)
	s.record(ctx, requestID, audit.OutcomeProcessed, step, "", ev, matchedEventID)
}

func (s *Service) acquireSlot(ctx context.Context, account string, log *slog.Logger) func() {
	if s.Slots == nil || account == "" {
		return nil
	}
	for try := 1; try <= slotAcquireTries; try++ {
		ok, err := s.Slots.Acquire(ctx, account)
		if err != nil {
			// The cap is an operational guard, not a correctness requirement.
			log.Warn("meeting: slot acquire failed, proceeding uncapped", "err", err)
			return nil
		}
		if ok {
			return func() { s.Slots.Release(context.WithoutCancel(ctx), account) }
		}
		if try < slotAcquireTries {
			log.Info("meeting: account at poll cap, waiting", "try", try)
			s.sleep(ctx, slotAcquireWait)
		}
	}
	log.Warn("meeting: poll cap still saturated, proceeding uncapped")
	return nil
}

func (s *Service) fail(ctx context.Context, requestID, step string, err error, ev Event, log *slog.Logger) {
	log.Error("meeting: flow failed", "step", step, "err", err)
	s.Notify.NotifyFailure(ctx, string(audit.SourceFathom), step, err)
	s.record(ctx, requestID, audit.OutcomeFailed, step, err.Error(), ev, "")
}

func (s *Service) record(ctx context.Context, requestID string, outcome audit.Outcome, step, errMsg string, ev Event, matchedEventID string) {
	detail := map[string]string{"recording_id": ev.RecordingID}
	if matchedEventID != "" {
		detail["matched_event_id"] = matchedEventID
	}
	raw, _ := json.Marshal(detail)
	s.Audit.Record(ctx, audit.Delivery{
		RequestID: requestID,
		Source:    audit.SourceFathom,
		Outcome:   outcome,
		Step:      step,
		Error:     errMsg,
		Detail:    string(raw),
	})
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
