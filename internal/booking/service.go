// Package booking consumes calendar-booking webhooks and records the booking
// so a later notetaker webhook can correlate back to it.
package booking

import (
	"context"
	"encoding/json"
	"log/slog"

	"crm-relay/internal/audit"
	"crm-relay/internal/correlate"
	"crm-relay/pkg/logger"
)

type Service struct {
	Bookings *correlate.BookingStore
	Audit    *audit.Service
	Log      *slog.Logger
}

func NewService(bookings *correlate.BookingStore, auditSvc *audit.Service, log *slog.Logger) *Service {
	return &Service{Bookings: bookings, Audit: auditSvc, Log: log}
}

// Process stores the booking described by an invitee.created delivery.
// The webhook has already been acknowledged; failures here are visible only
// in logs and the audit trail.
func (s *Service) Process(ctx context.Context, requestID string, env WebhookEnvelope) {
	log := logger.ForDelivery(s.Log, string(audit.SourceCalendly), requestID)

	if env.Event != EventInviteeCreated {
		log.Debug("booking: ignoring event", "event", env.Event)
		s.record(ctx, requestID, audit.OutcomeSkipped, "parse", "", map[string]string{"event": env.Event})
		return
	}

	se := env.Payload.ScheduledEvent
	if se.URI == "" || env.Payload.Email == "" || se.StartTime.IsZero() {
		reason := missingFieldReason(se.URI, env.Payload.Email, se.StartTime.IsZero())
		log.Warn("booking: malformed payload", "reason", reason)
		s.record(ctx, requestID, audit.OutcomeRejected, "parse", reason, nil)
		return
	}

	rec := correlate.BookingRecord{
		EventID:    se.URI,
		MeetingURL: se.Location.JoinURL,
		StartTime:  se.StartTime,
		EndTime:    se.EndTime,
		GuestEmail: env.Payload.Email,
		GuestName:  env.Payload.Name,
		HostEmail:  env.HostEmail(),
	}
	s.Bookings.Put(rec)

	log.Info("booking: stored", "event_id", rec.EventID, "start_time", rec.StartTime)
	s.record(ctx, requestID, audit.OutcomeProcessed, "store_booking", "", map[string]string{"event_id": rec.EventID})
}

func missingFieldReason(uri, email string, startMissing bool) string {
	switch {
	case uri == "":
		return "missing scheduled_event.uri"
	case email == "":
		return "missing payload.email"
	case startMissing:
		return "missing scheduled_event.start_time"
	}
	return "malformed payload"
}

func (s *Service) record(ctx context.Context, requestID string, outcome audit.Outcome, step, errMsg string, detail map[string]string) {
	var detailJSON string
	if len(detail) > 0 {
		if raw, err := json.Marshal(detail); err == nil {
			detailJSON = string(raw)
		}
	}
	s.Audit.Record(ctx, audit.Delivery{
		RequestID: requestID,
		Source:    audit.SourceCalendly,
		Outcome:   outcome,
		Step:      step,
		Error:     errMsg,
		Detail:    detailJSON,
	})
}
