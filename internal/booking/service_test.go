package booking

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"testing"
	"time"

	"crm-relay/internal/audit"
	"crm-relay/internal/correlate"
)

func signedHeader(key, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

const inviteeCreatedBody = `{
  "event": "invitee.created",
  "payload": {
    "email": "a@x.com",
    "name": "Ada",
    "scheduled_event": {
      "uri": "https://api.calendly.com/scheduled_events/E1",
      "start_time": "2024-01-15T10:00:00Z",
      "end_time": "2024-01-15T10:30:00Z",
      "location": {"join_url": "https://zoom.us/j/123?pwd=abc"},
      "event_memberships": [{"user_email": "host@y.com"}]
    }
  }
}`

func newTestService(t *testing.T) (*Service, *correlate.BookingStore, *audit.MemoryRepo) {
	t.Helper()
	store := correlate.NewBookingStore(24 * time.Hour)
	repo := audit.NewMemoryRepo()
	svc := NewService(store, audit.NewService(repo, slog.Default()), slog.Default())
	return svc, store, repo
}

func TestProcess_StoresBooking(t *testing.T) {
	svc, store, repo := newTestService(t)

	env, err := ParseWebhook([]byte(inviteeCreatedBody))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	svc.Process(context.Background(), "req-1", env)

	rec, ok := store.Get("https://api.calendly.com/scheduled_events/E1")
	if !ok {
		t.Fatalf("expected booking stored")
	}
	if rec.GuestEmail != "a@x.com" || rec.HostEmail != "host@y.com" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.MeetingURL != "https://zoom.us/j/123?pwd=abc" {
		t.Fatalf("expected raw meeting url kept, got %q", rec.MeetingURL)
	}

	recent, _ := repo.Recent(context.Background(), 1)
	if len(recent) != 1 || recent[0].Outcome != audit.OutcomeProcessed {
		t.Fatalf("expected processed audit record, got %+v", recent)
	}
}

func TestProcess_IgnoresOtherEventTypes(t *testing.T) {
	svc, store, repo := newTestService(t)

	svc.Process(context.Background(), "req-1", WebhookEnvelope{Event: "invitee.canceled"})

	if store.Len() != 0 {
		t.Fatalf("expected nothing stored")
	}
	recent, _ := repo.Recent(context.Background(), 1)
	if len(recent) != 1 || recent[0].Outcome != audit.OutcomeSkipped {
		t.Fatalf("expected skipped audit record, got %+v", recent)
	}
}

func TestProcess_RejectsMissingGuestEmail(t *testing.T) {
	svc, store, repo := newTestService(t)

	env, err := ParseWebhook([]byte(`{"event":"invitee.created","payload":{"scheduled_event":{"uri":"E2","start_time":"2024-01-15T10:00:00Z"}}}`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	svc.Process(context.Background(), "req-1", env)

	if store.Len() != 0 {
		t.Fatalf("expected nothing stored")
	}
	recent, _ := repo.Recent(context.Background(), 1)
	if len(recent) != 1 || recent[0].Outcome != audit.OutcomeRejected {
		t.Fatalf("expected rejected audit record, got %+v", recent)
	}
	if recent[0].Error != "missing payload.email" {
		t.Fatalf("expected missing-field reason, got %q", recent[0].Error)
	}
}

func TestProcess_RedeliveryReplacesRecord(t *testing.T) {
	svc, store, _ := newTestService(t)

	env, _ := ParseWebhook([]byte(inviteeCreatedBody))
	svc.Process(context.Background(), "req-1", env)

	env.Payload.Name = "Ada Lovelace"
	svc.Process(context.Background(), "req-2", env)

	if store.Len() != 1 {
		t.Fatalf("expected one record, got %d", store.Len())
	}
	rec, _ := store.Get("https://api.calendly.com/scheduled_events/E1")
	if rec.GuestName != "Ada Lovelace" {
		t.Fatalf("expected replacement, got %q", rec.GuestName)
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"invitee.created"}`)

	// Computed with key "secret", t=1700000000.
	// HMAC-SHA256("1700000000." + body)
	if err := VerifySignature("", "whatever", body); err != nil {
		t.Fatalf("empty key must skip verification, got %v", err)
	}

	header := signedHeader("secret", "1700000000", body)
	if err := VerifySignature("secret", header, body); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if err := VerifySignature("other-key", header, body); err == nil {
		t.Fatalf("expected mismatch with wrong key")
	}
	if err := VerifySignature("secret", "t=1,v1=dead", body); err == nil {
		t.Fatalf("expected mismatch with bogus signature")
	}
	if err := VerifySignature("secret", "", body); err == nil {
		t.Fatalf("expected failure on missing header")
	}
}
