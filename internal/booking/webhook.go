package booking

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// WebhookEnvelope is the subset of a Calendly webhook delivery we care about.
// Calendly posts JSON with a top-level event discriminator.
type WebhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Email          string `json:"email"`
		Name           string `json:"name"`
		ScheduledEvent struct {
			URI       string    `json:"uri"`
			StartTime time.Time `json:"start_time"`
			EndTime   time.Time `json:"end_time"`
			Location  struct {
				JoinURL string `json:"join_url"`
			} `json:"location"`
			EventMemberships []struct {
				UserEmail string `json:"user_email"`
			} `json:"event_memberships"`
		} `json:"scheduled_event"`
	} `json:"payload"`
}

// EventInviteeCreated is the only event type this relay consumes; everything
// else is acknowledged and ignored.
const EventInviteeCreated = "invitee.created"

func ParseWebhook(body []byte) (WebhookEnvelope, error) {
	var env WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return WebhookEnvelope{}, fmt.Errorf("booking: decoding webhook: %w", err)
	}
	return env, nil
}

// HostEmail returns the first event membership email, if any.
func (e WebhookEnvelope) HostEmail() string {
	if ms := e.Payload.ScheduledEvent.EventMemberships; len(ms) > 0 {
		return ms[0].UserEmail
	}
	return ""
}

var ErrBadSignature = errors.New("booking: webhook signature mismatch")

// VerifySignature checks a Calendly webhook signature header of the form
// "t=<unix>,v1=<hex hmac-sha256>" where the signed payload is "<t>.<body>".
// An empty signing key skips verification.
func VerifySignature(signingKey, header string, body []byte) error {
	if signingKey == "" {
		return nil
	}
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrBadSignature
	}
	return nil
}
