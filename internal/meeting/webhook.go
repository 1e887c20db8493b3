package meeting

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

// Event is the normalized view of a notetaker webhook: the recording that
// just finished plus the fuzzy keys used to correlate it to a booking.
type Event struct {
	RecordingID string
	Title       string
	MeetingURL  string
	GuestEmail  string
	GuestName   string
	HostEmail   string
	StartTime   time.Time
	EndTime     time.Time
}

// flexID accepts recording ids delivered as either JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// webhookPayload mirrors the Fathom delivery shape. Invitee ordering is not
// guaranteed; the guest is the first non-host invitee.
type webhookPayload struct {
	ID        flexID `json:"id"`
	Recording struct {
		ID flexID `json:"id"`
	} `json:"recording"`
	Meeting struct {
		Title              string    `json:"title"`
		JoinURL            string    `json:"join_url"`
		URL                string    `json:"url"`
		ScheduledStartTime time.Time `json:"scheduled_start_time"`
		ScheduledEndTime   time.Time `json:"scheduled_end_time"`
	} `json:"meeting"`
	FathomUser struct {
		Email string `json:"email"`
	} `json:"fathom_user"`
	Invitees []struct {
		Email  string `json:"email"`
		Name   string `json:"name"`
		IsHost bool   `json:"is_host"`
	} `json:"invitees"`
}

func ParseWebhook(body []byte) (Event, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, fmt.Errorf("meeting: decoding webhook: %w", err)
	}

	ev := Event{
		RecordingID: string(p.Recording.ID),
		Title:       p.Meeting.Title,
		MeetingURL:  p.Meeting.JoinURL,
		HostEmail:   p.FathomUser.Email,
		StartTime:   p.Meeting.ScheduledStartTime,
		EndTime:     p.Meeting.ScheduledEndTime,
	}
	if ev.RecordingID == "" {
		ev.RecordingID = string(p.ID)
	}
	if ev.MeetingURL == "" {
		ev.MeetingURL = p.Meeting.URL
	}
	for _, inv := range p.Invitees {
		if inv.IsHost {
			if ev.HostEmail == "" {
				ev.HostEmail = inv.Email
			}
			continue
		}
		if ev.GuestEmail == "" {
			ev.GuestEmail = inv.Email
			ev.GuestName = inv.Name
		}
	}
	return ev, nil
}

var ErrBadSignature = errors.New("meeting: webhook signature mismatch")

// VerifySignature checks a Fathom webhook signature header: a hex HMAC-SHA256
// of the raw body, optionally prefixed "sha256=". An empty secret skips
// verification.
func VerifySignature(secret, header string, body []byte) error {
	if secret == "" {
		return nil
	}
	sig := strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	if sig == "" {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(sig))) {
		return ErrBadSignature
	}
	return nil
}
