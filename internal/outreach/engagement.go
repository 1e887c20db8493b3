// Package outreach handles the lead side of the relay: engagement webhooks
// from the outreach platform park a pending lead, and enrichment webhooks
// from the data provider consume it to update the CRM contact.
package outreach

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Engagement is the normalized view of an engagement-tag webhook: the tagged
// lead plus the conversation that earned the tag.
type Engagement struct {
	ProfileURL string
	Name       string
	Company    string
	Title      string
	Tag        string
	Transcript string
}

// engagementPayload mirrors the HeyReach delivery shape. The platform has
// shipped several spellings for lead and message fields over time, so every
// alias seen in production payloads is accepted.
type engagementPayload struct {
	Lead struct {
		ProfileURL  string `json:"profileUrl"`
		LinkedInURL string `json:"linkedin_url"`
		URL         string `json:"url"`
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		FullName    string `json:"fullName"`
		Name        string `json:"name"`
		CompanyName string `json:"companyName"`
		Company     string `json:"company"`
		Position    string `json:"position"`
		Headline    string `json:"headline"`
	} `json:"lead"`
	Tag      string    `json:"tag"`
	TagName  string    `json:"tagName"`
	Messages []message `json:"messages"`
	Convo    []message `json:"conversation"`
}

// message tolerates the sender/timestamp/text spellings the platform emits.
type message struct {
	Sender    string `json:"sender"`
	From      string `json:"from"`
	IsFromMe  *bool  `json:"isFromMe"`
	Timestamp string `json:"timestamp"`
	SentAt    string `json:"sentAt"`
	CreatedAt string `json:"createdAt"`
	Text      string `json:"text"`
	Body      string `json:"body"`
	Message   string `json:"message"`
	Content   string `json:"content"`
}

func (m message) sender() string {
	switch {
	case m.Sender != "":
		return m.Sender
	case m.From != "":
		return m.From
	case m.IsFromMe != nil && *m.IsFromMe:
		return "You"
	case m.IsFromMe != nil:
		return "Lead"
	}
	return "Unknown"
}

func (m message) text() string {
	for _, t := range []string{m.Text, m.Body, m.Message, m.Content} {
		if strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t)
		}
	}
	return ""
}

func (m message) when() time.Time {
	for _, raw := range []string{m.Timestamp, m.SentAt, m.CreatedAt} {
		if raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// ParseEngagement decodes an engagement-tag webhook. The profile URL is the
// correlation key; a payload without one cannot be parked and is an error.
func ParseEngagement(body []byte) (Engagement, error) {
	var p engagementPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Engagement{}, fmt.Errorf("outreach: decoding engagement webhook: %w", err)
	}

	eng := Engagement{
		ProfileURL: firstNonEmpty(p.Lead.ProfileURL, p.Lead.LinkedInURL, p.Lead.URL),
		Name:       firstNonEmpty(p.Lead.FullName, p.Lead.Name, strings.TrimSpace(p.Lead.FirstName+" "+p.Lead.LastName)),
		Company:    firstNonEmpty(p.Lead.CompanyName, p.Lead.Company),
		Title:      firstNonEmpty(p.Lead.Position, p.Lead.Headline),
		Tag:        firstNonEmpty(p.Tag, p.TagName),
	}
	if eng.ProfileURL == "" {
		return Engagement{}, fmt.Errorf("outreach: engagement webhook has no profile url")
	}

	msgs := p.Messages
	if len(msgs) == 0 {
		msgs = p.Convo
	}
	eng.Transcript = buildTranscript(msgs)
	return eng, nil
}

// buildTranscript renders the conversation as "sender: text" lines in
// chronological order. Messages without parseable timestamps keep their
// delivery order.
func buildTranscript(msgs []message) string {
	type line struct {
		at   time.Time
		idx  int
		text string
	}
	lines := make([]line, 0, len(msgs))
	for i, m := range msgs {
		text := m.text()
		if text == "" {
			continue
		}
		lines = append(lines, line{at: m.when(), idx: i, text: m.sender() + ": " + text})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].at.IsZero() || lines[j].at.IsZero() {
			return lines[i].idx < lines[j].idx
		}
		return lines[i].at.Before(lines[j].at)
	})

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
