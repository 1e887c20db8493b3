// Package notify posts best-effort failure alerts to a Slack incoming
// webhook. Delivery here must never influence an orchestration outcome:
// errors are logged and swallowed.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Sink is the failure-notification contract consumed by orchestrators.
type Sink interface {
	NotifyFailure(ctx context.Context, source, step string, err error)
}

// Slack posts to an incoming-webhook URL.
type Slack struct {
	webhookURL string
	httpClient *http.Client
	log        *slog.Logger
}

func NewSlack(webhookURL string, log *slog.Logger) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

func (s *Slack) NotifyFailure(ctx context.Context, source, step string, cause error) {
	text := fmt.Sprintf(":rotating_light: webhook relay failure\n*source:* %s\n*step:* %s\n*error:* %v", source, step, cause)
	raw, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(raw))
	if err != nil {
		s.log.Warn("notify: building slack request failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn("notify: slack post failed", "err", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.log.Warn("notify: slack rejected alert", "status", resp.StatusCode)
	}
}

// Noop discards alerts. Used when no webhook URL is configured.
type Noop struct{}

func (Noop) NotifyFailure(context.Context, string, string, error) {}
