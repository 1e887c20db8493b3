package meeting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crm-relay/internal/poll"
)

// Client fetches transcripts from the Fathom API. Transcripts become
// available some time after a meeting ends; a 404 means "not yet", not
// "never", and is reported as poll.ErrNotReady.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type transcriptResponse struct {
	Items []struct {
		Speaker struct {
			DisplayName string `json:"display_name"`
		} `json:"speaker"`
		Text string `json:"text"`
	} `json:"items"`
}

// FetchTranscript returns the transcript for a recording as speaker-labelled
// plain text.
func (c *Client) FetchTranscript(ctx context.Context, recordingID string) (string, error) {
	if recordingID == "" {
		return "", fmt.Errorf("meeting: recording id is required")
	}

	url := fmt.Sprintf("%s/external/v1/recordings/%s/transcript", c.baseURL, recordingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("meeting: creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("meeting: transcript fetch: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", poll.ErrNotReady
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("meeting: transcript fetch status %d: %s", resp.StatusCode, string(body))
	}

	var tr transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("meeting: decoding transcript: %w", err)
	}

	var b strings.Builder
	for _, item := range tr.Items {
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		if item.Speaker.DisplayName != "" {
			b.WriteString(item.Speaker.DisplayName)
			b.WriteString(": ")
		}
		b.WriteString(item.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// TranscriptReady guards against placeholder or truncated responses: a usable
// transcript is non-empty and longer than 50 characters.
func TranscriptReady(transcript string) bool {
	return len(strings.TrimSpace(transcript)) > 50
}
