// Package attio is the CRM adapter. It is a thin I/O wrapper: no correlation
// or retry logic lives here, and callers treat every method as a single
// remote call.
package attio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Person is the provider-agnostic view of an Attio people record.
type Person struct {
	RecordID string
}

// APIError carries the remote status for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("attio: status %d: %s", e.StatusCode, e.Body)
}

// IsUniquenessConflict reports whether the error is Attio rejecting a write
// because an attribute value is already taken by another record. Field-level
// conflicts must not abort a multi-field update.
func IsUniquenessConflict(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	if apiErr.StatusCode != http.StatusBadRequest && apiErr.StatusCode != http.StatusConflict {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Body), "unique")
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

type recordEnvelope struct {
	Data struct {
		ID struct {
			RecordID string `json:"record_id"`
		} `json:"id"`
	} `json:"data"`
}

type queryEnvelope struct {
	Data []struct {
		ID struct {
			RecordID string `json:"record_id"`
		} `json:"id"`
	} `json:"data"`
}

// FindOrCreatePerson asserts a people record matched by email address and
// returns its record id. The assert endpoint is idempotent at the CRM layer,
// so re-delivered webhooks re-running this call are harmless.
func (c *Client) FindOrCreatePerson(ctx context.Context, email, name string) (Person, error) {
	if email == "" {
		return Person{}, fmt.Errorf("attio: email is required")
	}

	values := map[string]any{
		"email_addresses": []string{email},
	}
	if name != "" {
		values["name"] = name
	}
	body := map[string]any{"data": map[string]any{"values": values}}

	var out recordEnvelope
	err := c.do(ctx, http.MethodPut,
		"/v2/objects/people/records?matching_attribute=email_addresses", body, &out)
	if err != nil {
		return Person{}, err
	}
	if out.Data.ID.RecordID == "" {
		return Person{}, fmt.Errorf("attio: assert returned no record id")
	}
	return Person{RecordID: out.Data.ID.RecordID}, nil
}

// FindPersonByLinkedIn looks a person up by LinkedIn URL. A miss is not an
// error: enrichment data can arrive for contacts the CRM has never seen.
func (c *Client) FindPersonByLinkedIn(ctx context.Context, linkedinURL string) (Person, bool, error) {
	if linkedinURL == "" {
		return Person{}, false, fmt.Errorf("attio: linkedin url is required")
	}

	body := map[string]any{
		"filter": map[string]any{"linkedin": linkedinURL},
		"limit":  1,
	}
	var out queryEnvelope
	err := c.do(ctx, http.MethodPost, "/v2/objects/people/records/query", body, &out)
	if err != nil {
		return Person{}, false, err
	}
	if len(out.Data) == 0 {
		return Person{}, false, nil
	}
	return Person{RecordID: out.Data[0].ID.RecordID}, true, nil
}

// UpdatePerson patches attribute values on a people record.
//
// Attio enforces uniqueness on some attributes (emails, phones). A conflict on
// one field must not discard the rest of the update, so on a uniqueness
// rejection the fields are retried one at a time and only the conflicting
// ones are dropped.
func (c *Client) UpdatePerson(ctx context.Context, recordID string, fields map[string]any) error {
	if recordID == "" {
		return fmt.Errorf("attio: record id is required")
	}
	if len(fields) == 0 {
		return nil
	}

	err := c.patchPerson(ctx, recordID, fields)
	if err == nil || !IsUniquenessConflict(err) {
		return err
	}

	for key, value := range fields {
		fieldErr := c.patchPerson(ctx, recordID, map[string]any{key: value})
		if fieldErr != nil && !IsUniquenessConflict(fieldErr) {
			return fieldErr
		}
	}
	return nil
}

func (c *Client) patchPerson(ctx context.Context, recordID string, fields map[string]any) error {
	body := map[string]any{"data": map[string]any{"values": fields}}
	return c.do(ctx, http.MethodPatch, "/v2/objects/people/records/"+recordID, body, nil)
}

// CreateNote attaches a note to a people record.
func (c *Client) CreateNote(ctx context.Context, recordID, title, markdown string) error {
	if recordID == "" {
		return fmt.Errorf("attio: record id is required")
	}
	body := map[string]any{
		"data": map[string]any{
			"parent_object":    "people",
			"parent_record_id": recordID,
			"title":            title,
			"format":           "markdown",
			"content":          markdown,
		},
	}
	return c.do(ctx, http.MethodPost, "/v2/notes", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("attio: encoding request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("attio: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("attio: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("attio: decoding response: %w", err)
	}
	return nil
}
