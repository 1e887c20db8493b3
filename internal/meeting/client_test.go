package meeting

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"crm-relay/internal/poll"
)

func TestClientFetchTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/external/v1/recordings/rec-1/transcript" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "key-1" {
			t.Errorf("api key header = %q", got)
		}
		w.Write([]byte(`{"items":[
			{"speaker":{"display_name":"Alice"},"text":"Hello everyone"},
			{"speaker":{"display_name":"Bob"},"text":"Hi Alice"},
			{"speaker":{"display_name":"Alice"},"text":"   "},
			{"text":"unattributed line"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1")
	got, err := c.FetchTranscript(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("FetchTranscript: %v", err)
	}
	want := "Alice: Hello everyone\nBob: Hi Alice\nunattributed line"
	if got != want {
		t.Fatalf("transcript = %q, want %q", got, want)
	}
}

func TestClientFetchTranscript_NotFoundIsNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1")
	if _, err := c.FetchTranscript(context.Background(), "rec-1"); !errors.Is(err, poll.ErrNotReady) {
		t.Fatalf("expected poll.ErrNotReady for 404, got %v", err)
	}
}

func TestClientFetchTranscript_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1")
	_, err := c.FetchTranscript(context.Background(), "rec-1")
	if err == nil || errors.Is(err, poll.ErrNotReady) {
		t.Fatalf("expected a hard error for 500, got %v", err)
	}
}

func TestClientFetchTranscript_EmptyID(t *testing.T) {
	c := NewClient("https://api.fathom.ai", "key-1")
	if _, err := c.FetchTranscript(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty recording id")
	}
}

func TestTranscriptReady(t *testing.T) {
	if TranscriptReady("") || TranscriptReady("   ") || TranscriptReady("Processing...") {
		t.Fatal("placeholder transcripts must not be ready")
	}
	if !TranscriptReady(longTranscript) {
		t.Fatal("substantive transcript must be ready")
	}
}
