package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Fatalf("expected bearer auth")
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "gpt-test" {
			t.Fatalf("expected model forwarded, got %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[1].Content != "hello transcript" {
			t.Fatalf("expected transcript as user message, got %+v", req.Messages)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"## Key points\n- hi"}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "gpt-test")
	got, err := c.Summarize(context.Background(), "hello transcript")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != "## Key points\n- hi" {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestSummarize_EmptyTranscriptRejected(t *testing.T) {
	c := New("http://unused", "key", "gpt-test")
	if _, err := c.Summarize(context.Background(), "   "); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSummarize_EmptyChoicesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "gpt-test")
	if _, err := c.Summarize(context.Background(), "t"); err == nil {
		t.Fatalf("expected error on empty choices")
	}
}
