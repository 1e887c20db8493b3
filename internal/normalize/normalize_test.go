package normalize

import "testing"

func TestURL_StripsQueryFragmentAndTrailingSlash(t *testing.T) {
	cases := map[string]string{
		"https://zoom.us/j/123?pwd=abc":      "https://zoom.us/j/123",
		"https://zoom.us/j/123#section":      "https://zoom.us/j/123",
		"https://zoom.us/j/123/":             "https://zoom.us/j/123",
		"HTTPS://Zoom.us/J/123":              "https://zoom.us/j/123",
		"https://meet.google.com/abc-def//":  "https://meet.google.com/abc-def",
		"  https://zoom.us/j/123?pwd=abc  ":  "https://zoom.us/j/123",
	}
	for in, want := range cases {
		if got := URL(in); got != want {
			t.Fatalf("URL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestURL_ProfileForm(t *testing.T) {
	cases := map[string]string{
		"https://www.linkedin.com/in/JohnDoe?trk=x":           "https://www.linkedin.com/in/johndoe",
		"linkedin.com/in/johndoe/":                            "https://www.linkedin.com/in/johndoe",
		"https://linkedin.com/in/johndoe/details/experience/": "https://www.linkedin.com/in/johndoe",
		"http://www.linkedin.com/in/jane-d-123":               "https://www.linkedin.com/in/jane-d-123",
	}
	for in, want := range cases {
		if got := URL(in); got != want {
			t.Fatalf("URL(%q) = %q, want %q", in, got, want)
		}
	}
}

// The profile reduction applies to any domain carrying an /in/ segment;
// store keys and lookup candidates agree because both pass through URL.
func TestURL_ProfileFormAppliesOnAnyDomain(t *testing.T) {
	stored := URL("https://example.com/in/team?utm=x")
	looked := URL("example.com/in/team/")
	if stored != looked {
		t.Fatalf("store and lookup disagree: %q vs %q", stored, looked)
	}
	if stored != "https://www.example.com/in/team" {
		t.Fatalf("canonical form = %q", stored)
	}
}

func TestURL_Idempotent(t *testing.T) {
	inputs := []string{
		"https://zoom.us/j/123?pwd=abc",
		"https://zoom.us/j/123",
		"linkedin.com/in/JohnDoe/",
		"https://www.linkedin.com/in/johndoe",
		"HTTPS://Meet.Google.com/ABC#frag",
		"not a url at all",
	}
	for _, in := range inputs {
		once := URL(in)
		twice := URL(once)
		if once != twice {
			t.Fatalf("URL not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestURL_EmptyAndUnparsable(t *testing.T) {
	if got := URL(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := URL("   "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	// Unparsable: returned trimmed, unchanged.
	in := "  ::::not-a-url::::  "
	if got := URL(in); got != "::::not-a-url::::" {
		t.Fatalf("expected trimmed input back, got %q", got)
	}
}

func TestEmail(t *testing.T) {
	if got := Email("  A@X.Com "); got != "a@x.com" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := Email(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
