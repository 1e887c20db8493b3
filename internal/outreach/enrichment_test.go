package outreach

import "testing"

func TestParseEnrichment_Envelopes(t *testing.T) {
	row := `{"LinkedIn Profile URL": "linkedin.com/in/johndoe/", "Work Email": "john@acme.com"}`
	cases := []struct {
		name string
		body string
	}{
		{"data", `{"data": ` + row + `}`},
		{"row", `{"row": ` + row + `}`},
		{"record", `{"record": ` + row + `}`},
		{"top-level", row},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := ParseEnrichment([]byte(tc.body))
			if err != nil {
				t.Fatalf("ParseEnrichment: %v", err)
			}
			if e.ProfileURL != "linkedin.com/in/johndoe/" {
				t.Fatalf("profile url = %q", e.ProfileURL)
			}
			if e.Email != "john@acme.com" {
				t.Fatalf("email = %q", e.Email)
			}
		})
	}
}

func TestParseEnrichment_ColumnSpellings(t *testing.T) {
	body := []byte(`{"data": {
		"linkedin_url": "https://linkedin.com/in/jane",
		"Best Email": "jane@globex.com",
		"Mobile Phone": "+1 555 0100",
		"Full Name": "Jane Roe",
		"Company Name": "Globex",
		"Job Title": "CTO",
		"Row ID": "r-1",
		"score": 42
	}}`)

	e, err := ParseEnrichment(body)
	if err != nil {
		t.Fatalf("ParseEnrichment: %v", err)
	}
	if e.ProfileURL != "https://linkedin.com/in/jane" {
		t.Fatalf("profile url = %q", e.ProfileURL)
	}
	if e.Email != "jane@globex.com" || e.Phone != "+1 555 0100" {
		t.Fatalf("contact = %q / %q", e.Email, e.Phone)
	}
	if e.Name != "Jane Roe" || e.Company != "Globex" || e.Title != "CTO" {
		t.Fatalf("identity = %+v", e)
	}
}

func TestParseEnrichment_NoIdentity(t *testing.T) {
	if _, err := ParseEnrichment([]byte(`{"data": {"Company": "Acme"}}`)); err == nil {
		t.Fatal("expected error without profile url or email")
	}
}

func TestParseEnrichment_BadJSON(t *testing.T) {
	if _, err := ParseEnrichment([]byte(`[1,2]`)); err == nil {
		t.Fatal("expected error for non-object body")
	}
}
