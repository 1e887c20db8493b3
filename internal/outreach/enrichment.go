package outreach

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Enrichment is the normalized view of an enrichment-complete webhook: the
// contact fields the data provider resolved for a lead.
type Enrichment struct {
	ProfileURL string
	Email      string
	Phone      string
	Name       string
	Company    string
	Title      string
}

// Clay table columns are user-named, so the same logical field arrives under
// many spellings. Aliases are matched after lowercasing and stripping
// spaces, underscores and dashes.
var enrichmentAliases = map[string][]string{
	"profile": {"linkedin", "linkedinurl", "linkedinprofile", "linkedinprofileurl", "profileurl", "liurl"},
	"email":   {"email", "emailaddress", "workemail", "personalemail", "bestemail"},
	"phone":   {"phone", "phonenumber", "mobile", "mobilephone", "mobilenumber", "workphone"},
	"name":    {"name", "fullname", "contactname", "personname"},
	"company": {"company", "companyname", "organization", "employer"},
	"title":   {"title", "jobtitle", "position", "role", "headline"},
}

// ParseEnrichment decodes an enrichment-complete webhook. The row may be
// nested under "data", "row" or "record", or sit at the top level; whichever
// envelope key is present wins.
func ParseEnrichment(body []byte) (Enrichment, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return Enrichment{}, fmt.Errorf("outreach: decoding enrichment webhook: %w", err)
	}

	row := top
	for _, key := range []string{"data", "row", "record"} {
		raw, ok := top[key]
		if !ok {
			continue
		}
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
			row = nested
			break
		}
	}

	fields := make(map[string]string, len(row))
	for key, raw := range row {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		fields[canonicalKey(key)] = strings.TrimSpace(s)
	}

	e := Enrichment{
		ProfileURL: pickField(fields, "profile"),
		Email:      pickField(fields, "email"),
		Phone:      pickField(fields, "phone"),
		Name:       pickField(fields, "name"),
		Company:    pickField(fields, "company"),
		Title:      pickField(fields, "title"),
	}
	if e.ProfileURL == "" && e.Email == "" {
		return Enrichment{}, fmt.Errorf("outreach: enrichment webhook has neither profile url nor email")
	}
	return e, nil
}

func canonicalKey(key string) string {
	key = strings.ToLower(key)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, key)
}

func pickField(fields map[string]string, logical string) string {
	for _, alias := range enrichmentAliases[logical] {
		if v := fields[alias]; v != "" {
			return v
		}
	}
	return ""
}
