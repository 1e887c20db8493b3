package outreach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"crm-relay/internal/attio"
	"crm-relay/internal/audit"
	"crm-relay/internal/correlate"
	"crm-relay/internal/notify"
	"crm-relay/pkg/logger"
)

// CRM is the subset of the Attio client the lead flow needs.
type CRM interface {
	FindPersonByLinkedIn(ctx context.Context, linkedinURL string) (attio.Person, bool, error)
	FindOrCreatePerson(ctx context.Context, email, name string) (attio.Person, error)
	UpdatePerson(ctx context.Context, recordID string, fields map[string]any) error
	CreateNote(ctx context.Context, recordID, title, markdown string) error
}

type Service struct {
	Leads  *correlate.LeadStore
	CRM    CRM
	Notify notify.Sink
	Audit  *audit.Service
	Log    *slog.Logger

	clock func() time.Time
}

func NewService(leads *correlate.LeadStore, crm CRM, sink notify.Sink, auditSvc *audit.Service, log *slog.Logger) *Service {
	return &Service{
		Leads:  leads,
		CRM:    crm,
		Notify: sink,
		Audit:  auditSvc,
		Log:    log,
		clock:  time.Now,
	}
}

// ProcessEngagement parks a tagged lead until its enrichment data arrives.
// The webhook has already been acknowledged.
func (s *Service) ProcessEngagement(ctx context.Context, requestID string, body []byte) {
	log := logger.ForDelivery(s.Log, string(audit.SourceHeyReach), requestID)

	eng, err := ParseEngagement(body)
	if err != nil {
		log.Warn("outreach: malformed engagement payload", "err", err)
		s.record(ctx, requestID, audit.SourceHeyReach, audit.OutcomeRejected, "parse", err.Error(), nil)
		return
	}

	lead := correlate.PendingLead{
		ProfileURL: eng.ProfileURL,
		Name:       eng.Name,
		Company:    eng.Company,
		Title:      eng.Title,
		Transcript: eng.Transcript,
		Tag:        eng.Tag,
		TaggedAt:   s.clock().UTC(),
	}
	if !s.Leads.Put(lead) {
		log.Warn("outreach: profile url does not normalize", "profile_url", eng.ProfileURL)
		s.record(ctx, requestID, audit.SourceHeyReach, audit.OutcomeRejected, "park_lead", "profile url does not normalize", nil)
		return
	}

	log.Info("outreach: lead parked", "profile_url", eng.ProfileURL, "tag", eng.Tag)
	s.record(ctx, requestID, audit.SourceHeyReach, audit.OutcomeProcessed, "park_lead", "", map[string]string{
		"profile_url": eng.ProfileURL,
	})
}

// ProcessEnrichment consumes the pending lead for the enriched profile (if
// any) and writes the contact data into the CRM. A missing lead only means
// the conversation note is skipped; the contact update still happens.
func (s *Service) ProcessEnrichment(ctx context.Context, requestID string, body []byte) {
	log := logger.ForDelivery(s.Log, string(audit.SourceClay), requestID)

	step := "parse"
	enr, err := ParseEnrichment(body)
	if err != nil {
		log.Warn("outreach: malformed enrichment payload", "err", err)
		s.record(ctx, requestID, audit.SourceClay, audit.OutcomeRejected, step, err.Error(), nil)
		return
	}
	log = log.With("profile_url", enr.ProfileURL)

	step = "match_lead"
	lead, hasLead := s.Leads.Take(enr.ProfileURL)
	if hasLead {
		log.Info("outreach: consumed pending lead", "tag", lead.Tag)
	} else {
		// Enrichment can finish before (or without) an engagement tag.
		log.Info("outreach: no pending lead for profile")
	}

	step = "crm_lookup"
	person, found, lookupErr := s.lookupPerson(ctx, enr, lead, hasLead)
	if lookupErr != nil {
		s.fail(ctx, requestID, audit.SourceClay, step, lookupErr, log)
		return
	}
	if !found {
		log.Info("outreach: no contact identity in enrichment, skipping")
		s.record(ctx, requestID, audit.SourceClay, audit.OutcomeSkipped, step, "no contact identity", detailFor(enr))
		return
	}

	step = "crm_update"
	fields := enrichmentFields(enr, lead, hasLead)
	if err := s.CRM.UpdatePerson(ctx, person.RecordID, fields); err != nil {
		s.fail(ctx, requestID, audit.SourceClay, step, err, log)
		return
	}

	step = "crm_note"
	if hasLead && lead.Transcript != "" {
		title := "Outreach conversation"
		if lead.Tag != "" {
			title = fmt.Sprintf("Outreach conversation (%s)", lead.Tag)
		}
		if err := s.CRM.CreateNote(ctx, person.RecordID, title, lead.Transcript); err != nil {
			// Secondary write: the contact update already succeeded.
			log.Warn("outreach: note append failed", "record_id", person.RecordID, "err", err)
		}
	}

	log.Info("outreach: enrichment processed", "record_id", person.RecordID, "had_lead", hasLead)
	s.record(ctx, requestID, audit.SourceClay, audit.OutcomeProcessed, step, "", detailFor(enr))
}

// lookupPerson resolves the CRM contact: by LinkedIn URL first, falling back
// to a find-or-create by email. found=false means the enrichment carried no
// usable identity.
func (s *Service) lookupPerson(ctx context.Context, enr Enrichment, lead correlate.PendingLead, hasLead bool) (attio.Person, bool, error) {
	if enr.ProfileURL != "" {
		person, found, err := s.CRM.FindPersonByLinkedIn(ctx, enr.ProfileURL)
		if err != nil {
			return attio.Person{}, false, err
		}
		if found {
			return person, true, nil
		}
	}

	if enr.Email != "" {
		name := enr.Name
		if name == "" && hasLead {
			name = lead.Name
		}
		person, err := s.CRM.FindOrCreatePerson(ctx, enr.Email, name)
		if err != nil {
			return attio.Person{}, false, err
		}
		return person, true, nil
	}

	return attio.Person{}, false, nil
}

// enrichmentFields builds the patch payload, preferring enrichment values and
// filling gaps from the parked lead.
func enrichmentFields(enr Enrichment, lead correlate.PendingLead, hasLead bool) map[string]any {
	fields := make(map[string]any)
	put := func(key, primary, fallback string) {
		switch {
		case primary != "":
			fields[key] = primary
		case hasLead && fallback != "":
			fields[key] = fallback
		}
	}
	put("linkedin", enr.ProfileURL, lead.ProfileURL)
	put("name", enr.Name, lead.Name)
	put("company", enr.Company, lead.Company)
	put("job_title", enr.Title, lead.Title)
	if enr.Email != "" {
		fields["email_addresses"] = []string{enr.Email}
	}
	if enr.Phone != "" {
		fields["phone_numbers"] = []string{enr.Phone}
	}
	return fields
}

func detailFor(enr Enrichment) map[string]string {
	detail := make(map[string]string, 2)
	if enr.ProfileURL != "" {
		detail["profile_url"] = enr.ProfileURL
	}
	if enr.Email != "" {
		detail["email"] = enr.Email
	}
	return detail
}

func (s *Service) fail(ctx context.Context, requestID string, source audit.Source, step string, err error, log *slog.Logger) {
	log.Error("outreach: flow failed", "step", step, "err", err)
	s.Notify.NotifyFailure(ctx, string(source), step, err)
	s.record(ctx, requestID, source, audit.OutcomeFailed, step, err.Error(), nil)
}

func (s *Service) record(ctx context.Context, requestID string, source audit.Source, outcome audit.Outcome, step, errMsg string, detail map[string]string) {
	var raw string
	if len(detail) > 0 {
		b, _ := json.Marshal(detail)
		raw = string(b)
	}
	s.Audit.Record(ctx, audit.Delivery{
		RequestID: requestID,
		Source:    source,
		Outcome:   outcome,
		Step:      step,
		Error:     errMsg,
		Detail:    raw,
	})
}
