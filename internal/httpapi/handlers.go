// Package httpapi holds the HTTP surface: webhook intake endpoints and the
// operator API. Handlers stay thin: verify, parse, acknowledge, then hand the
// delivery to the owning service in a goroutine.
package httpapi

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"crm-relay/internal/audit"
	"crm-relay/internal/auth"
	"crm-relay/internal/booking"
	"crm-relay/internal/config"
	"crm-relay/internal/correlate"
	"crm-relay/internal/meeting"
	"crm-relay/internal/outreach"
	"crm-relay/internal/rbac"
	"crm-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody caps inbound payloads; the largest real deliveries
// (enrichment rows) are a few KB.
const maxWebhookBody = 1 << 20

const (
	calendlySignatureHeader = "Calendly-Webhook-Signature"
	fathomSignatureHeader   = "X-Fathom-Signature"
)

// Handlers groups HTTP handlers for dependency injection.
type Handlers struct {
	Cfg      config.Config
	Auth     *auth.Manager
	Booking  *booking.Service
	Meeting  *meeting.Service
	Outreach *outreach.Service
	Audit    *audit.Service
	Bookings *correlate.BookingStore
	Leads    *correlate.LeadStore
}

// requestID is stamped by the logger middleware onto the response header.
func requestID(c *gin.Context) string {
	return c.Writer.Header().Get("X-Request-Id")
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return nil, false
	}
	return body, true
}

// dispatch runs fn after the response is written. The request context dies
// with the response, so the background flow gets a detached context that
// keeps the request-scoped values.
func dispatch(c *gin.Context, fn func(ctx context.Context)) {
	ctx := context.WithoutCancel(c.Request.Context())
	log := logger.FromGin(c)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("webhook processing panicked", "panic", r)
			}
		}()
		fn(ctx)
	}()
}

func (h Handlers) rejectDelivery(c *gin.Context, source audit.Source, step, reason string) {
	h.Audit.Record(c.Request.Context(), audit.Delivery{
		RequestID: requestID(c),
		Source:    source,
		Outcome:   audit.OutcomeRejected,
		Step:      step,
		Error:     reason,
	})
}

// --- Webhook intake ---

// CalendlyWebhook stores the booking for later correlation. The signing key
// is optional; when configured, deliveries with bad signatures are dropped.
func (h Handlers) CalendlyWebhook(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	if err := booking.VerifySignature(h.Cfg.Calendly.WebhookSigningKey, c.GetHeader(calendlySignatureHeader), body); err != nil {
		h.rejectDelivery(c, audit.SourceCalendly, "verify_signature", err.Error())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	env, err := booking.ParseWebhook(body)
	if err != nil {
		h.rejectDelivery(c, audit.SourceCalendly, "parse", err.Error())
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	rid := requestID(c)
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
	dispatch(c, func(ctx context.Context) {
		h.Booking.Process(ctx, rid, env)
	})
}

// FathomWebhook handles the generic notetaker endpoint.
func (h Handlers) FathomWebhook(c *gin.Context) {
	h.handleFathom(c, "", h.Cfg.Fathom.WebhookSecret)
}

// FathomAccountWebhook handles the account-scoped variant; the account path
// segment selects the per-account signing secret.
func (h Handlers) FathomAccountWebhook(c *gin.Context) {
	account := c.Param("account")
	secret, ok := h.Cfg.Fathom.AccountSecrets[account]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown account"})
		return
	}
	h.handleFathom(c, account, secret)
}

func (h Handlers) handleFathom(c *gin.Context, account, secret string) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	if err := meeting.VerifySignature(secret, c.GetHeader(fathomSignatureHeader), body); err != nil {
		h.rejectDelivery(c, audit.SourceFathom, "verify_signature", err.Error())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	ev, err := meeting.ParseWebhook(body)
	if err != nil {
		h.rejectDelivery(c, audit.SourceFathom, "parse", err.Error())
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	rid := requestID(c)
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
	dispatch(c, func(ctx context.Context) {
		h.Meeting.Process(ctx, rid, account, ev)
	})
}

// HeyReachWebhook parks an engaged lead until enrichment arrives.
func (h Handlers) HeyReachWebhook(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	rid := requestID(c)
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
	dispatch(c, func(ctx context.Context) {
		h.Outreach.ProcessEngagement(ctx, rid, body)
	})
}

// ClayWebhook consumes the pending lead and updates the CRM contact.
func (h Handlers) ClayWebhook(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	rid := requestID(c)
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
	dispatch(c, func(ctx context.Context) {
		h.Outreach.ProcessEnrichment(ctx, rid, body)
	})
}

// --- Auth ---

type tokenRequest struct {
	APIKey   string `json:"api_key"`
	Operator string `json:"operator"`
	Role     string `json:"role"`
}

// IssueToken exchanges the configured ops key for a JWT pair.
func (h Handlers) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.APIKey == "" || req.APIKey != h.Cfg.Ops.APIKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}
	if req.Operator == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "operator required"})
		return
	}
	role := req.Role
	if role == "" {
		role = rbac.RoleOperator
	}
	if role != rbac.RoleOperator && role != rbac.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), req.Operator, role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Ops ---

// StoreStats reports live correlation-store sizes.
func (h Handlers) StoreStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"bookings":      h.Bookings.Len(),
		"pending_leads": h.Leads.Len(),
	})
}

// RecentDeliveries returns the newest entries of the delivery audit log.
func (h Handlers) RecentDeliveries(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}
	deliveries, err := h.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": deliveries})
}
