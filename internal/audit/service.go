package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for the delivery log.
//
// It MUST be append-only; no Update/Delete methods are provided.
type Repository interface {
	Append(ctx context.Context, d Delivery) error
	Recent(ctx context.Context, limit int) ([]Delivery, error)
}

// Service records webhook delivery outcomes. Callers treat it as
// best-effort: Record logs append failures instead of returning them.
type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, clock: time.Now}
}

var ErrInvalidDelivery = errors.New("audit: invalid delivery")

func (s *Service) Append(ctx context.Context, d Delivery) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if d.Source == "" {
		return ErrInvalidDelivery
	}
	if d.Outcome == "" {
		return ErrInvalidDelivery
	}

	now := s.clock().UTC()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	return s.repo.Append(ctx, d)
}

// Record appends without surfacing errors; the orchestration outcome is
// already decided by the time the audit row is written.
func (s *Service) Record(ctx context.Context, d Delivery) {
	if err := s.Append(ctx, d); err != nil {
		s.log.Warn("audit: append failed", "source", d.Source, "outcome", d.Outcome, "err", err)
	}
}

// Recent returns the newest deliveries for the ops API.
func (s *Service) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.Recent(ctx, limit)
}
