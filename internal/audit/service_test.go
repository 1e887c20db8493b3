package audit

import (
	"context"
	"log/slog"
	"testing"
)

func TestService_AppendRequiresSourceAndOutcome(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, slog.Default())

	if err := svc.Append(context.Background(), Delivery{Outcome: OutcomeProcessed}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Delivery{Source: SourceFathom}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendStampsIDAndTime(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, slog.Default())

	if err := svc.Append(context.Background(), Delivery{
		Source:  SourceCalendly,
		Outcome: OutcomeProcessed,
		Step:    "store_booking",
	}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	recent, err := svc.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 delivery")
	}
	if recent[0].ID == "" || recent[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp stamped, got %+v", recent[0])
	}
}

func TestMemoryRepo_RecentIsNewestFirstAndBounded(t *testing.T) {
	repo := NewMemoryRepo()
	repo.max = 3
	svc := NewService(repo, slog.Default())

	for _, step := range []string{"a", "b", "c", "d"} {
		svc.Record(context.Background(), Delivery{Source: SourceClay, Outcome: OutcomeSkipped, Step: step})
	}

	recent, err := repo.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected cap of 3, got %d", len(recent))
	}
	if recent[0].Step != "d" || recent[2].Step != "b" {
		t.Fatalf("expected newest first with oldest dropped, got %+v", recent)
	}
}
