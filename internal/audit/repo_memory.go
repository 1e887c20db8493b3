package audit

import (
	"context"
	"sync"
)

// MemoryRepo is a bounded in-memory append-only repository. It is the default
// when no database is configured and the backing store for tests.
type MemoryRepo struct {
	mu         sync.Mutex
	deliveries []Delivery
	max        int
}

const defaultMemoryCap = 1000

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{max: defaultMemoryCap} }

func (r *MemoryRepo) Append(ctx context.Context, d Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, d)
	if len(r.deliveries) > r.max {
		// Drop the oldest; this repo is an operational window, not an archive.
		r.deliveries = r.deliveries[len(r.deliveries)-r.max:]
	}
	return nil
}

func (r *MemoryRepo) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.deliveries)
	if limit > n {
		limit = n
	}
	out := make([]Delivery, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.deliveries[i])
	}
	return out, nil
}
