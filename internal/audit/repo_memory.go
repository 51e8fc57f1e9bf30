package audit

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repo used when DATABASE_URL is not configured.
type MemoryRepo struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Insert(ctx context.Context, entry Entry) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	_ = ctx
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if filter.ActorID != "" && entry.ActorID != filter.ActorID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		matched = append(matched, entry)
	}

	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
