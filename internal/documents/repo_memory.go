package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used when DATABASE_URL is not configured.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Document
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Document)}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.OriginalFilename == "" {
		doc.OriginalFilename = doc.FileName
	}
	r.byID[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[documentID]
	if !ok || doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) GetAnyByID(ctx context.Context, documentID string) (Document, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	_ = ctx
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var owned []Document
	for _, doc := range r.byID {
		if doc.UserID == userID {
			owned = append(owned, doc)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })

	if offset >= len(owned) {
		return nil, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, documentID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[documentID]
	if !ok || doc.UserID != userID {
		return ErrNotFound
	}
	delete(r.byID, documentID)
	return nil
}

func (r *MemoryRepo) DeleteAny(ctx context.Context, documentID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[documentID]; !ok {
		return ErrNotFound
	}
	delete(r.byID, documentID)
	return nil
}

func (r *MemoryRepo) Stats(ctx context.Context, recentSince time.Time) (Stats, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var stats Stats
	for _, doc := range r.byID {
		stats.TotalDocuments++
		stats.TotalBytes += doc.SizeBytes
		if !doc.CreatedAt.Before(recentSince) {
			stats.RecentUploads++
		}
	}
	return stats, nil
}

// StorageTotals sums stored bytes per user. The users repository uses it to
// recompute storage counters in memory mode.
func (r *MemoryRepo) StorageTotals(ctx context.Context) (map[string]int64, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	totals := make(map[string]int64)
	for _, doc := range r.byID {
		totals[doc.UserID] += doc.SizeBytes
	}
	return totals, nil
}

var _ Repo = (*MemoryRepo)(nil)
