package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used when no database is configured.
type MemoryRepo struct {
	mu    sync.Mutex
	byID  map[string]User
	order []string

	// StorageTotals supplies per-user document byte sums for RepairStorage.
	// Wired by bootstrap to the documents memory repo.
	StorageTotals func(ctx context.Context) (map[string]int64, error)
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]User)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := r.byID[user.ID]; ok {
		existing.Email = user.Email
		existing.FullName = user.FullName
		existing.UpdatedAt = now
		r.byID[user.ID] = existing
		return nil
	}

	if user.Role == "" {
		user.Role = RoleUser
	}
	if user.Plan == "" {
		user.Plan = PlanFree
	}
	if user.MonthlyLimit <= 0 {
		user.MonthlyLimit = DefaultMonthlyLimit
	}
	user.DocumentsUsed = 0
	user.StorageUsed = 0
	user.LastReset = now
	user.CreatedAt = now
	user.UpdatedAt = now
	r.byID[user.ID] = user
	r.order = append(r.order, user.ID)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryRepo) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]User, 0, len(r.byID))
	for _, id := range r.order {
		user := r.byID[id]
		if filter.Plan != "" && user.Plan != filter.Plan {
			continue
		}
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			needle := strings.ToLower(search)
			if !strings.Contains(strings.ToLower(user.Email), needle) &&
				!strings.Contains(strings.ToLower(user.FullName), needle) {
				continue
			}
		}
		matched = append(matched, user)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *MemoryRepo) UpdateAccess(ctx context.Context, userID string, upd AccessUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[userID]
	if !ok {
		return ErrNotFound
	}
	if upd.Plan != nil {
		user.Plan = *upd.Plan
	}
	if upd.Role != nil {
		user.Role = *upd.Role
	}
	if upd.MonthlyLimit != nil {
		user.MonthlyLimit = *upd.MonthlyLimit
	}
	user.UpdatedAt = time.Now().UTC()
	r.byID[userID] = user
	return nil
}

func (r *MemoryRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

func (r *MemoryRepo) EnsureCurrentPeriod(ctx context.Context, userID string, now time.Time) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	if now.Sub(user.LastReset) >= periodLength {
		user.DocumentsUsed = 0
		user.LastReset = now
		user.UpdatedAt = now
		r.byID[userID] = user
	}
	return user, nil
}

func (r *MemoryRepo) ConsumeUpload(ctx context.Context, userID string, sizeBytes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[userID]
	if !ok {
		return ErrNotFound
	}
	user.DocumentsUsed++
	user.StorageUsed += sizeBytes
	user.UpdatedAt = time.Now().UTC()
	r.byID[userID] = user
	return nil
}

func (r *MemoryRepo) ReleaseStorage(ctx context.Context, userID string, sizeBytes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[userID]
	if !ok {
		return ErrNotFound
	}
	user.StorageUsed -= sizeBytes
	if user.StorageUsed < 0 {
		user.StorageUsed = 0
	}
	user.UpdatedAt = time.Now().UTC()
	r.byID[userID] = user
	return nil
}

func (r *MemoryRepo) RepairStorage(ctx context.Context) (int64, error) {
	totals := map[string]int64{}
	if r.StorageTotals != nil {
		var err error
		totals, err = r.StorageTotals(ctx)
		if err != nil {
			return 0, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for id, user := range r.byID {
		user.StorageUsed = totals[id]
		user.UpdatedAt = time.Now().UTC()
		r.byID[id] = user
		updated++
	}
	return updated, nil
}

var _ Repo = (*MemoryRepo)(nil)
