package users

import (
	"context"
	"time"
)

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "user not found" }

// ListFilter narrows and paginates admin user listings. Empty fields are
// skipped; present fields compose into a conjunctive filter.
type ListFilter struct {
	Plan   string
	Role   string
	Search string
	Limit  int
	Offset int
}

// AccessUpdate carries optional admin changes to a user's plan, role, or limit.
type AccessUpdate struct {
	Plan         *string
	Role         *string
	MonthlyLimit *int
}

type Repo interface {
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	UpdateAccess(ctx context.Context, userID string, upd AccessUpdate) error
	Count(ctx context.Context) (int, error)

	// Ledger operations. Counter mutations are atomic on the store side;
	// EnsureCurrentPeriod applies the lazy 30-day reset before returning.
	EnsureCurrentPeriod(ctx context.Context, userID string, now time.Time) (User, error)
	ConsumeUpload(ctx context.Context, userID string, sizeBytes int64) error
	ReleaseStorage(ctx context.Context, userID string, sizeBytes int64) error
	RepairStorage(ctx context.Context) (int64, error)
}
