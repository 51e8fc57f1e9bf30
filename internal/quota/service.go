package quota

import (
	"context"
	"time"

	"studyassist-backend/internal/users"
)

// Store is the subset of the users repository the ledger operates on.
type Store interface {
	GetByID(ctx context.Context, userID string) (users.User, error)
	EnsureCurrentPeriod(ctx context.Context, userID string, now time.Time) (users.User, error)
	ConsumeUpload(ctx context.Context, userID string, sizeBytes int64) error
	ReleaseStorage(ctx context.Context, userID string, sizeBytes int64) error
	RepairStorage(ctx context.Context) (int64, error)
}

// Service manages quota evaluation and storage accounting.
type Service struct {
	Store Store
	Now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{Store: store, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Snapshot applies the lazy period reset and returns the user's current
// ledger state. Every quota-sensitive entry point goes through this.
func (s *Service) Snapshot(ctx context.Context, userID string) (users.User, error) {
	return s.Store.EnsureCurrentPeriod(ctx, userID, s.now())
}

// CheckUpload applies the lazy reset and verifies the user may upload one
// more document. Returns ErrQuotaExceeded when the limit is reached.
func (s *Service) CheckUpload(ctx context.Context, userID string) (users.User, error) {
	user, err := s.Snapshot(ctx, userID)
	if err != nil {
		return users.User{}, err
	}
	if user.DocumentsUsed >= EffectiveLimit(user) {
		return user, ErrQuotaExceeded
	}
	return user, nil
}

// ConsumeUpload books one document and its bytes against the user.
func (s *Service) ConsumeUpload(ctx context.Context, userID string, sizeBytes int64) error {
	return s.Store.ConsumeUpload(ctx, userID, sizeBytes)
}

// ReleaseStorage returns bytes to the user after a document deletion.
func (s *Service) ReleaseStorage(ctx context.Context, userID string, sizeBytes int64) error {
	return s.Store.ReleaseStorage(ctx, userID, sizeBytes)
}

// RepairStorage recomputes storage counters from the documents table.
// Idempotent; safe to run repeatedly.
func (s *Service) RepairStorage(ctx context.Context) (int64, error) {
	return s.Store.RepairStorage(ctx)
}
