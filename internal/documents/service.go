package documents

import (
	"context"

	"studyassist-backend/internal/audit"
	"studyassist-backend/internal/shared/telemetry"
)

// StorageReleaser returns booked bytes to a user's storage counter.
type StorageReleaser interface {
	ReleaseStorage(ctx context.Context, userID string, sizeBytes int64) error
}

// Service exposes document reads and owner-scoped deletion.
type Service struct {
	Repo  Repo
	Quota StorageReleaser
	Audit *audit.Recorder
}

func NewService(repo Repo, quota StorageReleaser, recorder *audit.Recorder) *Service {
	return &Service{Repo: repo, Quota: quota, Audit: recorder}
}

// Get returns a document owned by the user.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	return s.Repo.GetByID(ctx, userID, documentID)
}

// List returns the user's documents, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Delete removes a document owned by the user and releases its bytes from
// the storage counter. A failed release is logged, not surfaced: the row is
// already gone and the storage repair job reconciles counters later.
func (s *Service) Delete(ctx context.Context, userID, documentID, clientIP string) error {
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, userID, documentID); err != nil {
		return err
	}
	if err := s.Quota.ReleaseStorage(ctx, userID, doc.SizeBytes); err != nil {
		telemetry.Error("documents.release_storage", map[string]any{
			"userId":     userID,
			"documentId": documentID,
			"sizeBytes":  doc.SizeBytes,
			"error":      err.Error(),
		})
	}
	s.Audit.Record(ctx, audit.Entry{
		ActorID:  userID,
		Action:   audit.ActionDocumentDelete,
		TargetID: documentID,
		Details: map[string]any{
			"fileName":  doc.OriginalFilename,
			"sizeBytes": doc.SizeBytes,
		},
		IPAddress: clientIP,
	})
	return nil
}
