// Package admin implements the administrative API surface.
package admin

import (
	"context"
	"errors"
	"time"

	"studyassist-backend/internal/audit"
	"studyassist-backend/internal/documents"
	"studyassist-backend/internal/quota"
	"studyassist-backend/internal/shared/telemetry"
	"studyassist-backend/internal/users"
)

// ErrInvalidUpdate marks a user access update with unknown values.
var ErrInvalidUpdate = errors.New("invalid access update")

// recentWindow is the lookback for the analytics upload counter.
const recentWindow = 30 * 24 * time.Hour

// Analytics are the aggregate figures the dashboard shows.
type Analytics struct {
	TotalUsers     int   `json:"totalUsers"`
	TotalDocuments int64 `json:"totalDocuments"`
	TotalBytes     int64 `json:"totalBytes"`
	RecentUploads  int64 `json:"recentUploads"`
}

// Service wires admin operations over users, documents, quota and audit.
type Service struct {
	Users users.Repo
	Docs  documents.Repo
	Quota *quota.Service
	Audit *audit.Recorder
	Now   func() time.Time
}

func NewService(userRepo users.Repo, docRepo documents.Repo, quotaSvc *quota.Service, recorder *audit.Recorder) *Service {
	return &Service{
		Users: userRepo,
		Docs:  docRepo,
		Quota: quotaSvc,
		Audit: recorder,
		Now:   time.Now,
	}
}

// ListUsers returns a filtered page of users and the total match count.
func (s *Service) ListUsers(ctx context.Context, filter users.ListFilter) ([]users.User, int, error) {
	return s.Users.List(ctx, filter)
}

// UpdateUserAccess applies a validated plan/role/limit change and records it.
func (s *Service) UpdateUserAccess(ctx context.Context, actorID, userID, clientIP string, upd users.AccessUpdate) (users.User, error) {
	if err := validateUpdate(upd); err != nil {
		return users.User{}, err
	}
	if err := s.Users.UpdateAccess(ctx, userID, upd); err != nil {
		return users.User{}, err
	}
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return users.User{}, err
	}

	details := map[string]any{}
	if upd.Plan != nil {
		details["plan"] = *upd.Plan
	}
	if upd.Role != nil {
		details["role"] = *upd.Role
	}
	if upd.MonthlyLimit != nil {
		details["monthlyLimit"] = *upd.MonthlyLimit
	}
	s.Audit.Record(ctx, audit.Entry{
		ActorID:   actorID,
		Action:    audit.ActionAdminUserUpdate,
		TargetID:  userID,
		Details:   details,
		IPAddress: clientIP,
	})
	return user, nil
}

func validateUpdate(upd users.AccessUpdate) error {
	if upd.Plan == nil && upd.Role == nil && upd.MonthlyLimit == nil {
		return ErrInvalidUpdate
	}
	if upd.Plan != nil && *upd.Plan != users.PlanFree && *upd.Plan != users.PlanPremium {
		return ErrInvalidUpdate
	}
	if upd.Role != nil && *upd.Role != users.RoleUser && *upd.Role != users.RoleAdmin {
		return ErrInvalidUpdate
	}
	if upd.MonthlyLimit != nil && *upd.MonthlyLimit < 0 {
		return ErrInvalidUpdate
	}
	return nil
}

// GetAnalytics aggregates platform usage figures.
func (s *Service) GetAnalytics(ctx context.Context) (Analytics, error) {
	userCount, err := s.Users.Count(ctx)
	if err != nil {
		return Analytics{}, err
	}
	stats, err := s.Docs.Stats(ctx, s.now().Add(-recentWindow))
	if err != nil {
		return Analytics{}, err
	}
	return Analytics{
		TotalUsers:     userCount,
		TotalDocuments: stats.TotalDocuments,
		TotalBytes:     stats.TotalBytes,
		RecentUploads:  stats.RecentUploads,
	}, nil
}

// RepairStorage recomputes every user's storage counter from the documents
// table and records the run.
func (s *Service) RepairStorage(ctx context.Context, actorID, clientIP string) (int64, error) {
	updated, err := s.Quota.RepairStorage(ctx)
	if err != nil {
		return 0, err
	}
	s.Audit.Record(ctx, audit.Entry{
		ActorID:   actorID,
		Action:    audit.ActionAdminStorageRepair,
		Details:   map[string]any{"usersUpdated": updated},
		IPAddress: clientIP,
	})
	return updated, nil
}

// DeleteDocument removes any user's document, releasing the owner's storage.
func (s *Service) DeleteDocument(ctx context.Context, actorID, documentID, clientIP string) error {
	doc, err := s.Docs.GetAnyByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.Docs.DeleteAny(ctx, documentID); err != nil {
		return err
	}
	if err := s.Quota.ReleaseStorage(ctx, doc.UserID, doc.SizeBytes); err != nil {
		// The row is gone; the repair job reconciles the counter later.
		telemetry.Error("admin.release_storage", map[string]any{
			"documentId": documentID,
			"ownerId":    doc.UserID,
			"error":      err.Error(),
		})
	}
	s.Audit.Record(ctx, audit.Entry{
		ActorID:  actorID,
		Action:   audit.ActionAdminDocumentDelete,
		TargetID: documentID,
		Details: map[string]any{
			"ownerId":   doc.UserID,
			"fileName":  doc.OriginalFilename,
			"sizeBytes": doc.SizeBytes,
		},
		IPAddress: clientIP,
	})
	return nil
}

// ListAuditLogs returns recent audit entries.
func (s *Service) ListAuditLogs(ctx context.Context, filter audit.ListFilter) ([]audit.Entry, error) {
	return s.Audit.Repo.List(ctx, filter)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
