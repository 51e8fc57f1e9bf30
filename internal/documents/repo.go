package documents

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the document does not exist or belongs to another user.
var ErrNotFound = errors.New("document not found")

// Stats are the aggregate figures the analytics endpoint reports.
type Stats struct {
	TotalDocuments int64
	TotalBytes     int64
	RecentUploads  int64
}

// Repo persists documents and their generated study materials.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	GetAnyByID(ctx context.Context, documentID string) (Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	Delete(ctx context.Context, userID, documentID string) error
	DeleteAny(ctx context.Context, documentID string) error
	Stats(ctx context.Context, recentSince time.Time) (Stats, error)
}
