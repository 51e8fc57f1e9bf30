package audit

import "context"

// ListFilter narrows audit log queries.
type ListFilter struct {
	ActorID string
	Action  string
	Limit   int
	Offset  int
}

// Repo persists audit entries.
type Repo interface {
	Insert(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
}
