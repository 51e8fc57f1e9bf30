package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"studyassist-backend/internal/shared/telemetry"
)

// Recorder writes audit entries. Recording never fails the caller: a failed
// insert is logged and dropped so audit outages cannot block user actions.
type Recorder struct {
	Repo Repo
	Now  func() time.Time
}

func NewRecorder(repo Repo) *Recorder {
	return &Recorder{Repo: repo, Now: time.Now}
}

// Record stamps and persists one entry.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.Repo == nil {
		return
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = now().UTC()

	if err := r.Repo.Insert(ctx, entry); err != nil {
		telemetry.Error("audit.record", map[string]any{
			"action":   entry.Action,
			"actorId":  entry.ActorID,
			"targetId": entry.TargetID,
			"error":    err.Error(),
		})
	}
}
