// Package audit records administrative and destructive actions.
package audit

import "time"

// Entry is one audit log record.
type Entry struct {
	ID        string
	ActorID   string
	Action    string
	TargetID  string
	Details   map[string]any
	IPAddress string
	CreatedAt time.Time
}

// Actions recorded by the API.
const (
	ActionDocumentDelete      = "document.delete"
	ActionAdminDocumentDelete = "admin.document.delete"
	ActionAdminUserUpdate     = "admin.user.update"
	ActionAdminStorageRepair  = "admin.storage.repair"
)
