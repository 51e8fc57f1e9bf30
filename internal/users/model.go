package users

import "time"

// Plan and role values stored on a user row.
const (
	PlanFree    = "free"
	PlanPremium = "premium"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultMonthlyLimit applies to newly created users.
const DefaultMonthlyLimit = 5

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	Role          string    `json:"role"`
	Plan          string    `json:"plan"`
	MonthlyLimit  int       `json:"monthlyLimit"`
	DocumentsUsed int       `json:"documentsUsed"`
	StorageUsed   int64     `json:"storageUsed"`
	LastReset     time.Time `json:"lastReset"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
