// Package quota implements the per-user document quota and storage ledger.
package quota

import (
	"time"

	"studyassist-backend/internal/users"
)

// PremiumFloor is the minimum effective monthly limit for premium plans and
// admin accounts, regardless of the configured per-user limit.
const PremiumFloor = 100

// PeriodLength is the quota window; documents_used resets lazily once a
// window has fully elapsed since last_reset.
const PeriodLength = 30 * 24 * time.Hour

// EffectiveLimit returns the monthly document limit in force for a user.
func EffectiveLimit(u users.User) int {
	limit := u.MonthlyLimit
	if u.Plan == users.PlanPremium || u.Role == users.RoleAdmin {
		if limit < PremiumFloor {
			limit = PremiumFloor
		}
	}
	return limit
}

// Remaining returns how many uploads the user has left this period, never negative.
func Remaining(u users.User) int {
	rem := EffectiveLimit(u) - u.DocumentsUsed
	if rem < 0 {
		return 0
	}
	return rem
}

// ResetsAt returns when the current quota window lapses.
func ResetsAt(u users.User) time.Time {
	return u.LastReset.Add(PeriodLength)
}
