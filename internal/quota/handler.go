package quota

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studyassist-backend/internal/shared/server/middleware"
	"studyassist-backend/internal/shared/server/respond"
	"studyassist-backend/internal/users"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches quota routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/quota", h.get)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	user, err := h.Svc.Snapshot(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch quota", nil)
		return
	}

	respond.OK(c, gin.H{
		"plan":        user.Plan,
		"limit":       EffectiveLimit(user),
		"used":        user.DocumentsUsed,
		"remaining":   Remaining(user),
		"storageUsed": user.StorageUsed,
		"resetsAt":    ResetsAt(user),
	})
}
