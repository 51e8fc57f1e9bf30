package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studyassist-backend/internal/shared/server/middleware"
	"studyassist-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches user routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch user", nil)
		return
	}

	respond.OK(c, gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"fullName": user.FullName,
		"role":     user.Role,
		"plan":     user.Plan,
	})
}
