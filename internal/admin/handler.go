package admin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"studyassist-backend/internal/audit"
	"studyassist-backend/internal/documents"
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

// RegisterRoutes attaches the admin routes. The group is expected to carry
// the admin-only middleware already.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.listUsers)
	rg.PATCH("/users/:id", h.updateUser)
	rg.GET("/analytics", h.analytics)
	rg.POST("/maintenance/storage-repair", h.repairStorage)
	rg.DELETE("/documents/:id", h.deleteDocument)
	rg.GET("/audit-logs", h.listAuditLogs)
}

type userResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	Role          string `json:"role"`
	Plan          string `json:"plan"`
	MonthlyLimit  int    `json:"monthlyLimit"`
	DocumentsUsed int    `json:"documentsUsed"`
	StorageUsed   int64  `json:"storageUsed"`
}

func toUserResponse(u users.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		Role:          u.Role,
		Plan:          u.Plan,
		MonthlyLimit:  u.MonthlyLimit,
		DocumentsUsed: u.DocumentsUsed,
		StorageUsed:   u.StorageUsed,
	}
}

func (h *Handler) listUsers(c *gin.Context) {
	filter := users.ListFilter{
		Plan:   c.Query("plan"),
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}

	list, total, err := h.Svc.ListUsers(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list users", nil)
		return
	}

	out := make([]userResponse, 0, len(list))
	for _, u := range list {
		out = append(out, toUserResponse(u))
	}
	respond.OK(c, gin.H{"users": out, "total": total})
}

type updateUserRequest struct {
	Plan         *string `json:"plan"`
	Role         *string `json:"role"`
	MonthlyLimit *int    `json:"monthlyLimit"`
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	user, err := h.Svc.UpdateUserAccess(
		c.Request.Context(),
		middleware.UserIDFromContext(c),
		c.Param("id"),
		c.ClientIP(),
		users.AccessUpdate{Plan: req.Plan, Role: req.Role, MonthlyLimit: req.MonthlyLimit},
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidUpdate):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid plan, role or limit", nil)
		case errors.Is(err, users.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update user", nil)
		}
		return
	}
	respond.OK(c, toUserResponse(user))
}

func (h *Handler) analytics(c *gin.Context) {
	analytics, err := h.Svc.GetAnalytics(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute analytics", nil)
		return
	}
	respond.OK(c, analytics)
}

func (h *Handler) repairStorage(c *gin.Context) {
	updated, err := h.Svc.RepairStorage(c.Request.Context(), middleware.UserIDFromContext(c), c.ClientIP())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "storage repair failed", nil)
		return
	}
	respond.OK(c, gin.H{"usersUpdated": updated})
}

func (h *Handler) deleteDocument(c *gin.Context) {
	err := h.Svc.DeleteDocument(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), c.ClientIP())
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		return
	}
	respond.OK(c, gin.H{"success": true})
}

type auditEntryResponse struct {
	ID        string         `json:"id"`
	ActorID   string         `json:"actorId"`
	Action    string         `json:"action"`
	TargetID  string         `json:"targetId"`
	Details   map[string]any `json:"details"`
	IPAddress string         `json:"ipAddress"`
	CreatedAt string         `json:"createdAt"`
}

func (h *Handler) listAuditLogs(c *gin.Context) {
	filter := audit.ListFilter{
		ActorID: c.Query("actorId"),
		Action:  c.Query("action"),
		Limit:   parseIntQuery(c, "limit", 50),
		Offset:  parseIntQuery(c, "offset", 0),
	}

	entries, err := h.Svc.ListAuditLogs(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list audit logs", nil)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, auditEntryResponse{
			ID:        entry.ID,
			ActorID:   entry.ActorID,
			Action:    entry.Action,
			TargetID:  entry.TargetID,
			Details:   entry.Details,
			IPAddress: entry.IPAddress,
			CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	respond.OK(c, gin.H{"entries": out})
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
