package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studyassist-backend/internal/shared/auth"
	"studyassist-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
	userRoleKey  = "userRole"
	userPlanKey  = "userPlan"
)

// Auth validates session tokens and stores identity in context.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/auth/google/") {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		claims, err := auth.VerifyJWT(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(userIDKey, claims.Subject)
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		if claims.Name != "" {
			c.Set(userNameKey, claims.Name)
		}
		c.Set(userRoleKey, claims.Role)
		c.Set(userPlanKey, claims.Plan)
		c.Next()
	}
}

// RequireAdmin rejects requests whose session role is not admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserRoleFromContext(c) != "admin" {
			respond.Error(c, http.StatusForbidden, "forbidden", "admin access required", nil)
			return
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return stringFromContext(c, userEmailKey)
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	return stringFromContext(c, userNameKey)
}

// UserRoleFromContext fetches the user role set by the auth middleware.
func UserRoleFromContext(c *gin.Context) string {
	return stringFromContext(c, userRoleKey)
}

// UserPlanFromContext fetches the user plan set by the auth middleware.
func UserPlanFromContext(c *gin.Context) string {
	return stringFromContext(c, userPlanKey)
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
