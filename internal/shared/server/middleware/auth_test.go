package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"studyassist-backend/internal/shared/auth"
)

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(Auth())
	r.GET("/api/v1/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userId": UserIDFromContext(c),
			"role":   UserRoleFromContext(c),
			"plan":   UserPlanFromContext(c),
		})
	})
	r.GET("/api/v1/admin/users", RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func signTestToken(t *testing.T, sub, role, plan string) string {
	t.Helper()
	token, err := auth.SignJWT(auth.Claims{
		Role: role,
		Plan: plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: sub,
		},
	})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	return token
}

func TestAuthRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	r := newAuthRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthAcceptsValidBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	r := newAuthRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "user-1", "user", "free"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRequireAdminForbidsNonAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	r := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "user-1", "user", "free"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "admin-1", "admin", "free"))
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", resp.Code)
	}
}
