package admin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"studyassist-backend/internal/bootstrap"
	sharedauth "studyassist-backend/internal/shared/auth"
	"studyassist-backend/internal/shared/config"
	"studyassist-backend/internal/users"
)

func buildApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	cfg := config.Config{
		Port:            "0",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		TempDir:         t.TempDir(),
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func seedUser(t *testing.T, app *bootstrap.App, id, role string) {
	t.Helper()
	if err := app.UsersRepo.Upsert(context.Background(), users.User{ID: id, Email: id + "@example.com"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if role != "" && role != users.RoleUser {
		if err := app.UsersRepo.UpdateAccess(context.Background(), id, users.AccessUpdate{Role: &role}); err != nil {
			t.Fatalf("UpdateAccess: %v", err)
		}
	}
}

func signToken(t *testing.T, sub, role string) string {
	t.Helper()
	claims := sharedauth.Claims{Role: role, Plan: "free"}
	claims.Subject = sub
	token, err := sharedauth.SignJWT(claims)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	return token
}

func doJSON(t *testing.T, app *bootstrap.App, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	return resp
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	app := buildApp(t)
	seedUser(t, app, "google:alice", users.RoleUser)
	token := signToken(t, "google:alice", "user")

	resp := doJSON(t, app, http.MethodGet, "/api/v1/admin/users", token, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestAdminListAndUpdateUsers(t *testing.T) {
	app := buildApp(t)
	seedUser(t, app, "google:admin", users.RoleAdmin)
	seedUser(t, app, "google:alice", users.RoleUser)
	token := signToken(t, "google:admin", "admin")

	resp := doJSON(t, app, http.MethodGet, "/api/v1/admin/users", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list status %d: %s", resp.Code, resp.Body.String())
	}
	var list struct {
		Users []struct {
			ID   string `json:"id"`
			Plan string `json:"plan"`
		} `json:"users"`
		Total int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 2 || len(list.Users) != 2 {
		t.Fatalf("expected 2 users, got %+v", list)
	}

	respPatch := doJSON(t, app, http.MethodPatch, "/api/v1/admin/users/google:alice", token, map[string]any{
		"plan":         "premium",
		"monthlyLimit": 200,
	})
	if respPatch.Code != http.StatusOK {
		t.Fatalf("patch status %d: %s", respPatch.Code, respPatch.Body.String())
	}
	var updated struct {
		Plan         string `json:"plan"`
		MonthlyLimit int    `json:"monthlyLimit"`
	}
	if err := json.NewDecoder(respPatch.Body).Decode(&updated); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	if updated.Plan != "premium" || updated.MonthlyLimit != 200 {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	respBad := doJSON(t, app, http.MethodPatch, "/api/v1/admin/users/google:alice", token, map[string]any{
		"plan": "gold",
	})
	if respBad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad plan, got %d", respBad.Code)
	}
}

func TestAdminAnalyticsAndRepair(t *testing.T) {
	app := buildApp(t)
	seedUser(t, app, "google:admin", users.RoleAdmin)
	token := signToken(t, "google:admin", "admin")

	resp := doJSON(t, app, http.MethodGet, "/api/v1/admin/analytics", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("analytics status %d: %s", resp.Code, resp.Body.String())
	}
	var analytics struct {
		TotalUsers     int   `json:"totalUsers"`
		TotalDocuments int64 `json:"totalDocuments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&analytics); err != nil {
		t.Fatalf("decode analytics: %v", err)
	}
	if analytics.TotalUsers != 1 || analytics.TotalDocuments != 0 {
		t.Fatalf("unexpected analytics: %+v", analytics)
	}

	respRepair := doJSON(t, app, http.MethodPost, "/api/v1/admin/maintenance/storage-repair", token, nil)
	if respRepair.Code != http.StatusOK {
		t.Fatalf("repair status %d: %s", respRepair.Code, respRepair.Body.String())
	}

	respLogs := doJSON(t, app, http.MethodGet, "/api/v1/admin/audit-logs?action=admin.storage.repair", token, nil)
	if respLogs.Code != http.StatusOK {
		t.Fatalf("audit-logs status %d: %s", respLogs.Code, respLogs.Body.String())
	}
	var logs struct {
		Entries []struct {
			Action  string `json:"action"`
			ActorID string `json:"actorId"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(respLogs.Body).Decode(&logs); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	if len(logs.Entries) != 1 || logs.Entries[0].ActorID != "google:admin" {
		t.Fatalf("unexpected audit entries: %+v", logs.Entries)
	}
}
