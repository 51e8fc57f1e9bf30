package bootstrap

import (
	"testing"

	"github.com/gin-gonic/gin"

	"studyassist-backend/internal/shared/config"
)

func TestBuildDevWithoutDatabaseUsesMemoryStores(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(config.Config{Env: "dev", TempDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if app.DB != nil {
		t.Fatal("expected nil DB in memory mode")
	}
	if app.UsersRepo == nil || app.DocumentsRepo == nil || app.Pipeline == nil {
		t.Fatal("services not wired")
	}
}

func TestBuildDevFallsBackToPlaceholderWithoutAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("OPENAI_API_KEY", "")

	app, err := Build(config.Config{Env: "dev", LLMProvider: "openai", TempDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if app.Generator == nil {
		t.Fatal("generator not wired")
	}
}

func TestBuildProductionRequiresDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	if _, err := Build(config.Config{Env: "production"}); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}
