// Package bootstrap builds the application dependency graph.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"studyassist-backend/internal/admin"
	"studyassist-backend/internal/audit"
	googleauth "studyassist-backend/internal/auth"
	"studyassist-backend/internal/documents"
	"studyassist-backend/internal/extract"
	"studyassist-backend/internal/ingest"
	"studyassist-backend/internal/quota"
	"studyassist-backend/internal/shared/config"
	"studyassist-backend/internal/shared/server"
	"studyassist-backend/internal/shared/server/middleware"
	"studyassist-backend/internal/shared/storage/db"
	"studyassist-backend/internal/studygen"
	openai "studyassist-backend/internal/studygen/openai"
	"studyassist-backend/internal/users"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  *redis.Client

	UsersRepo     users.Repo
	DocumentsRepo documents.Repo
	AuditRepo     audit.Repo

	UsersService     *users.Service
	QuotaService     *quota.Service
	DocumentsService *documents.Service
	AdminService     *admin.Service
	AuditRecorder    *audit.Recorder
	Generator        *studygen.Generator
	Pipeline         *ingest.Pipeline
	GoogleAuth       *googleauth.GoogleService
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Redis:  buildRedis(cfg),
	}
	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		UsersHandler:     users.NewHandler(app.UsersService),
		QuotaHandler:     quota.NewHandler(app.QuotaService),
		DocumentsHandler: documents.NewHandler(app.DocumentsService),
		IngestHandler:    ingest.NewHandler(app.Pipeline, cfg.TempDir),
		AdminHandler:     admin.NewHandler(app.AdminService),
		GoogleAuth:       app.GoogleAuth,
		Limiter:          buildLimiter(app.Redis),
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildRedis(cfg config.Config) *redis.Client {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("bootstrap: invalid REDIS_URL, using in-process rate limiter: %v", err)
		return nil
	}
	return redis.NewClient(opts)
}

func buildLimiter(client *redis.Client) middleware.Limiter {
	if client != nil {
		return middleware.NewRedisLimiter(client)
	}
	return middleware.NewRateLimiter(nil)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var userRepo users.Repo
	var docRepo documents.Repo
	var auditRepo audit.Repo

	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
		auditRepo = &audit.PGRepo{DB: app.DB}
	} else {
		memUsers := users.NewMemoryRepo()
		memDocs := documents.NewMemoryRepo()
		memUsers.StorageTotals = memDocs.StorageTotals
		userRepo = memUsers
		docRepo = memDocs
		auditRepo = audit.NewMemoryRepo()
	}

	recorder := audit.NewRecorder(auditRepo)
	quotaSvc := quota.NewService(userRepo)
	userSvc := users.NewService(userRepo)
	docSvc := documents.NewService(docRepo, quotaSvc, recorder)
	adminSvc := admin.NewService(userRepo, docRepo, quotaSvc, recorder)

	llmClient := studygen.Client(studygen.PlaceholderClient{})
	if app.Config.LLMProvider == "openai" {
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" && isDevLike(app.Config.Env) {
			log.Printf("bootstrap: OPENAI_API_KEY empty; using placeholder generation client")
		} else {
			openaiClient, err := openai.NewClient(apiKey, app.Config.LLMModel)
			if err != nil {
				return err
			}
			llmClient = openaiClient
		}
	}
	generator := studygen.NewGenerator(llmClient)

	pipeline := ingest.NewPipeline(quotaSvc, extract.Text, generator.Generate, docRepo)

	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)

	app.UsersRepo = userRepo
	app.DocumentsRepo = docRepo
	app.AuditRepo = auditRepo
	app.UsersService = userSvc
	app.QuotaService = quotaSvc
	app.DocumentsService = docSvc
	app.AdminService = adminSvc
	app.AuditRecorder = recorder
	app.Generator = generator
	app.Pipeline = pipeline
	app.GoogleAuth = googleAuthSvc
	return nil
}
