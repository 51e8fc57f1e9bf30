package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyassist-backend/internal/admin"
	googleauth "studyassist-backend/internal/auth"
	"studyassist-backend/internal/documents"
	"studyassist-backend/internal/ingest"
	"studyassist-backend/internal/quota"
	"studyassist-backend/internal/shared/config"
	"studyassist-backend/internal/shared/metrics"
	"studyassist-backend/internal/shared/server/middleware"
	"studyassist-backend/internal/shared/server/respond"
	"studyassist-backend/internal/users"
)

const uploadRateGroup = "UPLOAD"

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config           config.Config
	UsersHandler     *users.Handler
	QuotaHandler     *quota.Handler
	DocumentsHandler *documents.Handler
	IngestHandler    *ingest.Handler
	AdminHandler     *admin.Handler
	GoogleAuth       *googleauth.GoogleService
	Limiter          middleware.Limiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		metrics.HTTP(),
	)

	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(),
		middleware.RateLimit(rateLimitConfig(deps.Limiter)),
	)

	deps.GoogleAuth.RegisterRoutes(api)
	deps.UsersHandler.RegisterRoutes(api)
	deps.QuotaHandler.RegisterRoutes(api)
	deps.DocumentsHandler.RegisterRoutes(api)
	deps.IngestHandler.RegisterRoutes(api)

	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin())
	deps.AdminHandler.RegisterRoutes(adminGroup)

	return r
}

// rateLimitConfig throttles uploads harder than the rest of the API since
// each one fans out into extraction and an LLM call.
func rateLimitConfig(limiter middleware.Limiter) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Limiter: limiter,
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT":       {Rate: 10, Burst: 20},
			uploadRateGroup: {Rate: 0.2, Burst: 3},
		},
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/documents" {
				return uploadRateGroup
			}
			return ""
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
