package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"placement-backend/internal/applications"
	"placement-backend/internal/interviews"
	"placement-backend/internal/jobs"
	"placement-backend/internal/notifications"
	"placement-backend/internal/shared/config"
	"placement-backend/internal/shared/metrics"
	"placement-backend/internal/shared/server/middleware"
	"placement-backend/internal/shared/server/respond"
)

const readRateMultiplier = 5

// RouterDeps are the handlers and shared services mounted by NewRouter.
type RouterDeps struct {
	Config        config.Config
	Jobs          *jobs.Handler
	Applications  *applications.Handler
	Interviews    *interviews.Handler
	Notifications *notifications.Handler
	// Limiter backs the rate limit middleware; nil uses an in-process bucket.
	Limiter middleware.Limiter
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
	)

	r.GET("/metrics", metrics.Handler())
	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	authed := api.Group("", middleware.Auth(deps.Config.Env))
	if perMinute := deps.Config.RateLimitPerMinute; perMinute > 0 {
		authed.Use(middleware.RateLimit(rateLimitConfig(perMinute, deps.Limiter)))
	}

	student := authed.Group("/student", middleware.RequireRole(middleware.KindStudent))
	company := authed.Group("/company", middleware.RequireRole(middleware.KindCompany))
	if deps.Jobs != nil {
		deps.Jobs.RegisterStudentRoutes(student)
		deps.Jobs.RegisterCompanyRoutes(company)
	}
	if deps.Applications != nil {
		deps.Applications.RegisterStudentRoutes(student)
		deps.Applications.RegisterCompanyRoutes(company)
	}
	if deps.Interviews != nil {
		deps.Interviews.RegisterStudentRoutes(student)
		deps.Interviews.RegisterCompanyRoutes(company)
	}
	if deps.Notifications != nil {
		deps.Notifications.RegisterRoutes(authed)
	}

	return r
}

// rateLimitConfig allows perMinute writes per caller and five times as many reads.
func rateLimitConfig(perMinute int, limiter middleware.Limiter) middleware.RateLimitConfig {
	rate := float64(perMinute) / 60
	return middleware.RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodGet {
				return "READ"
			}
			return "DEFAULT"
		},
		Limiter: limiter,
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT": {Rate: rate, Burst: perMinute},
			"READ":    {Rate: rate * readRateMultiplier, Burst: perMinute * readRateMultiplier},
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
