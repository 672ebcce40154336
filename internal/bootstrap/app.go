package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"placement-backend/internal/applications"
	"placement-backend/internal/interviews"
	"placement-backend/internal/jobs"
	"placement-backend/internal/notifications"
	"placement-backend/internal/placement"
	"placement-backend/internal/reminders"
	"placement-backend/internal/scheduling"
	"placement-backend/internal/shared/config"
	"placement-backend/internal/shared/server"
	"placement-backend/internal/shared/server/middleware"
	"placement-backend/internal/shared/storage/db"
)

// App holds shared dependencies.
type App struct {
	Config               config.Config
	Router               *gin.Engine
	DB                   *sql.DB
	Redis                *redis.Client
	Store                placement.Store
	Notifications        notifications.Store
	Grid                 scheduling.Grid
	JobsService          *jobs.Service
	ApplicationsService  *applications.Service
	InterviewsService    *interviews.Service
	RemindersService     *reminders.Service
	JobsHandler          *jobs.Handler
	ApplicationsHandler  *applications.Handler
	InterviewsHandler    *interviews.Handler
	NotificationsHandler *notifications.Handler
}

// Build prepares shared dependencies and the router. dbOpts sizes the pool
// for the calling process.
func Build(ctx context.Context, cfg config.Config, dbOpts db.Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	grid, err := scheduling.LoadGrid(cfg.GridConfigPath)
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg, dbOpts)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: sqlDB, Grid: grid}
	if sqlDB != nil {
		app.Store = placement.NewPGStore(sqlDB)
		app.Notifications = notifications.NewPGSink(sqlDB)
	} else {
		mem := placement.NewMemoryStore()
		if cfg.SeedPath != "" {
			seed, err := placement.LoadSeed(cfg.SeedPath)
			if err != nil {
				return nil, err
			}
			seed.Apply(mem)
			log.Printf("bootstrap: seeded in-memory store from %s", cfg.SeedPath)
		}
		app.Store = mem
		app.Notifications = notifications.NewMemorySink()
	}

	app.Redis, err = buildRedis(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	app.JobsService = jobs.NewService(app.Store)
	app.ApplicationsService = applications.NewService(app.Store, scheduling.NewScheduler(grid), app.Notifications)
	app.InterviewsService = interviews.NewService(app.Store, app.Notifications, grid.Location)
	app.RemindersService = reminders.NewService(app.Store, app.Notifications, grid.Location, grid.Venue)
	app.JobsHandler = jobs.NewHandler(app.JobsService)
	app.ApplicationsHandler = applications.NewHandler(app.ApplicationsService)
	app.InterviewsHandler = interviews.NewHandler(app.InterviewsService)
	app.NotificationsHandler = notifications.NewHandler(app.Notifications)

	deps := server.RouterDeps{
		Config:        cfg,
		Jobs:          app.JobsHandler,
		Applications:  app.ApplicationsHandler,
		Interviews:    app.InterviewsHandler,
		Notifications: app.NotificationsHandler,
	}
	if app.Redis != nil {
		deps.Limiter = middleware.NewRedisLimiter(app.Redis)
	}
	app.Router = server.NewRouter(deps)

	return app, nil
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config, opts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory store")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(opts))
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory store: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if cfg.MigrateOnStart {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildRedis(rawURL string) (*redis.Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
