package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("REMINDER_CRON", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("MIGRATE_ON_START", "")

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.ReminderCron != "0 18 * * *" {
		t.Fatalf("unexpected reminder cron %q", cfg.ReminderCron)
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Fatalf("expected 60 writes per minute, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.MigrateOnStart {
		t.Fatalf("expected migrations off by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("DATABASE_URL", "postgres://localhost/placement")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("MIGRATE_ON_START", "true")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "oops")
	t.Setenv("GRID_CONFIG_PATH", " /etc/grid.yaml ")
	t.Setenv("DEV_SEED_PATH", " seed.yaml")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowOrigin)
	}
	if !cfg.MigrateOnStart {
		t.Fatalf("expected MigrateOnStart")
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Fatalf("expected fallback to 60, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.GridConfigPath != "/etc/grid.yaml" {
		t.Fatalf("unexpected grid path %q", cfg.GridConfigPath)
	}
	if cfg.SeedPath != "seed.yaml" {
		t.Fatalf("unexpected seed path %q", cfg.SeedPath)
	}
}
