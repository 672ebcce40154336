package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"placement-backend/internal/bootstrap"
	"placement-backend/internal/reminders"
	"placement-backend/internal/shared/config"
	"placement-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, db.DefaultWorkerOptions())
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	c, err := newScheduler(ctx, cfg.ReminderCron, app.RemindersService)
	if err != nil {
		log.Fatalf("%v", err)
	}
	c.Start()
	log.Printf("worker started reminder_cron=%q zone=%s", cfg.ReminderCron, app.Grid.Location)

	<-ctx.Done()
	log.Printf("shutdown requested, waiting for running jobs")
	<-c.Stop().Done()
}

// newScheduler builds a cron scheduler in the grid's zone so the reminder
// spec reads in campus local time.
func newScheduler(ctx context.Context, spec string, svc *reminders.Service) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(svc.Location))
	if _, err := reminders.Register(ctx, c, spec, svc); err != nil {
		return nil, err
	}
	return c, nil
}
