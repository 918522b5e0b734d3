package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/cohorthq/cohort/pkg/audit"
	"github.com/cohorthq/cohort/pkg/config"
	"github.com/cohorthq/cohort/pkg/orgs"
	"github.com/cohorthq/cohort/pkg/storage/postgres"
)

var runOnce = flag.Bool("run-once", false, "Run one cleanup pass and exit")

// The janitor owns the periodic maintenance nothing should do inline:
// sweeping expired unaccepted invitations out of pending listings and
// pruning audit rows past their retention window.
func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer db.Close()

	service := orgs.NewPostgresService(db, nil)
	auditor, err := audit.NewDBLogger(db)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize audit logger")
	}
	defer auditor.Close()

	sweep := func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		swept, err := service.CleanupExpiredInvitations(runCtx)
		if err != nil {
			log.WithError(err).Error("invitation cleanup failed")
		} else {
			log.WithField("swept", swept).Info("expired invitations swept")
		}

		pruned, err := auditor.Prune(runCtx, cfg.Audit.Retention)
		if err != nil {
			log.WithError(err).Error("audit prune failed")
		} else {
			log.WithField("pruned", pruned).Info("audit rows pruned")
		}
	}

	if *runOnce {
		sweep()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Audit.JanitorSchedule, sweep); err != nil {
		log.WithError(err).Fatalf("invalid janitor schedule %q", cfg.Audit.JanitorSchedule)
	}
	c.Start()
	log.WithField("schedule", cfg.Audit.JanitorSchedule).Info("janitor started")

	<-ctx.Done()
	log.Info("shutting down")

	stopCtx := c.Stop()
	<-stopCtx.Done()
	log.Info("janitor stopped")
}
