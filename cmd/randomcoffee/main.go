package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/skauge/randomcoffee/internal/api"
	"github.com/skauge/randomcoffee/internal/config"
	"github.com/skauge/randomcoffee/internal/runner"
	"github.com/skauge/randomcoffee/internal/slackapi"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Slack client
	client, err := slackapi.New(cfg.SlackToken, cfg.ChanNamesAreIDs)
	if err != nil {
		log.Fatalf("Failed to create slack client: %v", err)
	}

	run := runner.New(cfg, client, client)

	// One-shot mode: run a single round and exit.
	if cfg.RunSchedule == "" {
		if err := run.Run(context.Background()); err != nil {
			log.Fatalf("Pairing run failed: %v", err)
		}
		return
	}

	// Daemon mode: run on a cron schedule and serve the ops API.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RunSchedule, func() {
		if err := run.Run(context.Background()); err != nil {
			log.Printf("Scheduled run failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Invalid RUN_SCHEDULE %q: %v", cfg.RunSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Printf("Scheduled pairing runs: %s", cfg.RunSchedule)

	apiServer := api.New(cfg, run)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
}
