package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"matchbot/internal/app"
	"matchbot/internal/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load or create configuration
	cfg, err := config.Load()
	if err != nil {
		if os.IsNotExist(err) {
			// First run - create default config
			cfg = config.Default()
			if err := cfg.Save(); err != nil {
				log.Printf("Warning: could not save default config: %v", err)
			} else {
				path, _ := config.ConfigPath()
				log.Printf("Created default config at: %s", path)
			}
		} else {
			log.Printf("Warning: could not load config: %v (using defaults)", err)
			cfg = config.Default()
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	log.Println("matchbot starting...")

	if cfg.Session.Schedule == "" {
		if err := a.RunSession(ctx); err != nil {
			log.Fatalf("Session failed: %v", err)
		}
		return
	}

	log.Printf("Running on schedule %q, press Ctrl-C to stop", cfg.Session.Schedule)
	if err := a.RunScheduled(ctx); err != nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}
