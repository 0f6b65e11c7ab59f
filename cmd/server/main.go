package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awnumar/memguard"

	"github.com/GriffinCanCode/keyx/internal/infrastructure/config"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/server"
)

func main() {
	// Purge every enclave on the way out
	defer memguard.Purge()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override env
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Listen address")
	flag.StringVar(&cfg.Render.Gate, "gate", cfg.Render.Gate, "Visibility gate: public-only or always")
	flag.StringVar(&cfg.Sanitizer.Policy, "policy", cfg.Sanitizer.Policy, "Sanitizer policy: ugc, strict or allowlist")
	flag.StringVar(&cfg.Sanitizer.AllowListFile, "allowlist", cfg.Sanitizer.AllowListFile, "Allow-list file for the allowlist policy")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer srv.Close()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		if err != nil {
			log.Printf("Server error: %v", err)
			memguard.SafeExit(1)
		}
	}
}
