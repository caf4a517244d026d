// Command atelierd is the atelier server daemon. It assembles the team from
// the YAML config, exposes the HTTP API, and drives the routing loop whenever
// messages arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/atelier-ai/atelier/agent"
	"github.com/atelier-ai/atelier/comms"
	"github.com/atelier-ai/atelier/config"
	"github.com/atelier-ai/atelier/env"
	"github.com/atelier-ai/atelier/internal/version"
	"github.com/atelier-ai/atelier/plan"
	"github.com/atelier-ai/atelier/provider/scripted"
	"github.com/atelier-ai/atelier/server"
)

var configPath = flag.String("config", "atelier.yaml", "path to config file")

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	logger.Info("starting atelierd",
		"version", version.Version,
		"commit", version.Commit,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", *configPath, err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}

	transcript, err := comms.NewTranscriptStore(filepath.Join(cfg.DataDir, "transcript.db"))
	if err != nil {
		log.Fatalf("Failed to open transcript store: %v", err)
	}
	defer transcript.Close()

	planStore, err := plan.NewSQLiteStore(filepath.Join(cfg.DataDir, "plan.db"))
	if err != nil {
		log.Fatalf("Failed to open plan store: %v", err)
	}
	defer planStore.Close()
	teamPlan := plan.New(planStore)

	e, err := buildEnvironment(cfg, teamPlan, transcript, logger)
	if err != nil {
		log.Fatalf("Failed to build environment: %v", err)
	}

	srv := server.New(*cfg, version.Version, logger)
	srv.SetEnvironment(e)
	srv.SetPlan(teamPlan)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go driveLoop(ctx, e, cfg, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server stopped", "error", err)
		}
	}()

	fmt.Printf("atelier server running on http://localhost%s\n", cfg.Server.Addr)
	fmt.Printf("Version: %s (%s)\n", version.Version, version.Commit)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	cancel()
	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("server stop error", "error", err)
	}
	fmt.Println("Shutdown complete")
}

// buildEnvironment wires the roster from config into a fresh environment.
func buildEnvironment(cfg *config.Config, teamPlan *plan.Plan, transcript *comms.TranscriptStore, logger *slog.Logger) (*env.Environment, error) {
	e := env.New(logger)
	e.SetAllowBypassTeamLeader(cfg.Team.AllowBypassTeamLeader)
	e.SetPlan(teamPlan)
	e.SetTranscript(transcript)

	for _, ac := range cfg.Agents {
		id, err := agent.NewIdentity(ac.Name, ac.Profile)
		if err != nil {
			return nil, err
		}
		backend := scripted.New()
		for _, line := range ac.Script {
			backend.Say(line, comms.TagChat)
		}
		if err := e.AddAgent(agent.NewRuntime(id, backend)); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// driveLoop runs the environment whenever the roster has pending work.
func driveLoop(ctx context.Context, e *env.Environment, cfg *config.Config, logger *slog.Logger) {
	budget := env.Budget{
		MaxRounds:   cfg.Team.MaxRounds,
		MaxMessages: cfg.Team.MaxMessages,
	}
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.IsIdle() {
				continue
			}
			rounds, err := e.Run(ctx, budget)
			if err != nil && ctx.Err() == nil {
				logger.Error("run loop", "error", err)
				continue
			}
			logger.Debug("run complete", "rounds", rounds, "messages", e.Published())
		}
	}
}
