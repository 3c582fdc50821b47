package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ironsheep/logistics-bot/internal/circuit"
	"github.com/ironsheep/logistics-bot/internal/config"
	"github.com/ironsheep/logistics-bot/internal/journal"
	"github.com/ironsheep/logistics-bot/internal/publish"
	"github.com/ironsheep/logistics-bot/internal/robot"
	"github.com/ironsheep/logistics-bot/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `logistics-bot - autonomous checkpoint logistics robot

Usage: logistics-bot [options] [command]

Commands:
  run            Drive one circuit, classifying at every building (default)
  bench          Serve the classifier tools over stdio (JSON-RPC / MCP)
  check-store    Connect to the remote store and seed missing values
  version        Print version information

Options:
  -config PATH   Configuration file (TOML)
  -env PATH      Environment file loaded before overrides (default .env)

Environment variables:
  LOGBOT_LOG_LEVEL=debug              Enable debug logging
  LOGBOT_MOTION_DRIVER=sim            Run without motors
  LOGBOT_CAMERA_DRIVER=replay         Read frames from LOGBOT_REPLAY_DIR
  LOGBOT_FIREBASE_CREDENTIALS=PATH    Service account key
  LOGBOT_REPUBLISH_INTERVAL=30s       Re-send the latest counts periodically
`

func main() {
	configFile := flag.String("config", "", "Path to configuration file (TOML)")
	envFile := flag.String("env", ".env", "Path to environment file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	command := "run"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	switch command {
	case "version", "--version", "-v":
		fmt.Printf("logistics-bot %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "help", "--help", "-h":
		fmt.Print(usage)
		return
	}

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout carries the bench protocol.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch command {
	case "run":
		runErr = runCircuit(ctx, cfg, logger)
	case "bench":
		runErr = runBench(ctx, cfg, logger)
	case "check-store":
		runErr = checkStore(ctx, cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", command, usage)
		os.Exit(2)
	}

	stop()
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		logger.Info("interrupted")
		os.Exit(130)
	default:
		os.Exit(1)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runCircuit(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("logistics bot starting",
		"version", Version,
		"motion", cfg.Motion.Driver,
		"camera", cfg.Camera.Driver,
		"store", cfg.Store.Enabled,
		"region", fmt.Sprintf("%+v", cfg.Vision.Region))

	driver, err := robot.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	return driver.Run(ctx)
}

func runBench(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pipe, err := robot.NewPipeline(cfg.Vision, "", logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		return err
	}

	var records server.RecordLister
	if cfg.Output.Journal != "" {
		j, err := journal.Open(cfg.Output.Journal)
		if err != nil {
			logger.Error("failed to open journal", "error", err)
			return err
		}
		defer j.Close()
		records = j
	}

	logger.Debug("bench server ready", "version", Version)
	if err := server.New(pipe, records, Version, logger).Run(ctx, os.Stdin, os.Stdout); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("bench server error", "error", err)
		}
		return err
	}
	return nil
}

func checkStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if _, err := os.Stat(cfg.Store.CredentialsPath); err != nil {
		logger.Error("service account key not found",
			"path", cfg.Store.CredentialsPath,
			"hint", "Firebase console > Project settings > Service accounts > Generate new private key")
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := publish.NewFirebaseStore(ctx, cfg.Store.CredentialsPath, cfg.Store.DatabaseURL)
	if err != nil {
		logger.Error("store connection failed", "error", err)
		return err
	}
	if err := store.EnsureDefaults(ctx, circuit.Start.String(), time.Now().UnixMilli()); err != nil {
		logger.Error("store check failed", "error", err)
		return err
	}
	logger.Info("store reachable, defaults in place")
	return nil
}
