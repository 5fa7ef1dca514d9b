// Package main is the entry point for the MonitorMQTT listener.
// It either performs a one-shot task (un)registration, or runs the listener:
// load configuration, restore the last level, connect to the broker, and
// apply brightness/contrast updates until stopped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/monitormqtt/agent/internal/autostart"
	"github.com/monitormqtt/agent/internal/config"
	"github.com/monitormqtt/agent/internal/hostinfo"
	"github.com/monitormqtt/agent/internal/listener"
	"github.com/monitormqtt/agent/internal/monitor"
	"github.com/monitormqtt/agent/internal/pidlock"
	"github.com/monitormqtt/agent/internal/setup"
	"github.com/monitormqtt/agent/internal/state"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath   = flag.String("config", "", "Path to configuration file (default: auto-discover)")
	showVersion  = flag.Bool("version", false, "Show version and exit")
	installFlag  = flag.Bool("install", false, "Install the listener and register the logon task")
	uninstall    = flag.Bool("uninstall", false, "Remove the logon task registration")
	statusFlag   = flag.Bool("status", false, "Report whether the logon task is registered")
	modeFlag     = flag.String("mode", "", "Install mode: \"system\" or \"user\"")
	brokerFlag   = flag.String("broker", "", "MQTT broker URL (overrides config)")
	usernameFlag = flag.String("username", "", "MQTT username (overrides config)")
	passwordFlag = flag.String("password", "", "MQTT password (overrides config)")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("monitor-listener %s\n", version)
		os.Exit(0)
	}

	switch {
	case *installFlag:
		err := setup.Run(version, setup.Options{
			Mode:     *modeFlag,
			Broker:   *brokerFlag,
			Username: *usernameFlag,
			Password: *passwordFlag,
		})
		exitOnTaskError(err)
		return

	case *uninstall:
		exitOnTaskError(setup.Uninstall(*modeFlag))
		return

	case *statusFlag:
		installed, err := autostart.New().IsInstalled()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to query task: %v\n", err)
			os.Exit(1)
		}
		if installed {
			fmt.Printf("%s is registered\n", autostart.TaskName)
		} else {
			fmt.Printf("%s is not registered\n", autostart.TaskName)
		}
		return
	}

	// Load configuration
	cli := config.CLIOverrides{
		Broker:   *brokerFlag,
		Username: *usernameFlag,
		Password: *passwordFlag,
	}
	var (
		cfg        *config.Config
		err        error
		loadedPath string
	)
	if *configPath != "" {
		loadedPath = *configPath
		cfg, err = config.LoadLayered(cli, embeddedConfig, loadedPath)
	} else {
		loadedPath = config.Locate()
		cfg, err = config.LoadLayered(cli, embeddedConfig)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting MonitorMQTT listener",
		zap.String("version", version),
		zap.String("broker", cfg.Broker.URL))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Single-instance guard; the Task Scheduler's restart supervision can
	// briefly overlap a dying process with its replacement.
	lockPath := filepath.Join(filepath.Dir(cfg.State.Path), "monitor-listener.pid")
	release, err := pidlock.Acquire(lockPath)
	if err != nil {
		if errors.Is(err, pidlock.ErrAlreadyRunning) {
			logger.Info("Another instance is running, exiting", zap.Error(err))
			return
		}
		logger.Fatal("Failed to acquire instance lock", zap.Error(err))
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host := hostinfo.Collect(ctx)
	logger.Info("Host",
		zap.String("os", host.OS),
		zap.String("platform", host.Platform),
		zap.String("version", host.Version),
		zap.Duration("uptime", host.Uptime))

	// Wire the listener
	store, err := state.New(cfg.State.Path, logger)
	if err != nil {
		logger.Fatal("Failed to initialize state store", zap.Error(err))
	}
	ctrl := monitor.NewController(logger)
	lst := listener.New(cfg, logger, ctrl, store)

	// Reload value ranges and intervals when the config file changes.
	if loadedPath != "" {
		watcher := config.NewWatcher(loadedPath, logger, lst.UpdateConfig)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Warn("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	// Handle OS signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	if err := lst.Start(ctx); err != nil {
		logger.Fatal("Listener failed", zap.Error(err))
	}
	logger.Info("Listener stopped")
}

// exitOnTaskError reports a task (un)registration failure and exits non-zero.
// The error class is spelled out so the operator knows whether to elevate,
// fix the descriptor, or look at the OS scheduler.
func exitOnTaskError(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, autostart.ErrPermission):
		fmt.Fprintf(os.Stderr, "Permission denied: %v\n", err)
	case errors.Is(err, autostart.ErrInvalidArgument):
		fmt.Fprintf(os.Stderr, "Invalid task parameters: %v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

// initLogger creates a zap logger based on the configuration.
// Console output is human-readable; the optional log file gets structured
// JSON and rotates at the configured size.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		}
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(rotated),
			level,
		)
		cores = append(cores, fileCore)
	}

	return zap.New(zapcore.NewTee(cores...))
}
