package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/treemap/internal/application"
	"github.com/eugenenazirov/treemap/internal/config"
	"github.com/eugenenazirov/treemap/internal/logging"
)

var signalNotify = signal.Notify

type options struct {
	overrides config.CLIOverrides
	logLevel  string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	kingpin.FatalIfError(err, "parse flags")

	cfg, err := config.Load(&opts.overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(logging.WithLevel(opts.logLevel))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

// parseFlags maps command line flags onto configuration overrides. Flags left
// at their sentinel defaults do not override lower precedence sources.
func parseFlags(args []string) (*options, error) {
	kingpinApp := kingpin.New("treemap-server", "Treemap layout service - computes squarified treemap rectangles over HTTP")
	configFile := kingpinApp.Flag("config", "Path to YAML or TOML configuration file").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	bounds := kingpinApp.Flag("bounds", "Default target rectangle as x,y,width,height or width,height").String()
	maxWeights := kingpinApp.Flag("max-weights", "Maximum number of weights per layout (0 keeps the configured value)").Default("0").Int()
	rateLimitRPS := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed per client (set 0 to disable)").Default("-1").Float64()
	rateLimitBurst := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	logLevel := kingpinApp.Flag("log-level", "Minimum log level").Default("info").Enum("debug", "info", "warn", "error")

	if _, err := kingpinApp.Parse(args); err != nil {
		return nil, err
	}

	opts := &options{
		overrides: config.CLIOverrides{ConfigFile: *configFile},
		logLevel:  *logLevel,
	}

	if *port != "" {
		opts.overrides.Port = port
	}
	if *bounds != "" {
		opts.overrides.BoundsStr = bounds
	}
	if *maxWeights > 0 {
		opts.overrides.MaxWeights = maxWeights
	}
	if *rateLimitRPS >= 0 {
		opts.overrides.RateLimitRPS = rateLimitRPS
	}
	if *rateLimitBurst >= 0 {
		opts.overrides.RateLimitBurst = rateLimitBurst
	}

	return opts, nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("shutting down server", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
