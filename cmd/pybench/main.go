package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"

	"pybench/internal/config"
	"pybench/internal/registry"
	"pybench/internal/runtime"
	"pybench/internal/session"
)

var (
	debugMode = flag.Bool("d", false, "Enable debug mode")
	logFile   = flag.String("log-file", "", "Log file path (logs disabled by default)")
	noRuntime = flag.Bool("no-runtime", false, "Run without the Python runtime (workspace tools only)")
)

func main() {
	flag.Parse()

	logger := initLogger(*debugMode, *logFile)
	logger.Info().Msg("Pybench starting")

	cfg, err := config.NewLoader().Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	s, cleanup := bootSession(cfg, logger)
	defer cleanup()

	// Batch mode reads tool calls from stdin (with "-" argument).
	args := flag.Args()
	if len(args) > 0 && args[0] == "-" {
		runBatchMode(s, logger)
		return
	}

	runREPL(s, logger)
}

// bootSession spawns the Python worker, initialises the channel and
// wires the session. With -no-runtime (or a failed spawn) the session
// still serves workspace tools; execution tools report the missing
// runtime per call.
func bootSession(cfg *config.Config, logger zerolog.Logger) (*session.Session, func()) {
	limits := session.WithLimits(registry.Limits{
		MaxFileSize:       cfg.Workspace.MaxFileSize,
		MaxSeedFiles:      cfg.Workspace.MaxSeedFiles,
		MaxOutputBytes:    cfg.Runtime.MaxOutputBytes,
		ExecTimeout:       time.Duration(cfg.Runtime.ExecTimeoutSeconds) * time.Second,
		ValidationTimeout: time.Duration(cfg.Runtime.ValidationTimeoutSeconds) * time.Second,
	})

	if *noRuntime {
		return session.New(logger, limits), func() {}
	}

	transport, err := runtime.NewPyTransport(context.Background(), cfg.Runtime.PythonBin, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to start Python runtime, continuing without it")
		return session.New(logger, limits), func() {}
	}

	packages := runtime.NewPackageSet()
	ch := runtime.NewChannel(transport, packages, logger)

	initTimeout := time.Duration(cfg.Runtime.InitTimeoutSeconds) * time.Second
	if err := ch.Init(context.Background(), initTimeout); err != nil {
		logger.Fatal().Err(err).Msg("Python runtime failed to initialise")
	}

	cleanup := func() {
		if err := ch.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing runtime channel")
		}
	}
	return session.New(logger, limits, session.WithChannel(ch, packages)), cleanup
}

func initLogger(debug bool, logFilePath string) zerolog.Logger {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var output io.Writer
	if logFilePath != "" {
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		output = file
	} else {
		// No logging to console by default - use io.Discard
		output = io.Discard
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
