package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cardengine/table-client/internal/client"
	"github.com/cardengine/table-client/internal/config"
	"github.com/cardengine/table-client/internal/input"
	"github.com/cardengine/table-client/internal/inspect"
	"github.com/cardengine/table-client/internal/replay"
	"github.com/cardengine/table-client/internal/transport"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	replayID   = flag.String("replay", "", "re-run a saved session journal instead of connecting")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *replayID != "" {
		os.Exit(runReplay(cfg, *replayID, logger))
	}

	sessionID := uuid.NewString()
	logger.Info("starting table client",
		zap.String("session_id", sessionID),
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.String("server_url", cfg.Server.URL),
		zap.String("player_name", cfg.Server.PlayerName),
	)

	opts, err := client.OptionsFromConfig(cfg, sessionID)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	conn, err := transport.Dial(ctx, transport.OptionsFromConfig(cfg.Server), logger.Named("transport"))
	if err != nil {
		logger.Fatal("failed to connect", zap.Error(err))
	}
	defer conn.Close()

	var store *replay.Store
	var recorder client.Recorder
	if cfg.Replay.Enabled {
		store = replay.NewStore(logger.Named("replay"), cfg.Replay.Directory)
		recorder = store.StartRecording(sessionID, opts)
	}

	c := client.New(opts, conn, recorder, logger)

	if cfg.Inspect.Enabled {
		lis, err := net.Listen("tcp", cfg.Inspect.Address)
		if err != nil {
			logger.Fatal("failed to listen", zap.Error(err))
		}
		srv := inspect.NewServer(c, logger.Named("inspect"))
		go func() {
			if serveErr := srv.Serve(lis); serveErr != nil {
				logger.Error("inspect server error", zap.Error(serveErr))
			}
		}()
		defer srv.Stop()
	}

	go readCommands(ctx, os.Stdin, c, logger)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, conn.Inbound()) }()

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		<-done
	case err := <-done:
		if connErr := conn.Err(); connErr != nil {
			logger.Error("connection lost", zap.Error(connErr))
		} else if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("session loop failed", zap.Error(err))
		}
	}

	if store != nil {
		if err := store.Save(sessionID); err != nil {
			logger.Error("failed to save session journal", zap.Error(err))
		}
	}

	sum, err := c.Snapshot().Checksum()
	if err != nil {
		logger.Warn("failed to checksum final state", zap.Error(err))
	}
	logger.Info("table client stopped", zap.String("checksum", sum))
}

// readCommands turns terminal lines into gestures until r is exhausted or ctx ends.
func readCommands(ctx context.Context, r io.Reader, c *client.Client, logger *zap.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		g, err := input.ParseCommand(line)
		if err != nil {
			logger.Warn("ignoring command", zap.Error(err))
			continue
		}
		if err := c.Submit(ctx, g); err != nil {
			return
		}
	}
}

func runReplay(cfg *config.Config, sessionID string, logger *zap.Logger) int {
	store := replay.NewStore(logger.Named("replay"), cfg.Replay.Directory)
	j, err := store.Load(sessionID)
	if err != nil {
		logger.Error("failed to load journal", zap.Error(err))
		return 1
	}
	res, err := replay.Run(j, logger)
	if err != nil {
		logger.Error("replay failed", zap.Error(err))
		return 1
	}
	fmt.Println(res.Checksum)
	return 0
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
