package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-duel/internal/config"
	"github.com/rocketscienceinc/tictactoe-duel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-duel/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-duel/internal/rpc"
	"github.com/rocketscienceinc/tictactoe-duel/internal/usecase"
)

// main - runs the agent-facing JSON-RPC server over stdin/stdout. Logs go to
// stderr because stdout carries the protocol.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	conf := initConfig()
	logger := initLogger(conf)

	if err := run(logger, conf); err != nil {
		logger.Error("agent server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "agent-server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	sqliteStorage, err := storage.New(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	gameRepo := repository.NewGameRepository(sqliteStorage)
	gameManager := usecase.NewGameManager(logger, gameRepo)

	// no notifier here: snapshot streaming belongs to the HTTP process
	rpcServer := rpc.New(logger, gameManager, nil)

	log.Info("Listening for JSON-RPC requests on stdin", "storage", conf.SQLiteStoragePath)

	if err = rpcServer.Run(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("rpc loop failed: %w", err)
	}

	return nil
}

func initConfig() *config.Config {
	baseDir, err := os.Getwd()
	if err != nil {
		panic(fmt.Errorf("failed to get current directory: %w", err))
	}

	return config.MustLoad(filepath.Join(baseDir, "./config.yml"))
}

func initLogger(conf *config.Config) *slog.Logger {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
