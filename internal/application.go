package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-duel/internal/broadcast"
	"github.com/rocketscienceinc/tictactoe-duel/internal/config"
	"github.com/rocketscienceinc/tictactoe-duel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-duel/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-duel/internal/rpc"
	"github.com/rocketscienceinc/tictactoe-duel/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-duel/transport/rest"
)

// RunApp - runs the HTTP-facing process. The agent process (cmd/agent-server)
// shares nothing with it but the SQLite database file.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

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
	broadcaster := broadcast.New()
	rpcServer := rpc.New(logger, gameManager, broadcaster.Publish)
	handlers := rest.NewHandlers(logger, gameManager, broadcaster, rpcServer)

	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, logger, conf.HTTPPort, handlers); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
