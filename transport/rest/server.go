package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Start - runs the HTTP server until ctx is canceled. There is deliberately no
// write timeout: /api/events holds its response open indefinitely.
func Start(ctx context.Context, logger *slog.Logger, port string, handlers *Handlers) error {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/ping", handlers.Ping)

	router.Route("/api", func(r chi.Router) {
		r.Get("/game", handlers.GetGame)
		r.Get("/game/turn", handlers.GetTurn)
		r.Get("/game/history", handlers.GetHistory)
		r.Post("/game/move", handlers.MakeMove)
		r.Post("/game/taunt", handlers.AddTaunt)
		r.Post("/game/new", handlers.NewGame)
		r.Get("/events", handlers.Events)
	})

	router.Post("/rpc", handlers.RPC)

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
