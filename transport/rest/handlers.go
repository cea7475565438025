package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-duel/internal/broadcast"
	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/rpc"
)

type gameManager interface {
	GetGame(ctx context.Context) (*entity.Game, error)
	MakeMove(ctx context.Context, row, col int, origin string) (*entity.Game, error)
	AddTaunt(ctx context.Context, message, origin string) (*entity.Game, error)
	RestartGame(ctx context.Context) (*entity.Game, error)
}

type Handlers struct {
	logger      *slog.Logger
	game        gameManager
	broadcaster *broadcast.Broadcaster
	rpcServer   *rpc.Server
}

func NewHandlers(logger *slog.Logger, game gameManager, broadcaster *broadcast.Broadcaster, rpcServer *rpc.Server) *Handlers {
	return &Handlers{
		logger:      logger,
		game:        game,
		broadcaster: broadcaster,
		rpcServer:   rpcServer,
	}
}

func (that *Handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// GetGame - GET /api/game, the full current snapshot.
func (that *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.game.GetGame(r.Context())
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

// GetTurn - GET /api/game/turn, whose turn it is.
func (that *Handlers) GetTurn(w http.ResponseWriter, r *http.Request) {
	game, err := that.game.GetGame(r.Context())
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, map[string]any{
		"current_turn":  game.Turn,
		"is_human_turn": game.IsHumanTurn(),
		"is_agent_turn": game.IsAgentTurn(),
	})
}

// GetHistory - GET /api/game/history, the move log of the current game.
func (that *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	game, err := that.game.GetGame(r.Context())
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, map[string]any{"moves": game.Moves})
}

// MakeMove - POST /api/game/move with {"row": n, "col": n}.
func (that *Handlers) MakeMove(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Row *int `json:"row"`
		Col *int `json:"col"`
	}

	if !that.decodeBody(w, r, &request) {
		return
	}

	if request.Row == nil || request.Col == nil {
		that.writeBadRequest(w, "both 'row' and 'col' are required")
		return
	}

	game, err := that.game.MakeMove(r.Context(), *request.Row, *request.Col, entity.OriginUI)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.broadcaster.Publish(game)
	that.writeJSON(w, http.StatusOK, game)
}

// AddTaunt - POST /api/game/taunt with {"message": "..."}.
func (that *Handlers) AddTaunt(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Message *string `json:"message"`
	}

	if !that.decodeBody(w, r, &request) {
		return
	}

	if request.Message == nil {
		that.writeBadRequest(w, "'message' is required")
		return
	}

	game, err := that.game.AddTaunt(r.Context(), *request.Message, entity.OriginUI)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.broadcaster.Publish(game)
	that.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// NewGame - POST /api/game/new, abandons the current game and starts fresh.
func (that *Handlers) NewGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.game.RestartGame(r.Context())
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.broadcaster.Publish(game)
	that.writeJSON(w, http.StatusOK, game)
}

// RPC - POST /rpc, the JSON-RPC dispatch mounted over HTTP so an agent can
// play without the stdio process. The rpc server publishes snapshots itself.
func (that *Handlers) RPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	response := that.rpcServer.Handle(r.Context(), bytes.TrimSpace(body))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(response); err != nil {
		that.logger.Error("failed to write rpc response", "error", err)
	}
}

func (that *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		that.writeBadRequest(w, "invalid request body: "+err.Error())
		return false
	}

	return true
}

func (that *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

func (that *Handlers) writeBadRequest(w http.ResponseWriter, message string) {
	that.writeJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}

// writeError - validation failures surface their specific message; store and
// other internal failures stay opaque while the cause goes to the log.
func (that *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperror.ErrOutOfBounds),
		errors.Is(err, apperror.ErrCellOccupied),
		errors.Is(err, apperror.ErrGameOver),
		errors.Is(err, apperror.ErrEmptyTaunt):
		that.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, apperror.ErrConflict):
		that.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		that.logger.Error("internal error", "error", err)
		that.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
