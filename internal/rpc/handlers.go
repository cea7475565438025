package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
)

type makeMoveParams struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

type tauntPlayerParams struct {
	Message *string `json:"message"`
}

func (that *Server) handleViewGameState(ctx context.Context, _ json.RawMessage) (any, *entity.Game, *Error) {
	game, err := that.game.GetGame(ctx)
	if err != nil {
		return nil, nil, that.errorFrom(err)
	}

	return game, nil, nil
}

func (that *Server) handleGetTurn(ctx context.Context, _ json.RawMessage) (any, *entity.Game, *Error) {
	game, err := that.game.GetGame(ctx)
	if err != nil {
		return nil, nil, that.errorFrom(err)
	}

	result := map[string]any{
		"current_turn":  game.Turn,
		"is_human_turn": game.IsHumanTurn(),
		"is_agent_turn": game.IsAgentTurn(),
	}

	return result, nil, nil
}

func (that *Server) handleMakeMove(ctx context.Context, params json.RawMessage) (any, *entity.Game, *Error) {
	var args makeMoveParams
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, nil, rpcErr
	}

	if args.Row == nil {
		return nil, nil, NewError(CodeInvalidParams, "missing 'row' parameter")
	}

	if args.Col == nil {
		return nil, nil, NewError(CodeInvalidParams, "missing 'col' parameter")
	}

	game, err := that.game.MakeMove(ctx, *args.Row, *args.Col, entity.OriginAgent)
	if err != nil {
		return nil, nil, that.errorFrom(err)
	}

	result := map[string]any{
		"success":    true,
		"game_state": game,
		"message":    "move made successfully",
	}

	return result, game, nil
}

func (that *Server) handleTauntPlayer(ctx context.Context, params json.RawMessage) (any, *entity.Game, *Error) {
	var args tauntPlayerParams
	if rpcErr := decodeParams(params, &args); rpcErr != nil {
		return nil, nil, rpcErr
	}

	if args.Message == nil {
		return nil, nil, NewError(CodeInvalidParams, "missing 'message' parameter")
	}

	game, err := that.game.AddTaunt(ctx, *args.Message, entity.OriginAgent)
	if err != nil {
		return nil, nil, that.errorFrom(err)
	}

	result := map[string]any{
		"success": true,
		"message": "taunt sent successfully",
	}

	return result, game, nil
}

func (that *Server) handleRestartGame(ctx context.Context, _ json.RawMessage) (any, *entity.Game, *Error) {
	game, err := that.game.RestartGame(ctx)
	if err != nil {
		return nil, nil, that.errorFrom(err)
	}

	result := map[string]any{
		"success":    true,
		"game_state": game,
		"message":    "game restarted",
	}

	return result, game, nil
}

func (that *Server) handleGetGameHistory(ctx context.Context, _ json.RawMessage) (any, *entity.Game, *Error) {
	game, err := that.game.GetGame(ctx)
	if err != nil {
		return nil, nil, that.errorFrom(err)
	}

	result := map[string]any{
		"moves": game.Moves,
	}

	return result, nil, nil
}

// decodeParams - strict decode into the per-method params struct. Unknown or
// mistyped fields are rejected here, before the coordinator is touched.
func decodeParams(params json.RawMessage, target any) *Error {
	if len(params) == 0 || bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
		params = json.RawMessage("{}")
	}

	decoder := json.NewDecoder(bytes.NewReader(params))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return NewError(CodeInvalidParams, "invalid params: "+err.Error())
	}

	return nil
}

// errorFrom - maps coordinator errors into the JSON-RPC vocabulary. Validation
// failures keep their specific message; everything else is opaque to the
// caller and logged with its cause.
func (that *Server) errorFrom(err error) *Error {
	switch {
	case errors.Is(err, apperror.ErrOutOfBounds),
		errors.Is(err, apperror.ErrCellOccupied),
		errors.Is(err, apperror.ErrGameOver),
		errors.Is(err, apperror.ErrEmptyTaunt):
		return NewError(CodeInvalidParams, err.Error())
	case errors.Is(err, apperror.ErrConflict):
		return NewError(CodeInternalError, fmt.Sprintf("%v, try again", err))
	default:
		that.logger.Error("internal error", "error", err)
		return NewError(CodeInternalError, "internal error")
	}
}
