package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
)

type gameManager interface {
	GetGame(ctx context.Context) (*entity.Game, error)
	MakeMove(ctx context.Context, row, col int, origin string) (*entity.Game, error)
	AddTaunt(ctx context.Context, message, origin string) (*entity.Game, error)
	RestartGame(ctx context.Context) (*entity.Game, error)
}

// handlerFunc resolves one method. A non-nil snapshot means the call mutated
// game state and observers should be notified.
type handlerFunc func(ctx context.Context, params json.RawMessage) (any, *entity.Game, *Error)

// Server dispatches JSON-RPC 2.0 requests to the game coordinator. The same
// dispatch serves the line-oriented stdio loop of the agent process and the
// /rpc endpoint of the HTTP process.
type Server struct {
	logger *slog.Logger
	game   gameManager
	notify func(*entity.Game)

	handlers map[string]handlerFunc
}

// New - builds a server. notify may be nil; when set it is called with the new
// snapshot after every successfully completed mutating method.
func New(logger *slog.Logger, game gameManager, notify func(*entity.Game)) *Server {
	server := &Server{
		logger: logger,
		game:   game,
		notify: notify,

		handlers: make(map[string]handlerFunc),
	}

	server.handlers["view_game_state"] = server.handleViewGameState
	server.handlers["get_turn"] = server.handleGetTurn
	server.handlers["make_move"] = server.handleMakeMove
	server.handlers["taunt_player"] = server.handleTauntPlayer
	server.handlers["restart_game"] = server.handleRestartGame
	server.handlers["get_game_history"] = server.handleGetGameHistory

	return server
}

// Run - serves newline-delimited JSON-RPC requests until the reader is
// exhausted or the context is canceled. One response line per request line.
func (that *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	log := that.logger.With("component", "rpc")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	writer := bufio.NewWriter(out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		response := that.Handle(ctx, line)

		if _, err := writer.Write(response); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("failed to flush response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	log.Info("input closed, rpc loop finished")

	return nil
}

// Handle - processes one raw JSON-RPC request and returns the marshaled
// response. The request id is echoed verbatim whenever it could be parsed.
func (that *Server) Handle(ctx context.Context, raw []byte) []byte {
	log := that.logger.With("method", "Handle")

	var request Request
	if err := json.Unmarshal(raw, &request); err != nil {
		return marshalResponse(log, errorResponse(nil, NewError(CodeParseError, "parse error: "+err.Error())))
	}

	if rpcErr := validateRequest(&request); rpcErr != nil {
		return marshalResponse(log, errorResponse(request.ID, rpcErr))
	}

	handler, ok := that.handlers[request.Method]
	if !ok {
		rpcErr := NewError(CodeMethodNotFound, fmt.Sprintf("method %q not found", request.Method))
		return marshalResponse(log, errorResponse(request.ID, rpcErr))
	}

	result, changed, rpcErr := handler(ctx, request.Params)
	if rpcErr != nil {
		return marshalResponse(log, errorResponse(request.ID, rpcErr))
	}

	if changed != nil && that.notify != nil {
		that.notify(changed)
	}

	return marshalResponse(log, successResponse(request.ID, result))
}

func validateRequest(request *Request) *Error {
	if request.JSONRPC != protocolVersion {
		return NewError(CodeInvalidRequest, "invalid jsonrpc version")
	}

	if request.Method == "" {
		return NewError(CodeInvalidRequest, "method cannot be empty")
	}

	return nil
}

func marshalResponse(log *slog.Logger, response *Response) []byte {
	data, err := json.Marshal(response)
	if err != nil {
		log.Error("failed to marshal response", "error", err)
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}

	return data
}
