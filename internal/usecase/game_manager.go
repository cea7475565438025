package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/tictactoe"
)

type gameRepo interface {
	CreateGame(ctx context.Context, game *entity.Game) error
	ApplyMove(ctx context.Context, game *entity.Game, move *entity.Move) error
	AppendTaunt(ctx context.Context, gameID string, taunt *entity.Taunt) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	GetActiveGameID(ctx context.Context) (string, error)
	SetActiveGameID(ctx context.Context, gameID string) error
}

// GameManager is the only component allowed to decide whether a mutation is
// legal and to advance turn order. A single mutex guards the whole
// load-validate-mutate-persist sequence of every operation.
type GameManager struct {
	logger *slog.Logger

	mu   sync.Mutex
	repo gameRepo
}

func NewGameManager(logger *slog.Logger, repo gameRepo) *GameManager {
	return &GameManager{
		logger: logger,
		repo:   repo,
	}
}

// GetGame - returns the current game, creating one when the shared pointer is
// unset or names a game the store no longer has.
func (that *GameManager) GetGame(ctx context.Context) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.getOrCreateGame(ctx)
}

// MakeMove - places the current-turn player's mark at (row, col) and persists
// the move. A store-level version conflict means another process won the same
// window; the operation is retried once against the fresh state so the caller
// gets a real validation answer instead of a raw conflict.
func (that *GameManager) MakeMove(ctx context.Context, row, col int, origin string) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.getOrCreateGame(ctx)
	if err != nil {
		return nil, err
	}

	updatedGame, err := that.applyMove(ctx, game, row, col, origin)
	if errors.Is(err, apperror.ErrConflict) {
		that.logger.Warn("move hit a version conflict, retrying", "game_id", game.ID)

		game, err = that.getOrCreateGame(ctx)
		if err != nil {
			return nil, err
		}

		updatedGame, err = that.applyMove(ctx, game, row, col, origin)
	}

	if err != nil {
		return nil, err
	}

	return updatedGame, nil
}

// RestartGame - abandons the active pointer and starts a fresh game. Prior
// games keep their full history in the store.
func (that *GameManager) RestartGame(ctx context.Context) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.createGame(ctx)
}

// AddTaunt - appends a taunt to the current game. Taunts are accepted
// regardless of game status.
func (that *GameManager) AddTaunt(ctx context.Context, message, origin string) (*entity.Game, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperror.ErrEmptyTaunt
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.getOrCreateGame(ctx)
	if err != nil {
		return nil, err
	}

	taunt := entity.Taunt{
		Message:   message,
		Timestamp: time.Now().Unix(),
		Origin:    origin,
	}

	if err = that.repo.AppendTaunt(ctx, game.ID, &taunt); err != nil {
		return nil, fmt.Errorf("failed to append taunt: %w", err)
	}

	game.Taunts = append(game.Taunts, taunt)

	return game, nil
}

func (that *GameManager) getOrCreateGame(ctx context.Context) (*entity.Game, error) {
	gameID, err := that.repo.GetActiveGameID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active game id: %w", err)
	}

	if gameID != "" {
		existingGame, err := that.repo.GetByID(ctx, gameID)
		if err == nil {
			return existingGame, nil
		}

		if !errors.Is(err, apperror.ErrGameNotFound) {
			return nil, fmt.Errorf("failed to get game by id: %w", err)
		}

		that.logger.Warn("active game pointer is dangling, creating a new game", "game_id", gameID)
	}

	return that.createGame(ctx)
}

func (that *GameManager) createGame(ctx context.Context) (*entity.Game, error) {
	humanMark, agentMark := entity.RandomMarks()

	firstTurn := humanMark
	if rand.Intn(2) == 0 { //nolint: gosec // it's ok
		firstTurn = agentMark
	}

	now := time.Now().Unix()
	newGame := &entity.Game{
		ID:          uuid.NewString(),
		HumanPlayer: humanMark,
		AgentPlayer: agentMark,
		Turn:        firstTurn,
		Status:      entity.StatusInProgress,
		Moves:       []entity.Move{},
		Taunts:      []entity.Taunt{},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := that.repo.CreateGame(ctx, newGame); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	if err := that.repo.SetActiveGameID(ctx, newGame.ID); err != nil {
		return nil, fmt.Errorf("failed to set active game id: %w", err)
	}

	that.logger.Info("created new game",
		"game_id", newGame.ID,
		"human_player", newGame.HumanPlayer,
		"first_turn", newGame.Turn,
	)

	return newGame, nil
}

func (that *GameManager) applyMove(ctx context.Context, game *entity.Game, row, col int, origin string) (*entity.Game, error) {
	if !game.IsInProgress() {
		return nil, fmt.Errorf("%w: status is %s", apperror.ErrGameOver, game.Status)
	}

	if !game.Board.InBounds(row, col) {
		return nil, fmt.Errorf("%w: (%d, %d), rows and columns must be within 0-2", apperror.ErrOutOfBounds, row, col)
	}

	if !game.Board.IsEmptyAt(row, col) {
		return nil, fmt.Errorf("%w: cell (%d, %d)", apperror.ErrCellOccupied, row, col)
	}

	player := game.Turn
	game.Board[row][col] = player

	move := entity.Move{
		Player:    player,
		Row:       row,
		Col:       col,
		Timestamp: time.Now().Unix(),
		Origin:    origin,
	}
	game.Moves = append(game.Moves, move)
	game.UpdatedAt = move.Timestamp

	// status is always recomputed over the full board, never incrementally
	status, winner, winningLine := tictactoe.Evaluate(game.Board)
	game.Status = status
	game.Winner = winner
	game.WinningLine = winningLine

	if game.IsInProgress() {
		game.Turn = entity.OpponentOf(player)
	}

	if err := that.repo.ApplyMove(ctx, game, &move); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to apply move: %w", err)
	}

	game.Version++

	return game, nil
}
