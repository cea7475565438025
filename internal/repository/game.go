package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-duel/internal/tictactoe"
)

type GameRepository interface {
	CreateGame(ctx context.Context, game *entity.Game) error
	ApplyMove(ctx context.Context, game *entity.Game, move *entity.Move) error
	AppendTaunt(ctx context.Context, gameID string, taunt *entity.Taunt) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	GetActiveGameID(ctx context.Context) (string, error)
	SetActiveGameID(ctx context.Context, gameID string) error
}

type dbGame struct {
	storage *storage.Storage
}

func NewGameRepository(storage *storage.Storage) GameRepository {
	return &dbGame{
		storage: storage,
	}
}

func (that *dbGame) CreateGame(ctx context.Context, game *entity.Game) error {
	query := `INSERT INTO games (id, human_player, agent_player, current_turn, status, winner, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := that.storage.Connection.ExecContext(ctx, query,
		game.ID, game.HumanPlayer, game.AgentPlayer, game.Turn, game.Status, game.Winner,
		game.Version, game.CreatedAt, game.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	return nil
}

// ApplyMove - persists one accepted move and the updated header as a single
// transaction. The header update is a compare-and-swap on the game version, so
// a concurrent writer in another process loses with ErrConflict instead of
// silently clobbering the move log.
func (that *dbGame) ApplyMove(ctx context.Context, game *entity.Game, move *entity.Move) error {
	tx, err := that.storage.Connection.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint: errcheck // rollback after commit is a no-op

	result, err := tx.ExecContext(ctx,
		`UPDATE games SET current_turn = ?, status = ?, winner = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`,
		game.Turn, game.Status, game.Winner, game.UpdatedAt, game.ID, game.Version)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}

	if affected == 0 {
		return apperror.ErrConflict
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO moves (game_id, player, row, col, timestamp, origin) VALUES (?, ?, ?, ?, ?, ?)`,
		game.ID, move.Player, move.Row, move.Col, move.Timestamp, move.Origin)
	if err != nil {
		return fmt.Errorf("failed to save move: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit move: %w", err)
	}

	return nil
}

func (that *dbGame) AppendTaunt(ctx context.Context, gameID string, taunt *entity.Taunt) error {
	query := `INSERT INTO taunts (game_id, message, timestamp, origin) VALUES (?, ?, ?, ?)`

	_, err := that.storage.Connection.ExecContext(ctx, query,
		gameID, taunt.Message, taunt.Timestamp, taunt.Origin)
	if err != nil {
		return fmt.Errorf("failed to save taunt: %w", err)
	}

	return nil
}

// GetByID - reconstructs a game by loading its header, replaying the move log
// onto an empty board and attaching the taunt log. All three reads run inside
// one transaction, so a writer committing in another process cannot leave the
// header and the logs from different moments. The status and winning line are
// re-evaluated from the replayed board, so the snapshot can never drift from
// the append-only log.
func (that *dbGame) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	tx, err := that.storage.Connection.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback() //nolint: errcheck // read-only, rollback just ends the snapshot

	query := `SELECT id, human_player, agent_player, current_turn, status, winner, version, created_at, updated_at
		FROM games WHERE id = ?`

	existingGame := &entity.Game{}
	err = tx.QueryRowContext(ctx, query, id).Scan(
		&existingGame.ID, &existingGame.HumanPlayer, &existingGame.AgentPlayer, &existingGame.Turn,
		&existingGame.Status, &existingGame.Winner, &existingGame.Version,
		&existingGame.CreatedAt, &existingGame.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	moves, err := that.loadMoves(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	taunts, err := that.loadTaunts(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	existingGame.Moves = moves
	existingGame.Taunts = taunts

	board, err := replayMoves(moves)
	if err != nil {
		return nil, err
	}
	existingGame.Board = board

	status, winner, winningLine := tictactoe.Evaluate(board)
	existingGame.Status = status
	existingGame.Winner = winner
	existingGame.WinningLine = winningLine

	return existingGame, nil
}

func (that *dbGame) GetActiveGameID(ctx context.Context) (string, error) {
	var gameID string

	err := that.storage.Connection.
		QueryRowContext(ctx, `SELECT game_id FROM active_game WHERE id = 1`).
		Scan(&gameID)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to get active game id: %w", err)
	}

	return gameID, nil
}

func (that *dbGame) SetActiveGameID(ctx context.Context, gameID string) error {
	query := `INSERT INTO active_game (id, game_id) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET game_id = excluded.game_id`

	if _, err := that.storage.Connection.ExecContext(ctx, query, gameID); err != nil {
		return fmt.Errorf("failed to set active game id: %w", err)
	}

	return nil
}

// loadMoves - returns moves in arrival order. Ordering is by rowid, not
// timestamp, so two moves within the same second keep their order.
func (that *dbGame) loadMoves(ctx context.Context, tx *sql.Tx, gameID string) ([]entity.Move, error) {
	query := `SELECT player, row, col, timestamp, origin FROM moves WHERE game_id = ? ORDER BY id ASC`

	rows, err := tx.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load moves: %w", err)
	}
	defer rows.Close()

	moves := []entity.Move{}
	for rows.Next() {
		var move entity.Move
		if err = rows.Scan(&move.Player, &move.Row, &move.Col, &move.Timestamp, &move.Origin); err != nil {
			return nil, fmt.Errorf("failed to scan move: %w", err)
		}
		moves = append(moves, move)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate moves: %w", err)
	}

	return moves, nil
}

func (that *dbGame) loadTaunts(ctx context.Context, tx *sql.Tx, gameID string) ([]entity.Taunt, error) {
	query := `SELECT message, timestamp, origin FROM taunts WHERE game_id = ? ORDER BY id ASC`

	rows, err := tx.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load taunts: %w", err)
	}
	defer rows.Close()

	taunts := []entity.Taunt{}
	for rows.Next() {
		var taunt entity.Taunt
		if err = rows.Scan(&taunt.Message, &taunt.Timestamp, &taunt.Origin); err != nil {
			return nil, fmt.Errorf("failed to scan taunt: %w", err)
		}
		taunts = append(taunts, taunt)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate taunts: %w", err)
	}

	return taunts, nil
}

func replayMoves(moves []entity.Move) (entity.Board, error) {
	var board entity.Board

	for _, move := range moves {
		if !board.InBounds(move.Row, move.Col) {
			return board, fmt.Errorf("%w: stored move (%d, %d)", apperror.ErrOutOfBounds, move.Row, move.Col)
		}
		board[move.Row][move.Col] = move.Player
	}

	return board, nil
}
