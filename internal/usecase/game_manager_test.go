package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-duel/internal/repository"
	"github.com/rocketscienceinc/tictactoe-duel/internal/repository/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) (*GameManager, repository.GameRepository) {
	t.Helper()

	return newTestManagerAt(t, filepath.Join(t.TempDir(), "test.db"))
}

func newTestManagerAt(t *testing.T, dbPath string) (*GameManager, repository.GameRepository) {
	t.Helper()

	sqliteStorage, err := storage.New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStorage.Close() })

	require.NoError(t, sqliteStorage.Init(context.Background()))

	repo := repository.NewGameRepository(sqliteStorage)

	return NewGameManager(testLogger(), repo), repo
}

// playWinningLine drives the current game into a won state: the first mover
// takes the whole top row while the opponent answers on the middle row.
func playWinningLine(t *testing.T, manager *GameManager) *entity.Game {
	t.Helper()
	ctx := context.Background()

	cells := []entity.Cell{
		{Row: 0, Col: 0}, {Row: 1, Col: 0},
		{Row: 0, Col: 1}, {Row: 1, Col: 1},
		{Row: 0, Col: 2},
	}

	var game *entity.Game
	var err error
	for _, cell := range cells {
		game, err = manager.MakeMove(ctx, cell.Row, cell.Col, entity.OriginUI)
		require.NoError(t, err)
	}

	return game
}

func TestGameManager_GetGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates a fresh game when none exists", func(t *testing.T) {
		// Given: an empty store
		manager, _ := newTestManager(t)

		// When: asking for the current game
		game, err := manager.GetGame(ctx)

		// Then: a new in-progress game with opposite role marks appears
		require.NoError(t, err)
		assert.NotEmpty(t, game.ID)
		assert.Equal(t, entity.StatusInProgress, game.Status)
		assert.Empty(t, game.Moves)
		assert.Empty(t, game.Taunts)
		assert.NotEqual(t, game.HumanPlayer, game.AgentPlayer)
		assert.Contains(t, []string{game.HumanPlayer, game.AgentPlayer}, game.Turn)
	})

	t.Run("Returns the same game on repeated calls", func(t *testing.T) {
		manager, _ := newTestManager(t)

		first, err := manager.GetGame(ctx)
		require.NoError(t, err)

		second, err := manager.GetGame(ctx)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("Recovers from a dangling active game pointer", func(t *testing.T) {
		// Given: a pointer naming a game the store never had
		manager, repo := newTestManager(t)
		game, err := manager.GetGame(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.SetActiveGameID(ctx, "deleted-game"))

		// When: asking for the current game
		recovered, err := manager.GetGame(ctx)

		// Then: a fresh game replaces the dangling pointer
		require.NoError(t, err)
		assert.NotEqual(t, game.ID, recovered.ID)
		assert.Equal(t, entity.StatusInProgress, recovered.Status)
	})
}

func TestGameManager_MakeMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Accepts a legal move and records it", func(t *testing.T) {
		// Given: a fresh game
		manager, _ := newTestManager(t)
		before, err := manager.GetGame(ctx)
		require.NoError(t, err)
		firstPlayer := before.Turn

		// When: the current player takes (0,0)
		game, err := manager.MakeMove(ctx, 0, 0, entity.OriginUI)

		// Then: the cell, the move log and the flipped turn all agree
		require.NoError(t, err)
		assert.Equal(t, firstPlayer, game.Board[0][0])
		require.Len(t, game.Moves, 1)
		assert.Equal(t, firstPlayer, game.Moves[0].Player)
		assert.Equal(t, entity.OriginUI, game.Moves[0].Origin)
		assert.Equal(t, entity.OpponentOf(firstPlayer), game.Turn)
	})

	t.Run("Rejects out-of-bounds coordinates without mutating state", func(t *testing.T) {
		manager, _ := newTestManager(t)

		for _, cell := range []entity.Cell{{Row: 3, Col: 0}, {Row: 0, Col: 3}, {Row: -1, Col: 1}, {Row: 1, Col: -1}} {
			_, err := manager.MakeMove(ctx, cell.Row, cell.Col, entity.OriginUI)
			assert.ErrorIs(t, err, apperror.ErrOutOfBounds)
		}

		game, err := manager.GetGame(ctx)
		require.NoError(t, err)
		assert.Empty(t, game.Moves)
	})

	t.Run("Rejects a move on an occupied cell without advancing the turn", func(t *testing.T) {
		// Given: (1,1) already taken
		manager, _ := newTestManager(t)
		first, err := manager.MakeMove(ctx, 1, 1, entity.OriginUI)
		require.NoError(t, err)
		turnAfterFirst := first.Turn

		// When: the opponent targets the same cell
		_, err = manager.MakeMove(ctx, 1, 1, entity.OriginAgent)

		// Then: the move fails and the turn stays where it was
		assert.ErrorIs(t, err, apperror.ErrCellOccupied)

		game, getErr := manager.GetGame(ctx)
		require.NoError(t, getErr)
		assert.Equal(t, turnAfterFirst, game.Turn)
		assert.Len(t, game.Moves, 1)
	})

	t.Run("Alternates turns strictly while in progress", func(t *testing.T) {
		// Given: a sequence of legal moves with no winner
		manager, _ := newTestManager(t)
		cells := []entity.Cell{{Row: 0, Col: 0}, {Row: 1, Col: 1}, {Row: 0, Col: 1}, {Row: 1, Col: 2}}

		var game *entity.Game
		var err error
		for _, cell := range cells {
			game, err = manager.MakeMove(ctx, cell.Row, cell.Col, entity.OriginUI)
			require.NoError(t, err)
		}

		// Then: each move's player is the opponent of the previous one
		require.Len(t, game.Moves, len(cells))
		for i := 1; i < len(game.Moves); i++ {
			assert.Equal(t, entity.OpponentOf(game.Moves[i-1].Player), game.Moves[i].Player)
		}
	})

	t.Run("Completing the top row ends the game with the winning line", func(t *testing.T) {
		// Given/When: moves (0,0) (1,0) (0,1) (1,1) (0,2) by alternating players
		manager, _ := newTestManager(t)
		game := playWinningLine(t, manager)

		// Then: the first mover won with the top row
		assert.Equal(t, entity.StatusWon, game.Status)
		assert.Equal(t, game.Moves[0].Player, game.Winner)
		require.NotNil(t, game.WinningLine)
		assert.Equal(t, entity.WinningLine{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}}, *game.WinningLine)
	})

	t.Run("Rejects any move after the game is over", func(t *testing.T) {
		// Given: a won game
		manager, _ := newTestManager(t)
		won := playWinningLine(t, manager)

		// When: someone tries (2,0)
		_, err := manager.MakeMove(ctx, 2, 0, entity.OriginAgent)

		// Then: the move fails and the grid is unchanged
		assert.ErrorIs(t, err, apperror.ErrGameOver)

		game, getErr := manager.GetGame(ctx)
		require.NoError(t, getErr)
		assert.Equal(t, won.Board, game.Board)
		assert.Len(t, game.Moves, 5)
	})

	t.Run("Filling the board without a line is a draw", func(t *testing.T) {
		// Given: nine moves with no three-in-a-row for either player
		manager, _ := newTestManager(t)
		cells := []entity.Cell{
			{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2},
			{Row: 1, Col: 1}, {Row: 1, Col: 0}, {Row: 1, Col: 2},
			{Row: 2, Col: 1}, {Row: 2, Col: 0}, {Row: 2, Col: 2},
		}

		var game *entity.Game
		var err error
		for _, cell := range cells {
			game, err = manager.MakeMove(ctx, cell.Row, cell.Col, entity.OriginUI)
			require.NoError(t, err)
		}

		// Then: the game is drawn with no winning line
		assert.Equal(t, entity.StatusDraw, game.Status)
		assert.Empty(t, game.Winner)
		assert.Nil(t, game.WinningLine)
	})

	t.Run("Move timestamps never decrease", func(t *testing.T) {
		manager, _ := newTestManager(t)
		cells := []entity.Cell{{Row: 0, Col: 0}, {Row: 1, Col: 1}, {Row: 2, Col: 2}}

		var game *entity.Game
		var err error
		for _, cell := range cells {
			game, err = manager.MakeMove(ctx, cell.Row, cell.Col, entity.OriginUI)
			require.NoError(t, err)
		}

		for i := 1; i < len(game.Moves); i++ {
			assert.LessOrEqual(t, game.Moves[i-1].Timestamp, game.Moves[i].Timestamp)
		}
	})
}

func TestGameManager_RestartGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Starts a fresh game and keeps the old one retrievable", func(t *testing.T) {
		// Given: a game with one move and one taunt
		manager, repo := newTestManager(t)
		old, err := manager.MakeMove(ctx, 0, 0, entity.OriginUI)
		require.NoError(t, err)
		_, err = manager.AddTaunt(ctx, "catch me if you can", entity.OriginAgent)
		require.NoError(t, err)

		// When: restarting
		fresh, err := manager.RestartGame(ctx)

		// Then: the new game is empty, in progress, with opposite marks
		require.NoError(t, err)
		assert.NotEqual(t, old.ID, fresh.ID)
		assert.Equal(t, entity.StatusInProgress, fresh.Status)
		assert.Empty(t, fresh.Moves)
		assert.Empty(t, fresh.Taunts)
		assert.NotEqual(t, fresh.HumanPlayer, fresh.AgentPlayer)

		// Then: the current history is empty while the old game keeps its own
		current, err := manager.GetGame(ctx)
		require.NoError(t, err)
		assert.Empty(t, current.Moves)

		abandoned, err := repo.GetByID(ctx, old.ID)
		require.NoError(t, err)
		assert.Len(t, abandoned.Moves, 1)
		assert.Len(t, abandoned.Taunts, 1)
	})

	t.Run("Restart is always accepted on a finished game", func(t *testing.T) {
		manager, _ := newTestManager(t)
		playWinningLine(t, manager)

		fresh, err := manager.RestartGame(ctx)

		require.NoError(t, err)
		assert.Equal(t, entity.StatusInProgress, fresh.Status)
	})
}

func TestGameManager_AddTaunt(t *testing.T) {
	ctx := context.Background()

	t.Run("Taunts are kept in send order", func(t *testing.T) {
		// Given: two taunts sent in order
		manager, _ := newTestManager(t)
		_, err := manager.AddTaunt(ctx, "First", entity.OriginAgent)
		require.NoError(t, err)
		game, err := manager.AddTaunt(ctx, "Second", entity.OriginUI)
		require.NoError(t, err)

		// Then: they are retrievable in that exact order
		require.Len(t, game.Taunts, 2)
		assert.Equal(t, "First", game.Taunts[0].Message)
		assert.Equal(t, "Second", game.Taunts[1].Message)
		assert.LessOrEqual(t, game.Taunts[0].Timestamp, game.Taunts[1].Timestamp)
	})

	t.Run("Taunts are accepted after the game is over", func(t *testing.T) {
		manager, _ := newTestManager(t)
		playWinningLine(t, manager)

		game, err := manager.AddTaunt(ctx, "good game", entity.OriginUI)

		require.NoError(t, err)
		assert.Len(t, game.Taunts, 1)
	})

	t.Run("Rejects an empty message", func(t *testing.T) {
		manager, _ := newTestManager(t)

		_, err := manager.AddTaunt(ctx, "   ", entity.OriginUI)

		assert.ErrorIs(t, err, apperror.ErrEmptyTaunt)
	})

	t.Run("Does not touch the turn or the status", func(t *testing.T) {
		manager, _ := newTestManager(t)
		before, err := manager.MakeMove(ctx, 0, 0, entity.OriginUI)
		require.NoError(t, err)

		game, err := manager.AddTaunt(ctx, "still your move", entity.OriginAgent)

		require.NoError(t, err)
		assert.Equal(t, before.Turn, game.Turn)
		assert.Equal(t, before.Status, game.Status)
	})
}

func TestGameManager_CrossProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("A second manager over the same file sees the first one's moves", func(t *testing.T) {
		// Given: two managers sharing nothing but the database file
		dbPath := filepath.Join(t.TempDir(), "shared.db")
		first, _ := newTestManagerAt(t, dbPath)
		second, _ := newTestManagerAt(t, dbPath)

		// When: the first manager creates a game and moves
		moved, err := first.MakeMove(ctx, 0, 0, entity.OriginUI)
		require.NoError(t, err)

		// Then: the second manager observes the same game and move
		observed, err := second.GetGame(ctx)
		require.NoError(t, err)
		assert.Equal(t, moved.ID, observed.ID)
		require.Len(t, observed.Moves, 1)
		assert.Equal(t, moved.Board, observed.Board)
	})

	t.Run("Replayed grid from the shared file matches the mutating process", func(t *testing.T) {
		// Given: moves issued alternately through two managers
		dbPath := filepath.Join(t.TempDir(), "shared.db")
		first, _ := newTestManagerAt(t, dbPath)
		second, _ := newTestManagerAt(t, dbPath)

		_, err := first.MakeMove(ctx, 0, 0, entity.OriginUI)
		require.NoError(t, err)
		_, err = second.MakeMove(ctx, 1, 1, entity.OriginAgent)
		require.NoError(t, err)
		fromFirst, err := first.MakeMove(ctx, 2, 2, entity.OriginUI)
		require.NoError(t, err)

		// Then: both processes reconstruct the identical grid
		fromSecond, err := second.GetGame(ctx)
		require.NoError(t, err)
		assert.Equal(t, fromFirst.Board, fromSecond.Board)
		assert.Len(t, fromSecond.Moves, 3)
	})
}

// contendedRepo lets a rival manager commit between the coordinator's load and
// its persist, so the delegated compare-and-swap genuinely loses that window.
type contendedRepo struct {
	repository.GameRepository

	rival      *GameManager
	rivalCells []entity.Cell
}

func (that *contendedRepo) ApplyMove(ctx context.Context, game *entity.Game, move *entity.Move) error {
	if len(that.rivalCells) > 0 {
		cell := that.rivalCells[0]
		that.rivalCells = that.rivalCells[1:]

		if _, err := that.rival.MakeMove(ctx, cell.Row, cell.Col, entity.OriginAgent); err != nil {
			return fmt.Errorf("rival move failed: %w", err)
		}
	}

	return that.GameRepository.ApplyMove(ctx, game, move)
}

func newContendedManager(t *testing.T, rivalCells []entity.Cell) (*GameManager, *GameManager) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "shared.db")
	rival, _ := newTestManagerAt(t, dbPath)

	sqliteStorage, err := storage.New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStorage.Close() })

	require.NoError(t, sqliteStorage.Init(context.Background()))

	repo := &contendedRepo{
		GameRepository: repository.NewGameRepository(sqliteStorage),
		rival:          rival,
		rivalCells:     rivalCells,
	}

	return NewGameManager(testLogger(), repo), rival
}

func TestGameManager_ConflictRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("A single version conflict is retried against the fresh state", func(t *testing.T) {
		// Given: a rival that commits once inside this manager's write window
		manager, _ := newContendedManager(t, []entity.Cell{{Row: 2, Col: 2}})

		// When: making a move whose first compare-and-swap loses
		game, err := manager.MakeMove(ctx, 0, 0, entity.OriginUI)

		// Then: the move lands on the reloaded state behind the rival's
		require.NoError(t, err)
		require.Len(t, game.Moves, 2)
		assert.Equal(t, entity.OriginAgent, game.Moves[0].Origin)
		assert.Equal(t, entity.OriginUI, game.Moves[1].Origin)
		assert.NotEqual(t, game.Moves[0].Player, game.Moves[1].Player)
		assert.Equal(t, game.Moves[0].Player, game.Board[2][2])
		assert.Equal(t, game.Moves[1].Player, game.Board[0][0])
	})

	t.Run("A second consecutive conflict surfaces to the caller", func(t *testing.T) {
		// Given: a rival that wins both compare-and-swap windows
		manager, rival := newContendedManager(t, []entity.Cell{{Row: 2, Col: 2}, {Row: 2, Col: 0}})

		// When: making a move that loses the retry as well
		_, err := manager.MakeMove(ctx, 0, 0, entity.OriginUI)

		// Then: the conflict surfaces and only the rival's moves are stored
		require.ErrorIs(t, err, apperror.ErrConflict)

		game, err := rival.GetGame(ctx)
		require.NoError(t, err)
		require.Len(t, game.Moves, 2)
		assert.Equal(t, entity.EmptyCell, game.Board[0][0])
	})
}
