package tictactoe

import (
	"github.com/rocketscienceinc/tictactoe-duel/internal/entity"
)

// winLines - 3 rows, 3 columns, 2 diagonals.
var winLines = [8]entity.WinningLine{
	{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}},
	{{Row: 1, Col: 0}, {Row: 1, Col: 1}, {Row: 1, Col: 2}},
	{{Row: 2, Col: 0}, {Row: 2, Col: 1}, {Row: 2, Col: 2}},
	{{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 2, Col: 0}},
	{{Row: 0, Col: 1}, {Row: 1, Col: 1}, {Row: 2, Col: 1}},
	{{Row: 0, Col: 2}, {Row: 1, Col: 2}, {Row: 2, Col: 2}},
	{{Row: 0, Col: 0}, {Row: 1, Col: 1}, {Row: 2, Col: 2}},
	{{Row: 0, Col: 2}, {Row: 1, Col: 1}, {Row: 2, Col: 0}},
}

// Evaluate - determines the status of a board: the winner's mark and the
// winning line when a line is complete, a draw when the board is full, and
// in-progress otherwise.
func Evaluate(board entity.Board) (string, string, *entity.WinningLine) {
	for _, line := range winLines {
		a := board[line[0].Row][line[0].Col]
		b := board[line[1].Row][line[1].Col]
		c := board[line[2].Row][line[2].Col]

		if a != entity.EmptyCell && a == b && b == c {
			winningLine := line
			return entity.StatusWon, a, &winningLine
		}
	}

	if board.IsFull() {
		return entity.StatusDraw, "", nil
	}

	return entity.StatusInProgress, "", nil
}
