package entity

// BoardSize - the board is always 3x3.
const BoardSize = 3

// Board holds the grid state; EmptyCell marks an unoccupied cell.
type Board [BoardSize][BoardSize]string

func (that *Board) InBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

func (that *Board) IsEmptyAt(row, col int) bool {
	return that[row][col] == EmptyCell
}

func (that *Board) IsFull() bool {
	for _, row := range that {
		for _, cell := range row {
			if cell == EmptyCell {
				return false
			}
		}
	}

	return true
}
