package apperror

import "errors"

var (
	ErrGameOver     = errors.New("game is already over")
	ErrOutOfBounds  = errors.New("position is out of bounds")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrEmptyTaunt   = errors.New("taunt message is empty")
	ErrGameNotFound = errors.New("game not found")
	ErrConflict     = errors.New("game was modified concurrently")
)
