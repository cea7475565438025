package entity

import "math/rand"

const (
	StatusInProgress = "in_progress"
	StatusWon        = "won"
	StatusDraw       = "draw"

	PlayerX = "X"
	PlayerO = "O"

	EmptyCell = ""
)

const (
	OriginUI    = "ui"
	OriginAgent = "agent"
)

// Cell is a board coordinate.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// WinningLine is the three cells that completed a game.
type WinningLine [3]Cell

type Game struct {
	ID          string       `json:"id"`
	Board       Board        `json:"board"`
	HumanPlayer string       `json:"human_player"`
	AgentPlayer string       `json:"agent_player"`
	Turn        string       `json:"current_turn"`
	Status      string       `json:"status"`
	Winner      string       `json:"winner,omitempty"`
	WinningLine *WinningLine `json:"winning_line,omitempty"`
	Moves       []Move       `json:"move_history"`
	Taunts      []Taunt      `json:"taunts"`
	Version     int64        `json:"-"`
	CreatedAt   int64        `json:"created_at"`
	UpdatedAt   int64        `json:"updated_at"`
}

func (that *Game) IsInProgress() bool {
	return that.Status == StatusInProgress
}

func (that *Game) IsOver() bool {
	return that.Status == StatusWon || that.Status == StatusDraw
}

func (that *Game) IsHumanTurn() bool {
	return that.IsInProgress() && that.Turn == that.HumanPlayer
}

func (that *Game) IsAgentTurn() bool {
	return that.IsInProgress() && that.Turn == that.AgentPlayer
}

// OpponentOf - returns the opposite mark.
func OpponentOf(mark string) string {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// RandomMarks - assigns X and O uniformly at random.
func RandomMarks() (string, string) {
	if rand.Intn(2) == 0 { //nolint: gosec // it's ok
		return PlayerX, PlayerO
	}
	return PlayerO, PlayerX
}
