package entity

// Move is a single accepted placement, ordered by arrival.
type Move struct {
	Player    string `json:"player"`
	Row       int    `json:"row"`
	Col       int    `json:"col"`
	Timestamp int64  `json:"timestamp"`
	Origin    string `json:"origin"`
}

// Taunt is a free-text message attached to a game, independent of move legality.
type Taunt struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Origin    string `json:"origin"`
}
