package entity

const (
	EventGameStarted  = "match:started"
	EventMoveApplied  = "match:move"
	EventTurnChanged  = "match:turn"
	EventScoreChanged = "match:score"
	EventGameWon      = "match:won"
	EventGameTied     = "match:tied"
	EventRematched    = "match:rematch"
)

// Event is a notification produced by the authoritative match. Only the fields relevant to Kind are set.
type Event struct {
	Seq  uint64 `json:"seq"`
	Kind string `json:"kind"`

	X      int        `json:"x"`
	Y      int        `json:"y"`
	Player PlayerType `json:"player,omitempty"`

	Turn PlayerType `json:"turn,omitempty"`

	CrossScore  int `json:"cross_score"`
	CircleScore int `json:"circle_score"`

	LineIndex int        `json:"line_index"`
	Winner    PlayerType `json:"winner,omitempty"`
}
