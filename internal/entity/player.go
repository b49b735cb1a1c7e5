package entity

// PlayerType is both a cell value and a turn value. PlayerNone marks an empty cell or a game with nobody to move.
type PlayerType string

const (
	PlayerNone   PlayerType = ""
	PlayerCross  PlayerType = "X"
	PlayerCircle PlayerType = "O"
)

func (that PlayerType) Opponent() PlayerType {
	switch that {
	case PlayerCross:
		return PlayerCircle
	case PlayerCircle:
		return PlayerCross
	default:
		return PlayerNone
	}
}

func (that PlayerType) IsValid() bool {
	return that == PlayerCross || that == PlayerCircle
}

// Player is a seat in the match held by a session.
type Player struct {
	ID   string     `json:"id"`
	Mark PlayerType `json:"mark,omitempty"`
}
