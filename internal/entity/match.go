package entity

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-match/internal/apperror"
)

const (
	StatusWaiting = "waiting"
	StatusOngoing = "ongoing"
	StatusWon     = "won"
	StatusTied    = "tied"

	BoardSize = 3
)

var (
	ErrEventOutOfOrder = errors.New("event out of order")
	ErrUnknownEvent    = errors.New("unknown event kind")
	ErrInvalidCell     = errors.New("invalid cell")
)

// Board is indexed [x][y].
type Board [BoardSize][BoardSize]PlayerType

type OutcomeKind string

const (
	OutcomeInProgress OutcomeKind = "in_progress"
	OutcomeWon        OutcomeKind = "won"
	OutcomeTied       OutcomeKind = "tied"
)

// Outcome is derived from the board after every move, it is never stored.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	LineIndex int         `json:"line_index"`
	Winner    PlayerType  `json:"winner,omitempty"`
}

// Report is what a successful mutation hands back to the caller.
type Report struct {
	Outcome Outcome
	Events  []Event
}

// Match is the authoritative state of one match. Replicas hold copies and move them forward with Project.
type Match struct {
	ID          string     `json:"id"`
	Board       Board      `json:"board"`
	Turn        PlayerType `json:"player_turn"`
	Status      string     `json:"status"`
	CrossScore  int        `json:"cross_score"`
	CircleScore int        `json:"circle_score"`
	Seq         uint64     `json:"seq"`
	Players     []*Player  `json:"players,omitempty"`
}

func NewMatch(id string) *Match {
	return &Match{
		ID:     id,
		Turn:   PlayerNone,
		Status: StatusWaiting,
	}
}

func InBounds(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}

// EvaluateOutcome scans Lines in table order. The first line with three equal non-empty cells wins.
func EvaluateOutcome(board Board) Outcome {
	for i, line := range Lines {
		a := board[line.Cells[0].X][line.Cells[0].Y]
		b := board[line.Cells[1].X][line.Cells[1].Y]
		c := board[line.Cells[2].X][line.Cells[2].Y]

		if a != PlayerNone && a == b && b == c {
			return Outcome{
				Kind:      OutcomeWon,
				LineIndex: i,
				Winner:    board[line.Center.X][line.Center.Y],
			}
		}
	}

	// the game continues until every cell is taken
	for x := range board {
		for y := range board[x] {
			if board[x][y] == PlayerNone {
				return Outcome{Kind: OutcomeInProgress, LineIndex: -1}
			}
		}
	}

	return Outcome{Kind: OutcomeTied, LineIndex: -1}
}

func (that *Match) EvaluateOutcome() Outcome {
	return EvaluateOutcome(that.Board)
}

// Start moves a waiting match into play with Cross to move. It does nothing in any other status.
func (that *Match) Start() []Event {
	if !that.IsWaiting() {
		return nil
	}

	that.Status = StatusOngoing
	that.Turn = PlayerCross

	started := that.nextEvent(EventGameStarted)
	turn := that.nextEvent(EventTurnChanged)
	turn.Turn = that.Turn

	return []Event{started, turn}
}

// ApplyMove places player's mark at (x, y). Moves out of turn, outside the board or onto a taken cell
// are dropped without touching the state, and the second result is false.
func (that *Match) ApplyMove(x, y int, player PlayerType) (Report, bool) {
	if !that.IsOngoing() || !player.IsValid() || player != that.Turn {
		return Report{}, false
	}

	if !InBounds(x, y) || that.Board[x][y] != PlayerNone {
		return Report{}, false
	}

	that.Board[x][y] = player
	that.Turn = player.Opponent()

	move := that.nextEvent(EventMoveApplied)
	move.X, move.Y, move.Player = x, y, player

	events := []Event{move}

	outcome := that.EvaluateOutcome()
	switch outcome.Kind {
	case OutcomeWon:
		that.Turn = PlayerNone
		that.Status = StatusWon

		switch outcome.Winner {
		case PlayerCross:
			that.CrossScore++
		case PlayerCircle:
			that.CircleScore++
		}

		turn := that.nextEvent(EventTurnChanged)
		score := that.nextEvent(EventScoreChanged)
		score.CrossScore, score.CircleScore = that.CrossScore, that.CircleScore
		won := that.nextEvent(EventGameWon)
		won.LineIndex, won.Winner = outcome.LineIndex, outcome.Winner

		events = append(events, turn, score, won)
	case OutcomeTied:
		that.Turn = PlayerNone
		that.Status = StatusTied

		events = append(events, that.nextEvent(EventTurnChanged), that.nextEvent(EventGameTied))
	default:
		turn := that.nextEvent(EventTurnChanged)
		turn.Turn = that.Turn

		events = append(events, turn)
	}

	return Report{Outcome: outcome, Events: events}, true
}

// Rematch clears the board and hands the first move to Cross. Scores are kept.
func (that *Match) Rematch() []Event {
	that.Board = Board{}
	that.Turn = PlayerCross
	that.Status = StatusOngoing

	rematch := that.nextEvent(EventRematched)
	turn := that.nextEvent(EventTurnChanged)
	turn.Turn = that.Turn

	return []Event{rematch, turn}
}

// Project applies an event received from the authoritative match to this copy.
// Events at or below the current sequence are ignored, gaps are refused.
func (that *Match) Project(event Event) error {
	if event.Seq <= that.Seq {
		return nil
	}

	if event.Seq != that.Seq+1 {
		return fmt.Errorf("%w: at %d, got %d", ErrEventOutOfOrder, that.Seq, event.Seq)
	}

	switch event.Kind {
	case EventGameStarted:
		that.Status = StatusOngoing
	case EventMoveApplied:
		if !InBounds(event.X, event.Y) {
			return fmt.Errorf("%w: (%d, %d)", ErrInvalidCell, event.X, event.Y)
		}
		that.Board[event.X][event.Y] = event.Player
	case EventTurnChanged:
		that.Turn = event.Turn
	case EventScoreChanged:
		that.CrossScore, that.CircleScore = event.CrossScore, event.CircleScore
	case EventGameWon:
		that.Status = StatusWon
	case EventGameTied:
		that.Status = StatusTied
	case EventRematched:
		that.Board = Board{}
		that.Status = StatusOngoing
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event.Kind)
	}

	that.Seq = event.Seq

	return nil
}

// Join seats a session. The first session gets Cross, the second Circle, a returning session keeps its seat.
func (that *Match) Join(playerID string) (*Player, error) {
	if player := that.PlayerByID(playerID); player != nil {
		return player, nil
	}

	if that.IsFull() {
		return nil, fmt.Errorf("%w: match id %s", apperror.ErrMatchFull, that.ID)
	}

	mark := PlayerCross
	for _, player := range that.Players {
		if player.Mark == PlayerCross {
			mark = PlayerCircle
		}
	}

	player := &Player{ID: playerID, Mark: mark}
	that.Players = append(that.Players, player)

	return player, nil
}

func (that *Match) PlayerByID(playerID string) *Player {
	for _, player := range that.Players {
		if player.ID == playerID {
			return player
		}
	}

	return nil
}

func (that *Match) IsFull() bool {
	return len(that.Players) >= 2
}

func (that *Match) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Match) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Match) IsFinished() bool {
	return that.Status == StatusWon || that.Status == StatusTied
}

func (that *Match) GetCurrentTurn() PlayerType {
	return that.Turn
}

func (that *Match) GetScores() (int, int) {
	return that.CrossScore, that.CircleScore
}

// Clone returns a deep copy, mutations are staged on it before they are committed.
func (that *Match) Clone() *Match {
	clone := *that
	if that.Players == nil {
		return &clone
	}

	clone.Players = make([]*Player, 0, len(that.Players))
	for _, player := range that.Players {
		p := *player
		clone.Players = append(clone.Players, &p)
	}

	return &clone
}

func (that *Match) nextEvent(kind string) Event {
	that.Seq++

	return Event{Seq: that.Seq, Kind: kind, LineIndex: -1}
}
