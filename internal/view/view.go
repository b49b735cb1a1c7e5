package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
)

const (
	TextWin  = "YOU WIN!"
	TextLose = "YOU LOSE!"
	TextTie  = "TIE"
)

// View prints a replica's state to a terminal.
type View struct {
	out *termenv.Output
}

func New(w io.Writer, opts ...termenv.OutputOption) *View {
	return &View{out: termenv.NewOutput(w, opts...)}
}

// GameOverText returns the end-of-round text seen by local, or "" while the round is still running.
func GameOverText(match *entity.Match, local entity.PlayerType) string {
	switch match.Status {
	case entity.StatusTied:
		return TextTie
	case entity.StatusWon:
		if match.EvaluateOutcome().Winner == local {
			return TextWin
		}

		return TextLose
	default:
		return ""
	}
}

// Render prints the board, the turn indicator, both scores and the game-over text.
func (that *View) Render(match *entity.Match, local entity.PlayerType) error {
	var sb strings.Builder

	outcome := match.EvaluateOutcome()

	var line *entity.Line
	if outcome.Kind == entity.OutcomeWon {
		line = &entity.Lines[outcome.LineIndex]
	}

	for y := range entity.BoardSize {
		cells := make([]string, 0, entity.BoardSize)
		for x := range entity.BoardSize {
			cells = append(cells, that.cell(match.Board[x][y], line != nil && line.Contains(entity.Position{X: x, Y: y})))
		}

		sb.WriteString(" " + strings.Join(cells, " | ") + "\n")
		if y < entity.BoardSize-1 {
			sb.WriteString("---+---+---\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(that.turn(match, local) + "\n")

	cross, circle := match.GetScores()
	sb.WriteString(fmt.Sprintf("Score  X %d : %d O\n", cross, circle))

	if text := GameOverText(match, local); text != "" {
		sb.WriteString(that.out.String(text).Bold().String() + "\n")
	}

	_, err := io.WriteString(that.out, sb.String())

	return err
}

func (that *View) cell(mark entity.PlayerType, highlighted bool) string {
	text := string(mark)
	if mark == entity.PlayerNone {
		text = " "
	}

	style := that.out.String(text)

	switch mark {
	case entity.PlayerCross:
		style = style.Foreground(that.out.Color("4"))
	case entity.PlayerCircle:
		style = style.Foreground(that.out.Color("1"))
	}

	if highlighted {
		style = style.Bold().Underline()
	}

	return style.String()
}

func (that *View) turn(match *entity.Match, local entity.PlayerType) string {
	switch {
	case match.IsWaiting():
		return "Waiting for opponent"
	case match.Turn == entity.PlayerNone:
		return "Round over, r for rematch"
	case match.Turn == local:
		return that.out.String(fmt.Sprintf("Your turn (%s)", local)).Bold().String()
	default:
		return fmt.Sprintf("Opponent's turn (%s)", match.Turn)
	}
}
